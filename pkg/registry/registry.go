// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nexi-assistant/internal/common/validation"
)

//go:embed tools.yaml
var defaultTools []byte

// LoadRegistry reads the registry at path. An empty path loads the built-in
// tool set.
func LoadRegistry(path string) (*ToolRegistry, error) {
	if path == "" {
		return Parse(defaultTools)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the built-in tool set.
func Default() *ToolRegistry {
	reg, err := Parse(defaultTools)
	if err != nil {
		panic(fmt.Sprintf("embedded tool registry: %v", err))
	}
	return reg
}

func Parse(data []byte) (*ToolRegistry, error) {
	var reg ToolRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse tool registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Tools))
	for _, t := range reg.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool registry: tool without name")
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("tool registry: duplicate tool %s", t.Name)
		}
		seen[t.Name] = true
	}
	return &reg, nil
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Names returns tool names in registry order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.Tools))
	for _, t := range r.Tools {
		names = append(names, t.Name)
	}
	return names
}

// Definitions returns the function definitions for every tool.
func (r *ToolRegistry) Definitions() []map[string]interface{} {
	defs := make([]map[string]interface{}, 0, len(r.Tools))
	for _, t := range r.Tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Validator compiles every tool's parameter schema.
func (r *ToolRegistry) Validator() (*validation.Validator, error) {
	v := validation.NewValidator()
	for _, t := range r.Tools {
		if err := v.Register(t.Name, t.Parameters); err != nil {
			return nil, err
		}
	}
	return v, nil
}
