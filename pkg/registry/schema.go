// pkg/registry/schema.go
package registry

// ToolRegistry lists the function tools the assistant may call.
type ToolRegistry struct {
	Version     string `yaml:"version" json:"version"`
	LastUpdated string `yaml:"lastUpdated" json:"lastUpdated"`
	Tools       []Tool `yaml:"tools" json:"tools"`
}

// Tool is one function tool. Parameters is a JSON Schema document; Stage is
// the active intent whose role exposes the tool.
type Tool struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	Stage       string                 `yaml:"stage" json:"stage"`
	Strict      bool                   `yaml:"strict" json:"strict"`
	Parameters  map[string]interface{} `yaml:"parameters" json:"parameters"`
}

// Definition renders the tool in the Responses API function format.
func (t Tool) Definition() map[string]interface{} {
	return map[string]interface{}{
		"type":        "function",
		"name":        t.Name,
		"description": t.Description,
		"parameters":  t.Parameters,
		"strict":      t.Strict,
	}
}
