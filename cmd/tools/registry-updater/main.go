// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"nexi-assistant/internal/models"
	"nexi-assistant/pkg/registry"
)

var registryPath string

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	defsCmd := flag.NewFlagSet("definitions", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{validateCmd, listCmd, defsCmd, checkCmd, updateCmd} {
		fs.StringVar(&registryPath, "path", "configs/tools.yaml", "Path to tool registry file")
	}

	// Check command flags
	toolCheck := checkCmd.String("tool", "", "Tool name (e.g., build_faq_params)")
	args := checkCmd.String("args", "", "Tool call arguments as JSON")

	// Update command flags
	toolUpdate := updateCmd.String("tool", "", "Tool name to update")
	field := updateCmd.String("field", "", "Field to update (description, stage, strict)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "list":
		listCmd.Parse(os.Args[2:])
		reg := mustLoad()
		for _, t := range reg.Tools {
			fmt.Printf("%-28s stage=%-8s strict=%t\n", t.Name, t.Stage, t.Strict)
		}

	case "definitions":
		defsCmd.Parse(os.Args[2:])
		data, err := json.MarshalIndent(mustLoad().Definitions(), "", "  ")
		if err != nil {
			fmt.Printf("Error rendering definitions: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *toolCheck == "" || *args == "" {
			fmt.Println("Error: tool and args are required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := checkArguments(*toolCheck, *args); err != nil {
			fmt.Printf("Arguments rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Arguments accepted by %s\n", *toolCheck)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *toolUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: tool, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTool(*toolUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated tool %s, field %s to %s\n", *toolUpdate, *field, *value)

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustLoad() *registry.ToolRegistry {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(reg.Tools) == 0 {
		return fmt.Errorf("registry contains no tools")
	}

	for _, t := range reg.Tools {
		if t.Description == "" {
			return fmt.Errorf("tool %s missing required field: description", t.Name)
		}
		if !models.ActiveIntent(t.Stage).Valid() {
			return fmt.Errorf("tool %s has unknown stage %q", t.Name, t.Stage)
		}
		if t.Parameters == nil {
			return fmt.Errorf("tool %s missing required field: parameters", t.Name)
		}
	}

	if _, err := reg.Validator(); err != nil {
		return fmt.Errorf("invalid parameter schema: %w", err)
	}

	fmt.Printf("Registry validation passed. Found %d tools.\n", len(reg.Tools))
	return nil
}

func checkArguments(tool, args string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if _, ok := reg.Get(tool); !ok {
		return fmt.Errorf("tool %s not found", tool)
	}
	v, err := reg.Validator()
	if err != nil {
		return err
	}
	result, err := v.ValidateJSON(tool, []byte(args))
	if err != nil {
		return err
	}
	if !result.Valid {
		return result
	}
	return nil
}

func updateTool(name, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Tools {
		if reg.Tools[i].Name != name {
			continue
		}
		found = true
		switch field {
		case "description":
			reg.Tools[i].Description = value
		case "stage":
			if !models.ActiveIntent(value).Valid() {
				return fmt.Errorf("unknown stage: %s", value)
			}
			reg.Tools[i].Stage = value
		case "strict":
			strict, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid strict value: %w", err)
			}
			reg.Tools[i].Strict = strict
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("tool %s not found", name)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, registryPath)
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.ToolRegistry, path string) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  validate     Validate the tool registry and compile every parameter schema
  list         List tools with their stage
  definitions  Print the function definitions offered to the model
  check        Validate tool call arguments against a tool's schema
  update       Update a field of an existing tool
  help         Show this help message

Examples:
  registry-updater validate -path configs/tools.yaml
  registry-updater check -tool build_faq_params -args '{"user_query":"openingstijden"}'
  registry-updater update -tool build_agenda_query -field strict -value true

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
