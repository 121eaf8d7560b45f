// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/validation"
	"company-intel/pkg/registry"
)

const defaultRegistryPath = "pkg/registry/registry.json"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	if len(args) < 1 {
		help(out)
		return 1
	}

	var err error
	switch args[0] {
	case "add":
		err = runAdd(args[1:], out)
	case "update":
		err = runUpdate(args[1:], out)
	case "validate":
		err = runValidate(args[1:], out)
	default:
		help(out)
		return 0
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runAdd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID (e.g., collect-company-data)")
	displayName := fs.String("displayName", "", "Display Name")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "intelligence", "Category")
	taskType := fs.String("taskType", "", "Zeebe task type (defaults to id)")
	timeout := fs.String("timeout", "60s", "Execution timeout")
	retries := fs.Int("retries", 3, "Job retries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *displayName == "" || *description == "" {
		return fmt.Errorf("id, displayName and description are required for add")
	}
	if *taskType == "" {
		*taskType = *id
	}

	activity := registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              "1.0.0",
		TaskType:             *taskType,
		ImplementationStatus: "planned",
		InputSchema:          map[string]interface{}{"type": "object"},
		OutputSchema:         map[string]interface{}{"type": "object"},
		ErrorCodes:           []string{},
		Timeout:              *timeout,
		Retries:              *retries,
		Workflows:            []string{},
		Tags:                 []string{},
	}
	if err := addActivity(*path, &activity); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID to update")
	field := fs.String("field", "", "Field to update (status, version, timeout, retries, ...)")
	value := fs.String("value", "", "New value for the field")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *field == "" || *value == "" {
		return fmt.Errorf("id, field and value are required for update")
	}
	if err := updateActivity(*path, *id, *field, *value); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

func runValidate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := validateRegistry(reg); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func addActivity(path string, activity *registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}

	for _, existing := range reg.Activities {
		if existing.ID == activity.ID {
			return fmt.Errorf("activity with ID %s already exists", activity.ID)
		}
	}

	reg.Activities = append(reg.Activities, *activity)
	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var activity *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			activity = &reg.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "displayName":
		activity.DisplayName = value
	case "description":
		activity.Description = value
	case "category":
		activity.Category = value
	case "taskType":
		activity.TaskType = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, path)
}

// validateRegistry checks required fields, timeouts, error codes and that
// every input schema compiles.
func validateRegistry(reg *registry.ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range reg.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if _, err := time.ParseDuration(activity.Timeout); err != nil {
			return fmt.Errorf("activity %s has invalid timeout %q", activity.ID, activity.Timeout)
		}
		if activity.Retries < 0 {
			return fmt.Errorf("activity %s has negative retries", activity.ID)
		}
		for _, code := range activity.ErrorCodes {
			if _, ok := errors.BPMNErrorMapping[errors.ErrorCode(code)]; !ok {
				return fmt.Errorf("activity %s declares unknown error code %s", activity.ID, code)
			}
		}
		if len(activity.InputSchema) > 0 {
			raw, err := json.Marshal(activity.InputSchema)
			if err != nil {
				return fmt.Errorf("activity %s input schema: %w", activity.ID, err)
			}
			if _, err := validation.Compile(raw); err != nil {
				return fmt.Errorf("activity %s input schema: %w", activity.ID, err)
			}
		}
	}
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help(out io.Writer) {
	fmt.Fprintln(out, `
Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update an existing activity's field
  validate  Validate the registry file
  help      Show this help message

Examples:
  registry-updater add -id summarize-filings -displayName "Summarize Filings" -description "Summarizes recent filings"
  registry-updater update -id collect-company-data -field timeout -value 90s
  registry-updater validate -path pkg/registry/registry.json

The registry is embedded into the worker manager at build time; rebuild after editing.`)
}
