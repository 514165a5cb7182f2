// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"ticketpin-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	switch command {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		path := fs.String("path", defaultRegistryPath, "Path to registry file")
		_ = fs.Parse(args)

		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		path := fs.String("path", defaultRegistryPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, displayName, description, timeout, retries)")
		value := fs.String("value", "", "New value for the field")
		_ = fs.Parse(args)

		if *id == "" || *field == "" || *value == "" {
			fs.Usage()
			return fmt.Errorf("id, field, and value are required for update")
		}

		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Update(*id, *field, *value); err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("update leaves registry invalid: %w", err)
		}
		if err := reg.Save(*path); err != nil {
			return err
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
		return nil

	case "help":
		help()
		return nil

	default:
		help()
		return fmt.Errorf("unknown command %q", command)
	}
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  update   Update an existing activity's field
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater validate -path configs/activity-registry.json
  registry-updater update -id ticket.image.pin -field timeout -value 30s`)
}
