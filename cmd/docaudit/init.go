package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/docaudit/internal/config"
)

//go:embed templates/docaudit.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a reference configuration file",
		Long: `Init writes a commented .docaudit.yaml to the current directory.

The generated file contains:
- A sample brand palette and color tolerance
- Sample disclaimer templates and canonical entity names
- Section pairs for the semantic and numeric checks
- A document type override

Examples:
  # Create .docaudit.yaml in current directory
  docaudit init

  # Create the file at a specific path
  docaudit init -o config/reference.yaml

  # Force overwrite existing file
  docaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the reference configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/docaudit.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to describe your documents:")
	fmt.Fprintln(out, "  - Brand palette and color tolerance")
	fmt.Fprintln(out, "  - Required and optional disclaimers")
	fmt.Fprintln(out, "  - Canonical company and product names")
	fmt.Fprintln(out, "  - Sections that must agree with each other")

	return nil
}
