package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for docaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docaudit",
		Short: "Audit extracted documents for brand, legal and consistency defects",
		Long: `docaudit audits documents that have already been split into page fragments.

Each document is checked against a reference configuration for:
- Off-palette colors
- Missing required disclaimers
- Misspelled company and product names
- Figures and sections that disagree with each other
- Malformed fragments

Audit results are stored locally so that later runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
