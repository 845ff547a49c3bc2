package main

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata of docaudit. Release builds set them with
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=abc1234 -X main.date=2025-01-31T00:00:00Z" ./cmd/docaudit
//
// Empty values fall back to the module version and VCS settings recorded by
// the Go toolchain. The version also stamps full JSON reports.
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLen is the number of hex digits shown for a VCS revision.
const shortCommitLen = 7

// buildInfo is the version metadata printed by the version command.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version,omitempty"`
}

// currentBuildInfo resolves the metadata of the running binary.
func currentBuildInfo() buildInfo {
	info, _ := debug.ReadBuildInfo()
	return resolveBuildInfo(version, commit, date, info)
}

// resolveBuildInfo prefers the ldflags values and falls back to info,
// which may be nil.
func resolveBuildInfo(ldVersion, ldCommit, ldDate string, info *debug.BuildInfo) buildInfo {
	b := buildInfo{Version: ldVersion, Commit: ldCommit, Date: ldDate}

	var settings map[string]string
	if info != nil {
		b.GoVersion = info.GoVersion
		settings = make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
		if b.Version == "" && info.Main.Version != "" {
			b.Version = info.Main.Version
		}
	}
	if b.Commit == "" {
		b.Commit = settings["vcs.revision"]
		if len(b.Commit) > shortCommitLen {
			b.Commit = b.Commit[:shortCommitLen]
		}
		if b.Commit != "" && settings["vcs.modified"] == "true" {
			b.Commit += "-dirty"
		}
	}
	if b.Date == "" {
		b.Date = settings["vcs.time"]
	}

	if b.Version == "" {
		b.Version = "(devel)"
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

// getVersion returns the docaudit version.
func getVersion() string {
	return currentBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash and build date of docaudit.

Release builds set these through the main.version, main.commit and main.date
ldflags. Other builds report the module version and the VCS revision and
time recorded by the Go toolchain.`,
		Args: cobra.NoArgs,
		RunE: runVersionCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Print version information as JSON")
	return cmd
}

// runVersionCmd prints the build metadata.
func runVersionCmd(cmd *cobra.Command, _ []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	info := currentBuildInfo()
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "docaudit version %s\n", info.Version)
	fmt.Fprintf(out, "  commit: %s\n", info.Commit)
	fmt.Fprintf(out, "  built:  %s\n", info.Date)
	if info.GoVersion != "" {
		fmt.Fprintf(out, "  go:     %s\n", info.GoVersion)
	}
	return nil
}
