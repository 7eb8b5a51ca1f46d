// Package cmd implements linkbridge's cobra command tree: root, serve,
// version, validate, plan, and report — a stateless HTTP-to-HTTP migration
// proxy's server config and operations exposed as subcommands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time).
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values.
var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "linkbridge",
	Short: "Format-agnostic FK-aware record migration proxy",
	Long: `linkbridge moves records between homogeneous REST endpoints while
preserving and rebinding foreign-key relationships, including
self-referential parent/child trees, across instances that assign
fresh identifiers on insertion.

Features:
  - Foreign-key detection and reference-metadata enrichment
  - Tree flattening and topological reconstruction (Kahn's algorithm)
  - Three interchange formats: JSON document, CSV, mermaid diagram
  - Session-scoped identifier remapping for self-references`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "linkbridge.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings.
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
}

// GetCLIOverrides returns the CLI flag override values.
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
	}
}
