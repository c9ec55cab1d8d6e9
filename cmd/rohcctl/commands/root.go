// Package commands implements the rohcctl command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/packetsmith/rohc/internal/cli/output"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Flags holds the persistent flag values shared by every subcommand.
var Flags struct {
	Config string
	Output string
}

var rootCmd = &cobra.Command{
	Use:   "rohcctl",
	Short: "ROHC compressor control",
	Long: `rohcctl drives a pkg/rohc.Compressor from the command line.

Use this tool to run raw IP datagrams through the compressor, inspect
per-context and aggregate statistics, manage a configuration file's RTP
port hints, and serve the debug HTTP API.

Use "rohcctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&Flags.Config, "config", "", "Path to config file (default: built-in Options)")
	rootCmd.PersistentFlags().StringVarP(&Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("rohcctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}

// outputFormat parses the persistent --output flag.
func outputFormat() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}
