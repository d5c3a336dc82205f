// Package cli implements the perch command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/perch-labs/perch/internal/logger"
)

var (
	// version is set by Execute from the build.
	version = "dev"

	cfgPath     string
	verboseMode bool
)

var rootCmd = &cobra.Command{
	Use:   "perch",
	Short: "Expose a Ghost blog to AI agents over MCP",
	Long: `Perch keeps a vector index in sync with a Ghost blog and serves it
to AI assistants over the Model Context Protocol: fetch, list, search
and sync tools backed by an incremental reconciliation engine.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseMode)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"config file (default ~/.perch/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false,
		"enable verbose logging")
}

// Execute runs the root command with the given build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
