package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Quorum - Multi-model orchestration and consensus engine",
	Long: `Quorum routes queries across a roster of language models, runs
structured reasoning protocols over their responses (critique, consensus,
hierarchical decomposition), verifies the claims in the result, and
recovers from failed verification with bounded loop-back.

Model performance profiles are learned across queries and can persist in
Redis across restarts.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
