package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/quorum/internal/printer"
)

var forceInit bool

const starterConfig = `version: "1.0"

# Model roster. Order is the tie-breaking order for candidate selection.
models:
  - id: gpt-large
    expertise:
      general: 0.8
      technical: 0.9
    reliability: 0.9
    avg_latency_ms: 1200
  - id: claude-fast
    expertise:
      general: 0.7
    reliability: 0.8
    avg_latency_ms: 400
  - id: local-small
    expertise:
      general: 0.5
    reliability: 0.6
    avg_latency_ms: 150

# router:
#   min_quality_threshold: 0.5
#   max_fallback_attempts: 2
#   max_ensemble_size: 4
#   call_timeout_seconds: 30

# protocols:
#   draft_models: 3
#   consensus_rounds: 2
#   max_refine_iterations: 3
#   convergence_similarity: 0.8

# orchestrator:
#   loopback_max_retries: 1
#   max_correctable_claims: 3
#   verification_threshold: 0.6

# Uncomment to persist learned model profiles across restarts.
# redis:
#   addr: localhost:6379
#   instance: default
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter quorum.yml in the current directory",
	Long: `Create a starter quorum.yml with an example model roster and the
tunable sections commented out at their defaults.

Use --force to overwrite an existing quorum.yml.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing quorum.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if _, err := os.Stat("quorum.yml"); err == nil {
			return printer.Error(
				"quorum.yml already exists",
				"Refusing to overwrite the existing configuration.",
				[]string{"Re-run with --force to overwrite it"},
			)
		}
	}

	if err := os.WriteFile("quorum.yml", []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write quorum.yml: %w", err)
	}

	printer.Success("Created quorum.yml\n")
	printer.Info("\nNext steps:\n")
	printer.Info("  • Edit the model roster to match your providers\n")
	printer.Info("  • Ask a question: quorum ask \"your question\"\n")
	printer.Info("  • Inspect the roster: quorum models\n")
	return nil
}
