package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/quorum/internal/orchestrator"
	"github.com/dyluth/quorum/internal/printer"
)

var (
	askConfig   string
	askMode     string
	askProtocol string
	askModels   []string
	askVerbose  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a question through the orchestration pipeline",
	Long: `Ask a question through the full pipeline: the planner selects a
reasoning protocol, the router picks models, the protocol executes, and
the result is fact-checked with bounded loop-back recovery on failure.

Examples:
  # Quick single-model answer
  quorum ask --mode speed "What is the capital of France?"

  # Accuracy mode with ensemble and verification
  quorum ask "Compare the economic and social impacts of remote work"

  # Force a protocol and specific models
  quorum ask --protocol consensus --models gpt-large,claude-fast "Is P equal to NP?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askConfig, "config", "c", "quorum.yml", "Path to configuration file")
	askCmd.Flags().StringVarP(&askMode, "mode", "m", "", "Routing mode: speed or accuracy (default accuracy)")
	askCmd.Flags().StringVarP(&askProtocol, "protocol", "p", "", "Force a reasoning protocol")
	askCmd.Flags().StringSliceVar(&askModels, "models", nil, "Preferred model IDs, tried first")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Show annotations and intermediate artifacts")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(askConfig)
	if err != nil {
		return err
	}

	reg, closer, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	engine := buildEngine(cfg, reg)
	answer := engine.Orchestrate(ctx, orchestrator.Request{
		Query:             args[0],
		Mode:              askMode,
		PreferredProtocol: askProtocol,
		PreferredModels:   askModels,
	})

	printer.Answer(answer, askVerbose)
	return nil
}
