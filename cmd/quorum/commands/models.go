package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/quorum/internal/printer"
)

var modelsConfig string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model roster with learned performance profiles",
	Long: `List every configured model with its current profile: per-domain
expertise, reliability weight, learned success rate, and latency estimate.

When a redis section is configured, learned values restored from previous
runs are included.`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsConfig, "config", "c", "quorum.yml", "Path to configuration file")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(modelsConfig)
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

	profiles := reg.Profiles()
	printer.Info("%-16s %-11s %-12s %-10s %s\n", "MODEL", "RELIABILITY", "SUCCESS RATE", "LATENCY", "EXPERTISE")
	for _, p := range profiles {
		printer.Info("%-16s %-11.2f %-12.2f %-10s %s\n",
			p.ID, p.ReliabilityWeight, p.SuccessRate,
			p.AvgLatency.Round(time.Millisecond), formatExpertise(p.DomainExpertise))
	}
	return nil
}

// formatExpertise renders a domain->score map in stable alphabetical order.
func formatExpertise(expertise map[string]float64) string {
	domains := make([]string, 0, len(expertise))
	for d := range expertise {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	out := ""
	for i, d := range domains {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%.2f", d, expertise[d])
	}
	return out
}
