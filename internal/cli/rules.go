package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/arbiter-systems/qagov/internal/rules"
	"github.com/arbiter-systems/qagov/pkg/output"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show governance priorities",
	Long:  "Load the governance rules file and print the explicit (metric, agent) priority weights.",
	RunE:  runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	loaded := rules.Load(cfg.Rules.Path, nil)
	priorities := loaded.Priorities()

	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "json":
		return output.JSON(priorities)
	case "yaml":
		return output.YAML(priorities)
	}

	if len(priorities) == 0 {
		output.Info("No explicit governance rules loaded (path: %s); all priorities default to %.1f",
			cfg.Rules.Path, rules.DefaultPriority)
		return nil
	}

	metricNames := make([]string, 0, len(priorities))
	for metric := range priorities {
		metricNames = append(metricNames, metric)
	}
	sort.Strings(metricNames)

	table := output.NewTable([]string{"Metric", "Agent", "Priority"})
	for _, metric := range metricNames {
		agents := make([]string, 0, len(priorities[metric]))
		for agent := range priorities[metric] {
			agents = append(agents, agent)
		}
		sort.Strings(agents)
		for _, agent := range agents {
			table.AddRow([]string{metric, agent, fmt.Sprintf("%.2f", priorities[metric][agent])})
		}
	}
	table.Render()
	return nil
}
