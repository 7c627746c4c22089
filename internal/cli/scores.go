package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/arbiter-systems/qagov/internal/trust"
	"github.com/arbiter-systems/qagov/pkg/output"
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the trust ledger",
	Long:  "Load the trust ledger (snapshot plus journal) from disk and print current agent scores.",
	RunE:  runScores,
}

func init() {
	rootCmd.AddCommand(scoresCmd)
}

func runScores(cmd *cobra.Command, args []string) error {
	engine, err := trust.New(trust.Config{
		StorageDir:    cfg.Trust.StorageDir,
		Minimum:       cfg.Trust.Minimum,
		Maximum:       cfg.Trust.Maximum,
		FlushInterval: cfg.Trust.FlushInterval,
		AgentDefaults: cfg.Trust.AgentDefaults,
	}, nil)
	if err != nil {
		return err
	}

	scores := engine.Scores()

	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "json":
		return output.JSON(scores)
	case "yaml":
		return output.YAML(scores)
	}

	if len(scores) == 0 {
		output.Info("Trust ledger is empty")
		return nil
	}

	agents := make([]string, 0, len(scores))
	for agent := range scores {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	table := output.NewTable([]string{"Agent", "Trust Score"})
	for _, agent := range agents {
		table.AddRow([]string{agent, fmt.Sprintf("%.4f", scores[agent])})
	}
	table.Render()
	return nil
}
