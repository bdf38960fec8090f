package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var budgetCmd = &cobra.Command{
	Use:   "budget [dirs...]",
	Short: "Measure the combined size of skill descriptions",
	Long: `Every registered description is offered to the agent up front, so together they
must fit a character budget (lint.char_budget, default 15000). With no directories
the configured skill directories are measured. Exits with status 1 when over budget.`,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")

		dirs := args
		if len(dirs) == 0 {
			discovery, err := skills.NewDiscovery(
				skills.WithDefaultDirs(),
				skills.WithExtraDirs(viper.GetStringSlice("skills.dirs")...),
			)
			if err != nil {
				presenter.Error(err, "Failed to initialize skill discovery")
				os.Exit(1)
			}
			dirs = discovery.Dirs()
		}

		report := lint.AnalyzeBudget(lint.ScanSkillDirs(dirs...), viper.GetInt("lint.char_budget"))

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(report)
		} else {
			printBudget(report)
		}

		if report.OverBudget {
			os.Exit(1)
		}
	},
}

func printBudget(report *lint.BudgetReport) {
	presenter.Section("Description budget")
	for _, entry := range report.Breakdown {
		presenter.Bar(entry.Name, entry.Chars, report.Budget)
	}
	presenter.Separator()
	presenter.Bar("total", report.Total, report.Budget)
	presenter.Info(fmt.Sprintf("%d skill(s), %.1f%% used, %d characters remaining",
		len(report.Breakdown), report.PercentUsed, report.Remaining))
	for _, f := range report.Findings() {
		presenter.Finding(string(f.Severity), f.Message)
	}
}

func init() {
	budgetCmd.Flags().Int("budget", lint.DefaultCharBudget, "Character budget for all descriptions")
	budgetCmd.Flags().Bool("json", false, "Output as JSON")

	viper.BindPFlag("lint.char_budget", budgetCmd.Flags().Lookup("budget"))
}
