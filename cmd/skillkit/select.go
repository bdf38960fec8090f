package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/selector"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var selectCmd = &cobra.Command{
	Use:   "select <request...>",
	Short: "Show which skills a request would activate",
	Long: `Rank the registered skills against a request by literal overlap with their
trigger descriptions. With --explain every skill is listed with its score and
the terms that matched, including those below the threshold.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		explain, _ := cmd.Flags().GetBool("explain")
		asJSON, _ := cmd.Flags().GetBool("json")
		request := strings.Join(args, " ")

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "Failed to initialize skills")
			os.Exit(1)
		}
		defer rt.Close()

		var matches []selector.Match
		if explain {
			matches = rt.selector.Explain(request)
		} else {
			matches = rt.selector.Select(ctx, request)
		}

		if asJSON {
			if matches == nil {
				matches = []selector.Match{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(matches)
			return
		}

		if len(matches) == 0 {
			presenter.Info("No skills match the request")
			return
		}
		printMatches(matches)
	},
}

func printMatches(matches []selector.Match) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tNAME\tMATCHED TERMS")
	for _, m := range matches {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\n", m.Score, m.Name, strings.Join(m.Terms, ", "))
	}
	tw.Flush()
}

func init() {
	selectCmd.Flags().Bool("explain", false, "Score every skill, including non-matches")
	selectCmd.Flags().Bool("json", false, "Output as JSON")
	selectCmd.Flags().Float64("min-score", 0.2, "Minimum score for a skill to be selected")
	selectCmd.Flags().Int("max-results", 0, "Maximum number of skills to select (0 for all)")

	viper.BindPFlag("selector.min_score", selectCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("selector.max_results", selectCmd.Flags().Lookup("max-results"))
}
