package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered skills",
	Long:  `List every skill in the catalog in registration order, which is also the precedence order of the directories they were found in.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		asJSON, _ := cmd.Flags().GetBool("json")

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "Failed to initialize skills")
			os.Exit(1)
		}
		defer rt.Close()

		all := rt.catalog.All()
		if asJSON {
			type entry struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Directory   string `json:"directory"`
			}
			out := make([]entry, 0, len(all))
			for _, d := range all {
				out = append(out, entry{Name: d.Name, Description: d.Description, Directory: d.Directory})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(out)
			return
		}

		if len(all) == 0 {
			presenter.Info("No skills installed")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDIRECTORY\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t---------\t-----------")
		for _, d := range all {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Directory, truncate(d.Description, 60))
		}
		tw.Flush()
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "Output as JSON")
}
