package main

import (
	"fmt"
	"os"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <skill>",
	Short: "Print a skill's instructions",
	Long: `Load a skill's body and list the files it links to directly. Pass --ref to
print one of those files instead. Only direct references can be read; links
inside a reference are listed but never followed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		name := args[0]
		ref, _ := cmd.Flags().GetString("ref")

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "Failed to initialize skills")
			os.Exit(1)
		}
		defer rt.Close()
		rt.openHistory(ctx)

		sess := rt.newSession()
		body, err := sess.Activate(ctx, name)
		if err != nil {
			presenter.Error(err, fmt.Sprintf("Failed to load skill '%s'", name))
			os.Exit(1)
		}

		if ref != "" {
			doc, err := sess.ResolveReference(ctx, name, ref)
			if err != nil {
				presenter.Error(err, fmt.Sprintf("Failed to read reference '%s'", ref))
				os.Exit(1)
			}
			fmt.Print(doc.Content)
			if len(doc.Links) > 0 {
				presenter.Separator()
				presenter.Info(fmt.Sprintf("Links in %s (not loadable): %v", doc.Path, doc.Links))
			}
			return
		}

		fmt.Print(body.Content)
		if len(body.References) > 0 {
			presenter.Section("References")
			for _, r := range body.References {
				fmt.Printf("  %s\n", r)
			}
		}
	},
}

func init() {
	loadCmd.Flags().String("ref", "", "Print a file the skill links to directly")
}
