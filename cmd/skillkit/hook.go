package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/hooks"
	"github.com/jingkaihe/skillkit/pkg/hooks/builtin"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Inspect skill hooks",
	Long:  `Commands for inspecting the lifecycle hooks skills declare.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var hookSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of structured hook output",
	Long: `A hook that prints a single JSON object matching this schema controls the
tool call: "block" stops a PreToolUse call and "additionalContext" is appended to
the session. Any other output is treated as plain text.`,
	Run: func(_ *cobra.Command, _ []string) {
		schema, err := hooks.ResponseSchema()
		if err != nil {
			presenter.Error(err, "Failed to generate schema")
			os.Exit(1)
		}
		fmt.Println(string(schema))
	},
}

var hookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the hooks declared by registered skills",
	Run: func(cmd *cobra.Command, _ []string) {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			presenter.Error(err, "Failed to initialize skills")
			os.Exit(1)
		}
		defer rt.Close()

		builtins := builtin.Registry()
		found := false
		for _, d := range rt.catalog.All() {
			for _, event := range skills.KnownHookEvents {
				for _, b := range d.HookBindings(event) {
					found = true
					matcher := b.Matcher
					if matcher == "" {
						matcher = "*"
					}
					line := fmt.Sprintf("%s  %s  %s  %s", d.Name, event, matcher, b.Command)
					if strings.HasPrefix(b.Command, hooks.BuiltinPrefix) {
						if _, ok := builtins.Get(b.Command); !ok {
							presenter.Warning(line + "  (unknown builtin)")
							continue
						}
					}
					fmt.Println(line)
				}
			}
		}
		if !found {
			presenter.Info("No hooks declared by registered skills")
		}
	},
}

func init() {
	hookCmd.AddCommand(hookSchemaCmd)
	hookCmd.AddCommand(hookListCmd)
}
