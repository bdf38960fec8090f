package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jingkaihe/skillkit/pkg/plugins"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Manage skill plugins",
	Long: `Install, list, and remove plugins. A plugin is a GitHub repository whose
skills are registered as "org/repo/<skill>".`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var pluginAddCmd = &cobra.Command{
	Use:   "add <repo>[@ref]...",
	Short: "Install plugins from GitHub repositories",
	Long: `Install plugins from one or more GitHub repositories. Every directory in the
repository holding a SKILL.md is validated and installed under
.skillkit/plugins/<org>/<repo>/skills/. Invalid skills are skipped.

Examples:
  skillkit plugin add acme/toolkit              # Install all skills from repo
  skillkit plugin add acme/one acme/two         # Install from multiple repos
  skillkit plugin add acme/toolkit@v1.0.0       # Install from specific tag
  skillkit plugin add acme/toolkit -g           # Install globally
  skillkit plugin add acme/toolkit --force      # Overwrite an existing install
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		force, _ := cmd.Flags().GetBool("force")

		installer, err := plugins.NewInstaller(
			plugins.WithGlobal(global),
			plugins.WithForce(force),
		)
		if err != nil {
			return err
		}

		for _, arg := range args {
			repo, ref := plugins.ParseRepoAndRef(arg)
			presenter.Info(fmt.Sprintf("Installing plugin from %s...", repo))

			result, err := installer.Install(cmd.Context(), repo, ref)
			if err != nil {
				return errors.Wrapf(err, "failed to install from %s", repo)
			}

			presenter.Success(fmt.Sprintf("Installed skills: %s", strings.Join(result.Skills, ", ")))
			skipped := make([]string, 0, len(result.Skipped))
			for name := range result.Skipped {
				skipped = append(skipped, name)
			}
			sort.Strings(skipped)
			for _, name := range skipped {
				presenter.Warning(fmt.Sprintf("Skipped '%s': %s", name, result.Skipped[name]))
			}
			presenter.Info(fmt.Sprintf("Plugin '%s' installed to %s", result.Plugin, result.Path))
		}

		return nil
	},
}

type pluginEntry struct {
	plugin   plugins.InstalledPlugin
	location string
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all installed plugins",
	Long: `List installed plugins with their skills, from both the local
(.skillkit/plugins/) and global (~/.skillkit/plugins/) directories.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		var entries []pluginEntry
		for _, global := range []bool{false, true} {
			remover, err := plugins.NewRemover(plugins.WithGlobal(global))
			if err != nil {
				return err
			}
			installed, err := remover.ListPlugins()
			if err != nil {
				return errors.Wrap(err, "failed to list plugins")
			}
			location := "local"
			if global {
				location = "global"
			}
			for _, p := range installed {
				entries = append(entries, pluginEntry{plugin: p, location: location})
			}
		}

		if len(entries) == 0 {
			presenter.Info("No plugins installed")
			return nil
		}

		printPlugins(os.Stdout, entries)
		return nil
	},
}

func printPlugins(w io.Writer, entries []pluginEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].plugin.Name < entries[j].plugin.Name
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLOCATION\tSKILLS")
	fmt.Fprintln(tw, "----\t--------\t------")
	for _, entry := range entries {
		p := entry.plugin
		skillsStr := fmt.Sprintf("%d", len(p.Skills))
		if len(p.Skills) > 0 && len(p.Skills) <= 3 {
			skillsStr = strings.Join(p.Skills, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, entry.location, skillsStr)
	}
	tw.Flush()
}

var pluginRemoveCmd = &cobra.Command{
	Use:   "remove <org/repo>...",
	Short: "Remove one or more plugins",
	Long: `Remove one or more installed plugins.

Examples:
  skillkit plugin remove acme/toolkit          # Remove a single plugin
  skillkit plugin remove acme/one acme/two     # Remove multiple plugins
  skillkit plugin remove acme/toolkit -g       # Remove from global directory
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")

		remover, err := plugins.NewRemover(plugins.WithGlobal(global))
		if err != nil {
			return err
		}

		var removed []string
		for _, name := range args {
			if err := remover.Remove(name); err != nil {
				return errors.Wrapf(err, "failed to remove %s", name)
			}
			removed = append(removed, name)
		}

		presenter.Success(fmt.Sprintf("Removed plugins: %s", strings.Join(removed, ", ")))
		return nil
	},
}

func init() {
	pluginAddCmd.Flags().BoolP("global", "g", false, "Install to global directory (~/.skillkit/)")
	pluginAddCmd.Flags().Bool("force", false, "Overwrite existing plugins")

	pluginRemoveCmd.Flags().BoolP("global", "g", false, "Remove from global directory")

	pluginCmd.AddCommand(pluginAddCmd)
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginRemoveCmd)
}
