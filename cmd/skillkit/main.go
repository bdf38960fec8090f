package main

import (
	"context"
	"os"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLKIT")
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("selector.min_score", 0.2)
	viper.SetDefault("lint.char_budget", 15000)
	viper.SetDefault("history.enabled", true)

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillkit")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "skillkit",
	Short: "Discover, select, load and lint agent skills",
	Long: `skillkit manages Markdown skill documents (SKILL.md with YAML front matter).

It discovers skills from ./.skillkit/skills, ~/.skillkit/skills and installed plugins,
selects the ones relevant to a request, loads their instructions with progressive
disclosure and runs the lifecycle hooks they declare around tool calls.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Get().Short(),
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return logger.Configure(viper.GetString("log_level"), viper.GetString("log_format"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	// Add global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")
	rootCmd.PersistentFlags().StringSlice("skills-dir", nil, "Additional skill directories, searched after the defaults")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("skills.dirs", rootCmd.PersistentFlags().Lookup("skills-dir"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(listCmd))
	rootCmd.AddCommand(withTracing(selectCmd))
	rootCmd.AddCommand(withTracing(loadCmd))
	rootCmd.AddCommand(withTracing(execCmd))
	rootCmd.AddCommand(withTracing(lintCmd))
	rootCmd.AddCommand(withTracing(budgetCmd))
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(pluginCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	ctx := context.Background()
	shutdown, err := initTracing(ctx)
	if err != nil {
		presenter.Error(err, "Failed to initialize tracing")
		os.Exit(1)
	}
	defer shutdown(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "Command failed")
		shutdown(ctx)
		os.Exit(1)
	}
}
