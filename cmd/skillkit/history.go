package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jingkaihe/skillkit/pkg/db"
	"github.com/jingkaihe/skillkit/pkg/db/migrations"
	"github.com/jingkaihe/skillkit/pkg/history"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// HistoryConfig holds the filters shared by the history listings
type HistoryConfig struct {
	Session string
	Skill   string
	Verdict string
	Event   string
	Limit   int
	JSON    bool
}

func NewHistoryConfig() *HistoryConfig {
	return &HistoryConfig{Limit: 50}
}

func (c *HistoryConfig) query() history.Query {
	return history.Query{
		SessionID: c.Session,
		Skill:     c.Skill,
		Verdict:   c.Verdict,
		Event:     skills.HookEvent(c.Event),
		Limit:     c.Limit,
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Review recorded skill activations and hook decisions",
	Long: `skillkit records every skill activation and hook run in a local SQLite database
(~/.skillkit/storage.db, or $SKILLKIT_BASE_PATH/storage.db). The history is an
audit trail; sessions are never restored from it.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var historyActivationsCmd = &cobra.Command{
	Use:   "activations",
	Short: "List skill activations, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		config := getHistoryConfigFromFlags(cmd)

		store, err := openHistoryStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Activations(ctx, config.query())
		if err != nil {
			return err
		}
		if config.JSON {
			return writeJSON(records)
		}
		if len(records) == 0 {
			presenter.Info("No activations recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSESSION\tSKILL\tACTION")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.At.Local().Format(time.DateTime), r.SessionID, r.Skill, r.Action)
		}
		return tw.Flush()
	},
}

var historyHooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List hook runs and their verdicts, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		config := getHistoryConfigFromFlags(cmd)

		store, err := openHistoryStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.HookEvents(ctx, config.query())
		if err != nil {
			return err
		}
		if config.JSON {
			return writeJSON(records)
		}
		if len(records) == 0 {
			presenter.Info("No hook runs recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSKILL\tEVENT\tTOOL\tVERDICT\tEXIT\tDURATION\tREASON")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%dms\t%s\n",
				r.At.Local().Format(time.DateTime), r.Skill, r.Event, r.Tool, r.Verdict,
				r.ExitCode, r.DurationMS, truncate(r.Reason, 50))
		}
		return tw.Flush()
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history older than a duration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return errors.New("--older-than must be positive")
		}

		store, err := openHistoryStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Prune(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Removed %d record(s) older than %s", removed, olderThan))
		return nil
	},
}

var historyDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the history database (migrations, status, etc.)`,
}

var historyDBStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the current database migration status, including applied and pending migrations.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, err := historyDBPath()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, path)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.NewMigrationRunner(conn).AppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		appliedMap := make(map[int64]bool, len(applied))
		for _, v := range applied {
			appliedMap[v] = true
		}

		allMigrations := migrations.All()

		presenter.Section("Database Migration Status")
		fmt.Printf("Database: %s\n\n", path)

		appliedCount := 0
		for _, m := range allMigrations {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[✓]"
				appliedCount++
			}
			fmt.Printf("%s %d - %s\n", status, m.Version, m.Description)
		}

		fmt.Printf("\nApplied: %d/%d migrations\n", appliedCount, len(allMigrations))
		return nil
	},
}

var historyDBRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied database migration. Useful for testing or downgrading skillkit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, err := historyDBPath()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, path)
		if err != nil {
			return err
		}
		defer conn.Close()

		runner := db.NewMigrationRunner(conn)
		applied, err := runner.AppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return nil
		}

		lastVersion := applied[len(applied)-1]
		var description string
		for _, m := range migrations.All() {
			if m.Version == lastVersion {
				description = m.Description
				break
			}
		}

		presenter.Info(fmt.Sprintf("Rolling back migration %d: %s", lastVersion, description))
		if err := runner.Rollback(ctx, migrations.All()); err != nil {
			return errors.Wrap(err, "failed to rollback migration")
		}
		presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", lastVersion))
		return nil
	},
}

func init() {
	defaults := NewHistoryConfig()
	for _, c := range []*cobra.Command{historyActivationsCmd, historyHooksCmd} {
		c.Flags().String("session", "", "Only show this session")
		c.Flags().String("skill", "", "Only show this skill")
		c.Flags().Int("limit", defaults.Limit, "Maximum number of records (0 for all)")
		c.Flags().Bool("json", false, "Output as JSON")
	}
	historyHooksCmd.Flags().String("verdict", "", "Only show this verdict (allow, block, timeout, error)")
	historyHooksCmd.Flags().String("event", "", "Only show this event (PreToolUse, PostToolUse, Stop, UserPromptSubmit)")
	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete records older than this")

	historyDBCmd.AddCommand(historyDBStatusCmd)
	historyDBCmd.AddCommand(historyDBRollbackCmd)

	historyCmd.AddCommand(historyActivationsCmd)
	historyCmd.AddCommand(historyHooksCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyDBCmd)
}

func getHistoryConfigFromFlags(cmd *cobra.Command) *HistoryConfig {
	config := NewHistoryConfig()
	if v, err := cmd.Flags().GetString("session"); err == nil {
		config.Session = v
	}
	if v, err := cmd.Flags().GetString("skill"); err == nil {
		config.Skill = v
	}
	if v, err := cmd.Flags().GetString("verdict"); err == nil {
		config.Verdict = v
	}
	if v, err := cmd.Flags().GetString("event"); err == nil {
		config.Event = v
	}
	if v, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = v
	}
	if v, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = v
	}
	return config
}

func historyDBPath() (string, error) {
	if p := viper.GetString("history.path"); p != "" {
		return p, nil
	}
	return db.DefaultDBPath()
}

func openHistoryStore(ctx context.Context) (*history.Store, error) {
	path, err := historyDBPath()
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, path)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
