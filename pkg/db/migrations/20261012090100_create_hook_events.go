package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillkit/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261012090100CreateHookEvents creates hook_events.
func Migration20261012090100CreateHookEvents() db.Migration {
	return db.Migration{
		Version:     20261012090100,
		Description: "Create hook_events table",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS hook_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL,
					skill TEXT NOT NULL,
					event TEXT NOT NULL,
					tool TEXT NOT NULL DEFAULT '',
					command TEXT NOT NULL,
					exit_code INTEGER NOT NULL,
					verdict TEXT NOT NULL,
					reason TEXT NOT NULL DEFAULT '',
					duration_ms INTEGER NOT NULL,
					created_at TEXT NOT NULL
				)`,
				"CREATE INDEX IF NOT EXISTS idx_hook_events_session ON hook_events(session_id)",
				"CREATE INDEX IF NOT EXISTS idx_hook_events_verdict ON hook_events(verdict)",
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrap(err, "failed to create hook_events")
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS hook_events")
			return errors.Wrap(err, "failed to drop hook_events")
		},
	}
}
