package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillkit/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261012090000CreateSkillActivations creates skill_activations.
func Migration20261012090000CreateSkillActivations() db.Migration {
	return db.Migration{
		Version:     20261012090000,
		Description: "Create skill_activations table",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS skill_activations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL,
					skill TEXT NOT NULL,
					action TEXT NOT NULL,
					created_at TEXT NOT NULL
				)`,
				"CREATE INDEX IF NOT EXISTS idx_skill_activations_session ON skill_activations(session_id)",
				"CREATE INDEX IF NOT EXISTS idx_skill_activations_skill ON skill_activations(skill)",
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrap(err, "failed to create skill_activations")
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS skill_activations")
			return errors.Wrap(err, "failed to drop skill_activations")
		},
	}
}
