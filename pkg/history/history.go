// Package history stores skill activations and hook decisions in SQLite so
// they can be reviewed after a session ends. It is an audit trail only;
// sessions are never restored from it.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/jingkaihe/skillkit/pkg/db"
	"github.com/jingkaihe/skillkit/pkg/db/migrations"
	"github.com/jingkaihe/skillkit/pkg/hooks"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/session"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Store is the SQLite-backed history.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ session.Recorder = (*Store)(nil)
	_ hooks.Recorder   = (*Store)(nil)
)

// Open opens the database at dbPath, or the default path when dbPath is
// empty, and applies pending migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = db.DefaultDBPath(); err != nil {
			return nil, err
		}
	}

	conn, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	ran, err := db.NewMigrationRunner(conn).Run(ctx, migrations.All())
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to migrate history database")
	}
	if len(ran) > 0 {
		logger.G(ctx).WithField("versions", ran).WithField("path", dbPath).Debug("applied history migrations")
	}

	return &Store{db: conn, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ActivationRecord is a stored skill activation.
type ActivationRecord struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Skill     string    `db:"skill" json:"skill"`
	Action    string    `db:"action" json:"action"`
	At        time.Time `db:"-" json:"at"`
	CreatedAt string    `db:"created_at" json:"-"`
}

// HookEventRecord is a stored hook run.
type HookEventRecord struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Skill      string    `db:"skill" json:"skill"`
	Event      string    `db:"event" json:"event"`
	Tool       string    `db:"tool" json:"tool"`
	Command    string    `db:"command" json:"command"`
	ExitCode   int       `db:"exit_code" json:"exit_code"`
	Verdict    string    `db:"verdict" json:"verdict"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms"`
	At         time.Time `db:"-" json:"at"`
	CreatedAt  string    `db:"created_at" json:"-"`
}

// RecordActivation implements session.Recorder.
func (s *Store) RecordActivation(ctx context.Context, a session.Activation) error {
	at := a.At
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO skill_activations (session_id, skill, action, created_at) VALUES (?, ?, ?, ?)",
		a.SessionID, a.Skill, a.Action, formatTime(at))
	return errors.Wrap(err, "failed to record activation")
}

// RecordHook implements hooks.Recorder.
func (s *Store) RecordHook(ctx context.Context, rec hooks.Record) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hook_events
			(session_id, skill, event, tool, command, exit_code, verdict, reason, duration_ms, created_at)
		VALUES
			(:session_id, :skill, :event, :tool, :command, :exit_code, :verdict, :reason, :duration_ms, :created_at)`,
		HookEventRecord{
			SessionID:  rec.SessionID,
			Skill:      rec.Skill,
			Event:      string(rec.Event),
			Tool:       rec.Tool,
			Command:    rec.Command,
			ExitCode:   rec.ExitCode,
			Verdict:    rec.Verdict,
			Reason:     rec.Reason,
			DurationMS: rec.Duration.Milliseconds(),
			CreatedAt:  formatTime(s.now()),
		})
	return errors.Wrap(err, "failed to record hook event")
}

// Query filters history listings. Zero values match everything; results
// are newest first.
type Query struct {
	SessionID string
	Skill     string
	Verdict   string
	Event     skills.HookEvent
	Limit     int
}

func (q Query) where(verdicts bool) (string, []any) {
	var conditions []string
	var args []any
	if q.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.Skill != "" {
		conditions = append(conditions, "skill = ?")
		args = append(args, q.Skill)
	}
	if verdicts && q.Verdict != "" {
		conditions = append(conditions, "verdict = ?")
		args = append(args, q.Verdict)
	}
	if verdicts && q.Event != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, string(q.Event))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	clause += " ORDER BY id DESC"
	if q.Limit > 0 {
		clause += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return clause, args
}

// Activations lists stored activations matching q.
func (s *Store) Activations(ctx context.Context, q Query) ([]ActivationRecord, error) {
	clause, args := q.where(false)
	var records []ActivationRecord
	if err := s.db.SelectContext(ctx, &records,
		"SELECT id, session_id, skill, action, created_at FROM skill_activations"+clause, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query activations")
	}
	for i := range records {
		records[i].At = parseTime(records[i].CreatedAt)
	}
	return records, nil
}

// HookEvents lists stored hook runs matching q.
func (s *Store) HookEvents(ctx context.Context, q Query) ([]HookEventRecord, error) {
	clause, args := q.where(true)
	var records []HookEventRecord
	if err := s.db.SelectContext(ctx, &records, `
		SELECT id, session_id, skill, event, tool, command, exit_code, verdict, reason, duration_ms, created_at
		FROM hook_events`+clause, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query hook events")
	}
	for i := range records {
		records[i].At = parseTime(records[i].CreatedAt)
	}
	return records, nil
}

// Prune deletes records created before cutoff and returns how many rows
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"skill_activations", "hook_events"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", formatTime(cutoff))
		if err != nil {
			return 0, errors.Wrapf(err, "failed to prune %s", table)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, tx.Commit()
}

// Fixed width so that string comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
