package hooks

import (
	"context"
	"time"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// Verdicts stored in a Record.
const (
	VerdictAllow   = "allow"
	VerdictBlock   = "block"
	VerdictTimeout = "timeout"
	VerdictError   = "error"
)

// Record is the audit entry for one hook run.
type Record struct {
	SessionID string
	Skill     string
	Event     skills.HookEvent
	Tool      string
	Command   string
	ExitCode  int
	Verdict   string
	Reason    string
	Duration  time.Duration
}

// Recorder receives a Record for every hook run.
type Recorder interface {
	RecordHook(ctx context.Context, rec Record) error
}
