// Package hooks runs the lifecycle hooks that active skills bind to tool
// calls, prompts and session end. A PreToolUse hook can block a tool call;
// every other hook only adds context.
package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// State is a step of the per-call dispatch state machine.
type State string

// Dispatch states. A call moves Idle -> PreHookRunning -> Allowed or
// Blocked; an allowed call continues to ToolExecuting -> PostHookRunning
// and every dispatch ends back at Idle.
const (
	StateIdle            State = "idle"
	StatePreHookRunning  State = "pre_hook_running"
	StateAllowed         State = "allowed"
	StateBlocked         State = "blocked"
	StateToolExecuting   State = "tool_executing"
	StatePostHookRunning State = "post_hook_running"
)

// Timeout bounds for hook commands.
const (
	DefaultTimeout    = time.Second
	DefaultMaxTimeout = 30 * time.Second
)

// Binding is a hook declared by one skill.
type Binding struct {
	Skill     string
	Directory string
	skills.HookBinding
}

// Session is what the dispatcher needs from the interaction it serves.
type Session interface {
	ID() string
	Bindings(event skills.HookEvent) []Binding
	AppendContext(source, text string)
}

// ToolCall is a request to run a tool.
type ToolCall struct {
	Name  string `json:"name"`
	Input string `json:"input"`
	// Preauthorized is set when an active skill's allowed-tools covers the
	// call. Hooks see it as TOOL_PREAUTHORIZED.
	Preauthorized bool `json:"preauthorized,omitempty"`
}

// ToolResult is what a tool produced.
type ToolResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// ToolFunc executes a tool call.
type ToolFunc func(ctx context.Context, call ToolCall) (ToolResult, error)

// BlockedError is returned when a PreToolUse or UserPromptSubmit hook
// refuses to let the call proceed.
type BlockedError struct {
	Event  skills.HookEvent
	Tool   string
	Skill  string
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s blocked by skill '%s': %s", e.Event, e.Skill, e.Reason)
	}
	return fmt.Sprintf("tool '%s' blocked by skill '%s': %s", e.Tool, e.Skill, e.Reason)
}

// Outcome describes one dispatch.
type Outcome struct {
	Call        ToolCall
	Transitions []State
	Blocked     *BlockedError
	Result      *ToolResult
	// Context holds the text appended to the session, in order.
	Context []string
	Runs    []Run
}

// State returns the last state the dispatch reached.
func (o *Outcome) State() State {
	if len(o.Transitions) == 0 {
		return StateIdle
	}
	return o.Transitions[len(o.Transitions)-1]
}

func (o *Outcome) transition(s State) {
	o.Transitions = append(o.Transitions, s)
}

// Run is the result of executing a single hook.
type Run struct {
	Skill    string
	Event    skills.HookEvent
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
	Response *Response
	Err      error
}
