package hooks

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

const genericBlockReason = "blocked by hook"

// Dispatcher runs the hooks of a session around tool calls.
type Dispatcher struct {
	session    Session
	builtins   *BuiltinRegistry
	recorder   Recorder
	timeout    time.Duration
	maxTimeout time.Duration
	matchers   matcherCache
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the timeout for bindings that do not declare one.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithMaxTimeout caps every hook timeout.
func WithMaxTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.maxTimeout = timeout }
}

// WithBuiltins sets the handlers used for "builtin:" commands.
func WithBuiltins(r *BuiltinRegistry) Option {
	return func(d *Dispatcher) { d.builtins = r }
}

// WithRecorder sends a Record of every hook run to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// FromConfig applies hooks.timeout and hooks.max_timeout.
func FromConfig() Option {
	return func(d *Dispatcher) {
		if viper.IsSet("hooks.timeout") {
			d.timeout = viper.GetDuration("hooks.timeout")
		}
		if viper.IsSet("hooks.max_timeout") {
			d.maxTimeout = viper.GetDuration("hooks.max_timeout")
		}
	}
}

// NewDispatcher returns a dispatcher for session.
func NewDispatcher(session Session, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		session:    session,
		builtins:   NewBuiltinRegistry(),
		timeout:    DefaultTimeout,
		maxTimeout: DefaultMaxTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs PreToolUse hooks, the tool when no hook blocks it, and then
// PostToolUse hooks. A blocked call returns a *BlockedError and the tool is
// not invoked. An error from tool is returned after post hooks have run.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall, tool ToolFunc) (outcome *Outcome, err error) {
	ctx, span := telemetry.StartSpan(ctx, "hooks.dispatch", attribute.String("tool.name", call.Name))
	defer func() { telemetry.EndSpan(span, err) }()

	outcome = &Outcome{Call: call}
	outcome.transition(StateIdle)
	outcome.transition(StatePreHookRunning)

	base := d.basePayload(skills.EventPreToolUse)
	base.ToolName = call.Name
	base.ToolInput = call.Input
	base.Preauthorized = call.Preauthorized

	if blocked := d.runBlocking(ctx, outcome, skills.EventPreToolUse, call.Name, base); blocked != nil {
		blocked.Tool = call.Name
		outcome.Blocked = blocked
		outcome.transition(StateBlocked)
		outcome.transition(StateIdle)
		logger.G(ctx).WithField("tool", call.Name).WithField("skill", blocked.Skill).
			WithField("reason", blocked.Reason).Info("tool call blocked by hook")
		return outcome, blocked
	}

	outcome.transition(StateAllowed)
	outcome.transition(StateToolExecuting)
	result, toolErr := tool(ctx, call)
	if toolErr != nil && result.Output == "" {
		result.Output = toolErr.Error()
		if result.ExitCode == 0 {
			result.ExitCode = -1
		}
	}
	outcome.Result = &result

	outcome.transition(StatePostHookRunning)
	post := d.basePayload(skills.EventPostToolUse)
	post.ToolName = call.Name
	post.ToolInput = call.Input
	post.Preauthorized = call.Preauthorized
	post.ToolOutput = result.Output
	post.ToolExitCode = &result.ExitCode
	d.runAdvisory(ctx, outcome, skills.EventPostToolUse, call.Name, post)

	outcome.transition(StateIdle)
	return outcome, toolErr
}

// DispatchPrompt runs UserPromptSubmit hooks. Matchers are ignored because
// there is no tool name; a hook may block the prompt like a PreToolUse hook.
func (d *Dispatcher) DispatchPrompt(ctx context.Context, prompt string) (outcome *Outcome, err error) {
	ctx, span := telemetry.StartSpan(ctx, "hooks.dispatch_prompt")
	defer func() { telemetry.EndSpan(span, err) }()

	outcome = &Outcome{}
	outcome.transition(StateIdle)
	outcome.transition(StatePreHookRunning)

	payload := d.basePayload(skills.EventUserPromptSubmit)
	payload.Prompt = prompt
	if blocked := d.runBlocking(ctx, outcome, skills.EventUserPromptSubmit, "", payload); blocked != nil {
		outcome.Blocked = blocked
		outcome.transition(StateBlocked)
		outcome.transition(StateIdle)
		return outcome, blocked
	}

	outcome.transition(StateAllowed)
	outcome.transition(StateIdle)
	return outcome, nil
}

// DispatchStop runs Stop hooks at the end of an interaction. Their output
// is appended to the session context; failures are logged and ignored.
func (d *Dispatcher) DispatchStop(ctx context.Context) *Outcome {
	ctx, span := telemetry.StartSpan(ctx, "hooks.dispatch_stop")
	defer span.End()

	outcome := &Outcome{}
	outcome.transition(StateIdle)
	d.runAdvisory(ctx, outcome, skills.EventStop, "", d.basePayload(skills.EventStop))
	outcome.transition(StateIdle)
	return outcome
}

func (d *Dispatcher) basePayload(event skills.HookEvent) Payload {
	cwd, _ := os.Getwd()
	return Payload{
		Event:     event,
		SessionID: d.session.ID(),
		CWD:       cwd,
	}
}

// bindings returns the session bindings for event whose matcher selects
// tool. An empty tool name selects every binding.
func (d *Dispatcher) bindings(ctx context.Context, event skills.HookEvent, tool string) []Binding {
	var selected []Binding
	for _, b := range d.session.Bindings(event) {
		if tool == "" {
			selected = append(selected, b)
			continue
		}
		m, err := d.matchers.get(b.Matcher)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skill", b.Skill).Warn("ignoring hook with invalid matcher")
			continue
		}
		if m.Match(tool) {
			selected = append(selected, b)
		}
	}
	return selected
}

// runBlocking runs hooks that can veto the call, stopping at the first block.
func (d *Dispatcher) runBlocking(ctx context.Context, outcome *Outcome, event skills.HookEvent, tool string, base Payload) *BlockedError {
	for _, b := range d.bindings(ctx, event, tool) {
		payload := base
		payload.Skill = b.Skill
		run := d.execute(ctx, b, payload)
		outcome.Runs = append(outcome.Runs, run)

		if run.TimedOut {
			d.logTimeout(ctx, run)
			d.record(ctx, run, tool, VerdictTimeout, "")
			continue
		}

		if resp := run.Response; resp != nil {
			d.appendContext(outcome, run, resp.AdditionalContext)
			if resp.Decision == DecisionBlock {
				reason := firstNonEmpty(resp.Reason, run.Stderr, genericBlockReason)
				d.record(ctx, run, tool, VerdictBlock, reason)
				return &BlockedError{Event: event, Skill: b.Skill, Reason: reason}
			}
			d.record(ctx, run, tool, VerdictAllow, resp.Reason)
			continue
		}

		if run.ExitCode != 0 {
			reason := firstNonEmpty(run.Stderr, run.Stdout, errString(run.Err), genericBlockReason)
			d.record(ctx, run, tool, VerdictBlock, reason)
			return &BlockedError{Event: event, Skill: b.Skill, Reason: reason}
		}

		d.appendContext(outcome, run, run.Stdout)
		d.record(ctx, run, tool, VerdictAllow, "")
	}
	return nil
}

// runAdvisory runs hooks that only contribute context.
func (d *Dispatcher) runAdvisory(ctx context.Context, outcome *Outcome, event skills.HookEvent, tool string, base Payload) {
	for _, b := range d.bindings(ctx, event, tool) {
		payload := base
		payload.Skill = b.Skill
		run := d.execute(ctx, b, payload)
		outcome.Runs = append(outcome.Runs, run)

		switch {
		case run.TimedOut:
			d.logTimeout(ctx, run)
			d.record(ctx, run, tool, VerdictTimeout, "")
			continue
		case run.ExitCode != 0:
			logger.G(ctx).WithField("skill", run.Skill).
				WithField("event", string(event)).
				WithField("exit_code", run.ExitCode).
				WithField("stderr", strings.TrimSpace(run.Stderr)).
				Warn("hook exited with non-zero status")
			d.record(ctx, run, tool, VerdictError, strings.TrimSpace(run.Stderr))
		default:
			d.record(ctx, run, tool, VerdictAllow, "")
		}

		if resp := run.Response; resp != nil {
			d.appendContext(outcome, run, resp.AdditionalContext)
			if resp.Decision == DecisionBlock && resp.Reason != "" {
				d.appendContext(outcome, run, resp.Reason)
			}
			continue
		}
		d.appendContext(outcome, run, run.Stdout)
	}
}

func (d *Dispatcher) appendContext(outcome *Outcome, run Run, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	outcome.Context = append(outcome.Context, text)
	d.session.AppendContext("hook:"+run.Skill+":"+string(run.Event), text)
}

func (d *Dispatcher) logTimeout(ctx context.Context, run Run) {
	logger.G(ctx).WithField("skill", run.Skill).
		WithField("event", string(run.Event)).
		WithField("command", run.Command).
		WithField("duration", run.Duration.String()).
		Warn("hook timed out, continuing without it")
}

func (d *Dispatcher) record(ctx context.Context, run Run, tool, verdict, reason string) {
	if d.recorder == nil {
		return
	}
	err := d.recorder.RecordHook(ctx, Record{
		SessionID: d.session.ID(),
		Skill:     run.Skill,
		Event:     run.Event,
		Tool:      tool,
		Command:   run.Command,
		ExitCode:  run.ExitCode,
		Verdict:   verdict,
		Reason:    reason,
		Duration:  run.Duration,
	})
	if err != nil {
		logger.G(ctx).WithError(err).Debug("failed to record hook run")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
