package hooks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeSession struct {
	mu       sync.Mutex
	bindings map[skills.HookEvent][]Binding
	context  []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{bindings: map[skills.HookEvent][]Binding{}}
}

func (s *fakeSession) ID() string { return "session-1" }

func (s *fakeSession) Bindings(event skills.HookEvent) []Binding { return s.bindings[event] }

func (s *fakeSession) AppendContext(_ string, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = append(s.context, text)
}

func (s *fakeSession) bind(event skills.HookEvent, skill, matcher, command string, timeout time.Duration) {
	s.bindings[event] = append(s.bindings[event], Binding{
		Skill:       skill,
		HookBinding: skills.HookBinding{Matcher: matcher, Command: command, Timeout: timeout},
	})
}

type countingTool struct {
	calls  int
	result ToolResult
	err    error
}

func (c *countingTool) run(_ context.Context, _ ToolCall) (ToolResult, error) {
	c.calls++
	return c.result, c.err
}

type memoryRecorder struct {
	records []Record
}

func (m *memoryRecorder) RecordHook(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

func TestDispatchWithoutHooks(t *testing.T) {
	tool := &countingTool{result: ToolResult{Output: "done"}}
	d := NewDispatcher(newFakeSession())

	outcome, err := d.Dispatch(context.Background(), ToolCall{Name: "Bash", Input: "ls"}, tool.run)
	require.NoError(t, err)
	assert.Equal(t, 1, tool.calls)
	assert.Equal(t, "done", outcome.Result.Output)
	assert.Equal(t, []State{
		StateIdle, StatePreHookRunning, StateAllowed, StateToolExecuting, StatePostHookRunning, StateIdle,
	}, outcome.Transitions)
	assert.Equal(t, StateIdle, outcome.State())
}

func TestAlwaysFailingPreHookBlocksEveryCall(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPreToolUse, "github-navigator", "Bash", `echo "gh writes are not allowed" >&2; exit 2`, 0)
	tool := &countingTool{}
	d := NewDispatcher(session)

	for i := 0; i < 3; i++ {
		outcome, err := d.Dispatch(context.Background(), ToolCall{Name: "Bash", Input: "gh pr merge 1"}, tool.run)
		require.Error(t, err)

		var blocked *BlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, "gh writes are not allowed", blocked.Reason)
		assert.Equal(t, "github-navigator", blocked.Skill)
		assert.Equal(t, "Bash", blocked.Tool)
		assert.Same(t, blocked, outcome.Blocked)
		assert.Nil(t, outcome.Result)
		assert.Equal(t, []State{StateIdle, StatePreHookRunning, StateBlocked, StateIdle}, outcome.Transitions)
	}
	assert.Zero(t, tool.calls)
}

func TestPreHookBlockReasons(t *testing.T) {
	tests := []struct {
		name    string
		command string
		reason  string
	}{
		{"structured reason", `echo '{"decision":"block","reason":"dangerous command"}'`, "dangerous command"},
		{"structured without reason falls back to stderr", `echo '{"decision":"block"}'; echo oops >&2`, "oops"},
		{"stdout when stderr is empty", `echo "refused"; exit 1`, "refused"},
		{"generic when silent", `exit 1`, genericBlockReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession()
			session.bind(skills.EventPreToolUse, "guard", "*", tt.command, 0)
			tool := &countingTool{}

			_, err := NewDispatcher(session).Dispatch(context.Background(), ToolCall{Name: "Write"}, tool.run)
			var blocked *BlockedError
			require.ErrorAs(t, err, &blocked)
			assert.Equal(t, tt.reason, blocked.Reason)
			assert.Zero(t, tool.calls)
		})
	}
}

func TestStructuredContinueAddsContext(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPreToolUse, "guard", "Bash", `echo '{"decision":"continue","additionalContext":"remember to use --json"}'`, 0)
	tool := &countingTool{result: ToolResult{Output: "ok"}}

	outcome, err := NewDispatcher(session).Dispatch(context.Background(), ToolCall{Name: "Bash"}, tool.run)
	require.NoError(t, err)
	assert.Equal(t, 1, tool.calls)
	assert.Equal(t, []string{"remember to use --json"}, outcome.Context)
	assert.Equal(t, []string{"remember to use --json"}, session.context)
	require.Len(t, outcome.Runs, 1)
	require.NotNil(t, outcome.Runs[0].Response)
	assert.Equal(t, DecisionContinue, outcome.Runs[0].Response.Decision)
}

func TestMatcherSelectsHooks(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPreToolUse, "guard", "Write|Edit", "exit 1", 0)
	tool := &countingTool{}
	d := NewDispatcher(session)

	_, err := d.Dispatch(context.Background(), ToolCall{Name: "Read"}, tool.run)
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), ToolCall{Name: "Edit"}, tool.run)
	require.Error(t, err)
	assert.Equal(t, 1, tool.calls)
}

func TestPostHookReceivesToolResult(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPostToolUse, "reporter", "Bash", `echo "tool=$TOOL_NAME code=$TOOL_EXIT_CODE out=$TOOL_OUTPUT skill=$SKILL_NAME session=$SESSION_ID"`, 0)
	tool := &countingTool{result: ToolResult{Output: "hello", ExitCode: 3}}

	outcome, err := NewDispatcher(session).Dispatch(context.Background(), ToolCall{Name: "Bash", Input: "echo hello"}, tool.run)
	require.NoError(t, err)
	require.Len(t, outcome.Context, 1)
	assert.Equal(t, "tool=Bash code=3 out=hello skill=reporter session=session-1\n", outcome.Context[0])
}

func TestPreHookSeesPreauthorization(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPreToolUse, "guard", "Bash",
		`[ "$TOOL_PREAUTHORIZED" = true ] || { echo "not pre-authorized" >&2; exit 2; }`, 0)
	d := NewDispatcher(session)

	tool := &countingTool{}
	_, err := d.Dispatch(context.Background(), ToolCall{Name: "Bash", Input: "gh pr list", Preauthorized: true}, tool.run)
	require.NoError(t, err)
	assert.Equal(t, 1, tool.calls)

	_, err = d.Dispatch(context.Background(), ToolCall{Name: "Bash", Input: "rm -rf build"}, tool.run)
	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, "not pre-authorized", blocked.Reason)
	assert.Equal(t, 1, tool.calls)
}

func TestHookReceivesJSONPayload(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPostToolUse, "reporter", "*", "cat", 0)
	tool := &countingTool{result: ToolResult{Output: "42"}}

	outcome, err := NewDispatcher(session).Dispatch(context.Background(), ToolCall{Name: "Calc", Input: "6*7"}, tool.run)
	require.NoError(t, err)
	require.Len(t, outcome.Context, 1)

	payload := gjson.Parse(outcome.Context[0])
	assert.Equal(t, "PostToolUse", payload.Get("event").String())
	assert.Equal(t, "Calc", payload.Get("tool_name").String())
	assert.Equal(t, "6*7", payload.Get("tool_input").String())
	assert.Equal(t, "42", payload.Get("tool_output").String())
	assert.Equal(t, int64(0), payload.Get("tool_exit_code").Int())
	assert.Equal(t, "reporter", payload.Get("skill").String())
}

func TestPostHookFailureIsIgnored(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPostToolUse, "flaky", "*", `echo partial; exit 1`, 0)
	tool := &countingTool{result: ToolResult{Output: "ok"}}
	recorder := &memoryRecorder{}

	outcome, err := NewDispatcher(session, WithRecorder(recorder)).Dispatch(context.Background(), ToolCall{Name: "Bash"}, tool.run)
	require.NoError(t, err)
	assert.Nil(t, outcome.Blocked)
	assert.Equal(t, []string{"partial\n"}, outcome.Context)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, VerdictError, recorder.records[0].Verdict)
	assert.Equal(t, 1, recorder.records[0].ExitCode)
}

func TestToolErrorIsReturnedAfterPostHooks(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPostToolUse, "reporter", "*", `echo "code=$TOOL_EXIT_CODE out=$TOOL_OUTPUT"`, 0)
	boom := errors.New("boom")
	tool := &countingTool{err: boom}

	outcome, err := NewDispatcher(session).Dispatch(context.Background(), ToolCall{Name: "Bash"}, tool.run)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"code=-1 out=boom\n"}, outcome.Context)
	assert.Equal(t, StateIdle, outcome.State())
}

func TestTimedOutHookPassesThrough(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPreToolUse, "slow", "*", "sleep 5; exit 1", 100*time.Millisecond)
	tool := &countingTool{result: ToolResult{Output: "ok"}}
	recorder := &memoryRecorder{}

	start := time.Now()
	outcome, err := NewDispatcher(session, WithRecorder(recorder)).Dispatch(context.Background(), ToolCall{Name: "Bash"}, tool.run)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, 1, tool.calls)

	require.Len(t, outcome.Runs, 1)
	assert.True(t, outcome.Runs[0].TimedOut)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, VerdictTimeout, recorder.records[0].Verdict)
}

func TestBuiltinHooks(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventPostToolUse, "echoer", "*", "builtin:echo", 0)
	tool := &countingTool{result: ToolResult{Output: "hi"}}

	d := NewDispatcher(session, WithBuiltins(NewBuiltinRegistry(echoHandler{})))
	outcome, err := d.Dispatch(context.Background(), ToolCall{Name: "Bash"}, tool.run)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo: hi"}, outcome.Context)

	session.bind(skills.EventPreToolUse, "typo", "*", "builtin:does-not-exist", 0)
	_, err = d.Dispatch(context.Background(), ToolCall{Name: "Bash"}, tool.run)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Contains(t, blocked.Reason, "unknown builtin hook")
}

type echoHandler struct{}

func (echoHandler) Name() string { return "echo" }

func (echoHandler) Handle(_ context.Context, p Payload) (string, error) {
	return "echo: " + p.ToolOutput, nil
}

func TestDispatchPrompt(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventUserPromptSubmit, "filter", "Bash", `case "$USER_PROMPT" in *secret*) echo "no secrets" >&2; exit 1;; esac; echo "prompt ok"`, 0)
	d := NewDispatcher(session)

	outcome, err := d.DispatchPrompt(context.Background(), "list my issues")
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt ok\n"}, outcome.Context)
	assert.Equal(t, []State{StateIdle, StatePreHookRunning, StateAllowed, StateIdle}, outcome.Transitions)

	_, err = d.DispatchPrompt(context.Background(), "print the secret token")
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "no secrets", blocked.Reason)
	assert.Equal(t, skills.EventUserPromptSubmit, blocked.Event)
}

func TestDispatchStop(t *testing.T) {
	session := newFakeSession()
	session.bind(skills.EventStop, "summary", "", `echo "session $SESSION_ID done"`, 0)
	session.bind(skills.EventStop, "broken", "", "exit 3", 0)

	outcome := NewDispatcher(session).DispatchStop(context.Background())
	assert.Equal(t, []string{"session session-1 done\n"}, outcome.Context)
	assert.Len(t, outcome.Runs, 2)
}

func TestTimeoutFor(t *testing.T) {
	d := NewDispatcher(newFakeSession(), WithTimeout(2*time.Second), WithMaxTimeout(5*time.Second))
	assert.Equal(t, 2*time.Second, d.timeoutFor(Binding{}))
	assert.Equal(t, 300*time.Millisecond, d.timeoutFor(Binding{HookBinding: skills.HookBinding{Timeout: 300 * time.Millisecond}}))
	assert.Equal(t, 5*time.Second, d.timeoutFor(Binding{HookBinding: skills.HookBinding{Timeout: time.Minute}}))

	defaults := NewDispatcher(newFakeSession())
	assert.Equal(t, DefaultTimeout, defaults.timeoutFor(Binding{}))
}
