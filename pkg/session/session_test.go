package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillkit/pkg/hooks"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const githubSkill = `---
name: github-navigator
description: Navigate GitHub with the gh CLI. Use when the user says 'check PR'.
allowed-tools: Bash(gh:*) Read
hooks:
  PostToolUse:
    - matcher: Bash
      command: builtin:gh-output-advisor
  Stop:
    - command: echo github done
---

# GitHub Navigator

See [commands](references/commands.md).
`

const reviewSkill = `---
name: code-review
description: Review diffs for bugs and style problems.
allowed-tools:
  - Read
  - Bash(git diff:*)
  - Bash(
hooks:
  Stop:
    - command: echo review done
---

Review carefully.
`

func newLoader(t *testing.T) *skills.Loader {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{"github-navigator": githubSkill, "code-review": reviewSkill} {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "references"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, skills.SkillFileName), []byte(content), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "github-navigator", "references", "commands.md"), []byte("gh pr list\n"), 0o644))

	discovery, err := skills.NewDiscovery(skills.WithSkillDirs(root))
	require.NoError(t, err)
	registry := skills.NewRegistry()
	report := discovery.Populate(context.Background(), registry)
	require.NoError(t, report.Err())
	return skills.NewLoader(registry.Snapshot())
}

type activationLog struct {
	events []Activation
}

func (l *activationLog) RecordActivation(_ context.Context, a Activation) error {
	l.events = append(l.events, a)
	return nil
}

func TestActivateAndDeactivate(t *testing.T) {
	log := &activationLog{}
	s := New(newLoader(t), WithRecorder(log))
	ctx := context.Background()
	assert.NotEmpty(t, s.ID())

	body, err := s.Activate(ctx, "github-navigator")
	require.NoError(t, err)
	assert.Contains(t, body.Content, "# GitHub Navigator")

	_, err = s.Activate(ctx, "code-review")
	require.NoError(t, err)

	again, err := s.Activate(ctx, "github-navigator")
	require.NoError(t, err)
	assert.Same(t, body, again)
	assert.Equal(t, []string{"github-navigator", "code-review"}, s.Active())

	_, err = s.Activate(ctx, "unknown")
	assert.ErrorIs(t, err, skills.ErrNotFound)

	require.NoError(t, s.Deactivate(ctx, "github-navigator"))
	assert.Equal(t, []string{"code-review"}, s.Active())
	assert.ErrorIs(t, s.Deactivate(ctx, "github-navigator"), skills.ErrNotFound)

	require.Len(t, log.events, 3)
	assert.Equal(t, ActionActivate, log.events[0].Action)
	assert.Equal(t, "code-review", log.events[1].Skill)
	assert.Equal(t, ActionDeactivate, log.events[2].Action)
	assert.Equal(t, s.ID(), log.events[2].SessionID)
}

func TestWithID(t *testing.T) {
	s := New(newLoader(t), WithID("fixed"))
	assert.Equal(t, "fixed", s.ID())
}

func TestBindingsFollowActivationOrder(t *testing.T) {
	s := New(newLoader(t))
	ctx := context.Background()
	_, err := s.Activate(ctx, "code-review")
	require.NoError(t, err)
	_, err = s.Activate(ctx, "github-navigator")
	require.NoError(t, err)

	stop := s.Bindings(skills.EventStop)
	require.Len(t, stop, 2)
	assert.Equal(t, "code-review", stop[0].Skill)
	assert.Equal(t, "echo review done", stop[0].Command)
	assert.Equal(t, "github-navigator", stop[1].Skill)
	assert.NotEmpty(t, stop[1].Directory)

	post := s.Bindings(skills.EventPostToolUse)
	require.Len(t, post, 1)
	assert.Equal(t, "Bash", post[0].Matcher)

	assert.Empty(t, s.Bindings(skills.EventPreToolUse))
}

func TestContextLog(t *testing.T) {
	s := New(newLoader(t))
	s.AppendContext("hook:a:Stop", "first")
	s.AppendContext("user", "second")

	entries := s.Context()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Text)
	assert.Equal(t, "user", entries[1].Source)
	assert.False(t, entries[1].At.IsZero())
}

func TestPermissionsAreUnion(t *testing.T) {
	s := New(newLoader(t))
	ctx := context.Background()

	assert.False(t, s.IsToolPreauthorized("Read", ""))

	_, err := s.Activate(ctx, "github-navigator")
	require.NoError(t, err)
	assert.True(t, s.IsToolPreauthorized("Bash", "gh pr list"))
	assert.False(t, s.IsToolPreauthorized("Bash", "git diff HEAD"))

	_, err = s.Activate(ctx, "code-review")
	require.NoError(t, err)
	assert.True(t, s.IsToolPreauthorized("Bash", "gh pr list"))
	assert.True(t, s.IsToolPreauthorized("Bash", "git diff HEAD"))
	assert.True(t, s.IsToolPreauthorized("Read", "README.md"))
	assert.False(t, s.IsToolPreauthorized("Write", "README.md"))

	// malformed "Bash(" entry is dropped
	assert.Equal(t, []string{"Bash(gh:*)", "Read", "Bash(git diff:*)"}, s.AllowedTools())
}

func TestResolveReferenceRequiresActiveSkill(t *testing.T) {
	s := New(newLoader(t))
	ctx := context.Background()

	_, err := s.ResolveReference(ctx, "github-navigator", "references/commands.md")
	assert.ErrorIs(t, err, skills.ErrNotFound)

	_, err = s.Activate(ctx, "github-navigator")
	require.NoError(t, err)
	doc, err := s.ResolveReference(ctx, "github-navigator", "references/commands.md")
	require.NoError(t, err)
	assert.Equal(t, "gh pr list\n", doc.Content)
}

func TestSessionDrivesDispatcher(t *testing.T) {
	s := New(newLoader(t))
	ctx := context.Background()
	_, err := s.Activate(ctx, "github-navigator")
	require.NoError(t, err)

	d := hooks.NewDispatcher(s, hooks.WithBuiltins(hooks.NewBuiltinRegistry(advisor{})))
	_, err = d.Dispatch(ctx, hooks.ToolCall{Name: "Bash", Input: "gh pr view 1"}, func(context.Context, hooks.ToolCall) (hooks.ToolResult, error) {
		return hooks.ToolResult{Output: "HTTP 404", ExitCode: 1}, nil
	})
	require.NoError(t, err)

	outcome := d.DispatchStop(ctx)
	assert.Equal(t, []string{"github done\n"}, outcome.Context)

	entries := s.Context()
	require.Len(t, entries, 2)
	assert.Equal(t, "hook:github-navigator:PostToolUse", entries[0].Source)
	assert.Equal(t, "advice for HTTP 404", entries[0].Text)
	assert.Equal(t, "hook:github-navigator:Stop", entries[1].Source)
}

type advisor struct{}

func (advisor) Name() string { return "gh-output-advisor" }

func (advisor) Handle(_ context.Context, p hooks.Payload) (string, error) {
	return "advice for " + p.ToolOutput, nil
}
