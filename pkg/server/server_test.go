package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillkit/pkg/selector"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "github-navigator", "SKILL.md"), `---
name: github-navigator
description: Browse GitHub repositories, issues and pull requests with the gh CLI.
allowed-tools: Bash(gh:*) Read
hooks:
  PostToolUse:
    - matcher: Bash
      command: builtin:gh-output-advisor
---

# GitHub

See [commands](commands.md).
`)
	writeFile(t, filepath.Join(root, "github-navigator", "commands.md"), "# Commands\n\nMore in [deep](deep.md).\n")
	writeFile(t, filepath.Join(root, "github-navigator", "deep.md"), "# Deep\n")

	writeFile(t, filepath.Join(root, "looping", "SKILL.md"), `---
name: looping
description: Loops forever.
---

[a](a.md)
`)
	writeFile(t, filepath.Join(root, "looping", "a.md"), "[back](SKILL.md)\n")

	discovery, err := skills.NewDiscovery(skills.WithSkillDirs(root))
	require.NoError(t, err)
	registry := skills.NewRegistry()
	require.NoError(t, discovery.Populate(context.Background(), registry).Err())

	snapshot := registry.Snapshot()
	s, err := New(&Config{Host: "127.0.0.1", Port: 8080}, skills.NewLoader(snapshot), selector.New(snapshot))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{Host: "", Port: 80}).Validate())
	assert.Error(t, (&Config{Host: "localhost", Port: 0}).Validate())
	assert.Error(t, (&Config{Host: "localhost", Port: 70000}).Validate())
	assert.NoError(t, (&Config{Host: "localhost", Port: 8080}).Validate())
}

func TestListSkills(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/skills", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []SkillSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "github-navigator", out[0].Name)
	assert.Equal(t, []string{"Bash(gh:*)", "Read"}, out[0].AllowedTools)
	assert.Equal(t, []string{"PostToolUse"}, out[0].HookEvents)
	assert.Equal(t, "looping", out[1].Name)
}

func TestGetSkill(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/skills/github-navigator", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out SkillDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Body, "# GitHub")
	assert.Equal(t, []string{"commands.md"}, out.References)
}

func TestGetSkillErrors(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/skills/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/skills/looping", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload["error"], "SKILL.md -> a.md -> SKILL.md")
}

func TestGetReference(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/skills/github-navigator/references?path=commands.md", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out ReferenceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Content, "# Commands")
	assert.Equal(t, []string{"deep.md"}, out.Links)

	rec = do(t, s, http.MethodGet, "/api/skills/github-navigator/references?path=deep.md", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/skills/github-navigator/references", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelect(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(SelectRequest{Request: "show my open pull requests on github"})
	rec := do(t, s, http.MethodPost, "/api/select", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var out SelectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Matches)
	assert.Equal(t, "github-navigator", out.Matches[0].Name)

	body, _ = json.Marshal(SelectRequest{Request: "bake bread"})
	rec = do(t, s, http.MethodPost, "/api/select", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matches":[]}`, rec.Body.String())

	body, _ = json.Marshal(SelectRequest{Request: "bake bread", Explain: true})
	rec = do(t, s, http.MethodPost, "/api/select", body)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Matches, 2)

	rec = do(t, s, http.MethodPost, "/api/select", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHookSchema(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/hooks/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "decision")
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/select", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
