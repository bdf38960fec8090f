package skills

import (
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	content := `---
name: github-navigator
description: Navigate GitHub with the gh CLI. Use when the user says 'check PR', 'list issues'.
allowed-tools:
  - Bash(gh:*)
  - Read
context: fork
license: MIT
metadata:
  author: octo
hooks:
  PreToolUse:
    - matcher: "Bash"
      command: "./scripts/guard.sh"
      timeout: 500
  PostToolUse:
    - matcher: "Bash"
      hooks:
        - type: command
          command: "builtin:gh-output-advisor"
---

# GitHub Navigator

See [commands](references/commands.md) and [api](references/api.md#auth).
Visit [the docs](https://cli.github.com) or jump to [usage](#usage).
`
	d, err := Parse([]byte(content), "/skills/github-navigator/SKILL.md")
	require.NoError(t, err)

	assert.Equal(t, "github-navigator", d.Name)
	assert.True(t, strings.HasPrefix(d.Description, "Navigate GitHub"))
	assert.Equal(t, []string{"Bash(gh:*)", "Read"}, d.AllowedTools)
	assert.Equal(t, "fork", d.Context)
	assert.Equal(t, "MIT", d.License)
	assert.Equal(t, "octo", d.Metadata["author"])
	assert.Equal(t, "/skills/github-navigator", d.Directory)

	require.Len(t, d.Hooks[EventPreToolUse], 1)
	assert.Equal(t, HookBinding{Matcher: "Bash", Command: "./scripts/guard.sh", Timeout: 500 * time.Millisecond}, d.Hooks[EventPreToolUse][0])
	require.Len(t, d.Hooks[EventPostToolUse], 1)
	assert.Equal(t, "builtin:gh-output-advisor", d.Hooks[EventPostToolUse][0].Command)
	assert.Zero(t, d.Hooks[EventPostToolUse][0].Timeout)
}

func TestParseFailures(t *testing.T) {
	long := strings.Repeat("x", MaxDescriptionLength+1)
	tests := []struct {
		name     string
		content  string
		problems []string
	}{
		{
			name:     "no front matter",
			content:  "# Title\n",
			problems: []string{"missing front matter block"},
		},
		{
			name:     "invalid yaml",
			content:  "---\nname: [unclosed\n---\nbody\n",
			problems: []string{"failed to parse YAML front matter"},
		},
		{
			name:     "bad name and missing description",
			content:  "---\nname: Bad_Name\n---\nbody\n",
			problems: []string{"lowercase letters", "description is required"},
		},
		{
			name:     "name too long",
			content:  "---\nname: " + strings.Repeat("a", MaxNameLength+1) + "\ndescription: ok\n---\n",
			problems: []string{"maximum is 64"},
		},
		{
			name:     "description too long",
			content:  "---\nname: ok\ndescription: " + long + "\n---\n",
			problems: []string{"maximum is 1024"},
		},
		{
			name:     "unknown hook event",
			content:  "---\nname: ok\ndescription: fine\nhooks:\n  BeforeEverything:\n    - command: echo\n---\n",
			problems: []string{"unknown hook event 'BeforeEverything'"},
		},
		{
			name:     "hook without command",
			content:  "---\nname: ok\ndescription: fine\nhooks:\n  Stop:\n    - matcher: \"*\"\n---\n",
			problems: []string{"Stop hook #1 has no command"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(tt.content), "SKILL.md")
			require.Error(t, err)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrMalformedFrontMatter)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Problems.Errors, len(tt.problems))
			for _, problem := range tt.problems {
				assert.Contains(t, err.Error(), problem)
			}
		})
	}
}

func TestParseCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte("---\nname: UPPER\ndescription: \"\"\n---\n"), "x/SKILL.md")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.IsType(t, &multierror.Error{}, verr.Problems)
	assert.Len(t, verr.Problems.Errors, 2)
	assert.Equal(t, "x/SKILL.md", verr.Path)
}

func TestSplitToolList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Read", []string{"Read"}},
		{"Bash(gh:*) Read", []string{"Bash(gh:*)", "Read"}},
		{"Bash(git log:*), Read,Write", []string{"Bash(git log:*)", "Read", "Write"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitToolList(tt.input))
		})
	}
}

func TestParseDocumentLinks(t *testing.T) {
	doc, err := ParseDocument([]byte(`# Guide

- [one](one.md)
- [one again](./one.md#section)
- [nested](docs/two.md?plain=1)
- [parent](../outside.md)
- [web](https://example.com/x.md)
- [mail](mailto:someone@example.com)
- [anchor](#top)
- [absolute](/etc/passwd)
- [space](my%20file.md)
`))
	require.NoError(t, err)
	assert.Nil(t, doc.Meta)
	assert.Equal(t, []string{"one.md", "docs/two.md", "../outside.md", "my file.md"}, doc.Links)
}

func TestExtractBodyContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with frontmatter",
			input:    "---\nname: test\ndescription: desc\n---\n\n# Content\n\nBody text.",
			expected: "# Content\n\nBody text.",
		},
		{
			name:     "no frontmatter",
			input:    "# Just content\nNo frontmatter.",
			expected: "# Just content\nNo frontmatter.",
		},
		{
			name:     "incomplete frontmatter",
			input:    "---\nname: test\n# No closing ---",
			expected: "---\nname: test\n# No closing ---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractBodyContent(tt.input))
		})
	}
}
