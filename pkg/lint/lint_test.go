package lint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodDescription = "Navigate GitHub repositories and pull requests. Use when the user asks 'show open PRs', 'list issues'."

func writeSkillDir(t *testing.T, root, name, file, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func skillDoc(frontMatter, body string) string {
	return "---\n" + frontMatter + "\n---\n\n" + body
}

func messages(findings []Finding, sev Severity) []string {
	var out []string
	for _, f := range findings {
		if f.Severity == sev {
			out = append(out, f.Message)
		}
	}
	return out
}

func TestLintCleanSkill(t *testing.T) {
	root := t.TempDir()
	dir := writeSkillDir(t, root, "github-navigator", "SKILL.md",
		skillDoc("name: github-navigator\ndescription: "+goodDescription+"\nlicense: MIT", "# GitHub\n\nSee [guide](guide.md).\n"))
	writeFile(t, dir, "LICENSE", "MIT")
	writeFile(t, dir, "guide.md", "# Guide\n")

	report, err := Lint(dir)
	require.NoError(t, err)

	assert.Equal(t, "github-navigator", report.Skill)
	assert.False(t, report.HasIssues(), "%v", messages(report.Findings, SeverityIssue))
	assert.Contains(t, messages(report.Findings, SeverityGood), "Structure is valid")
	assert.Contains(t, messages(report.Findings, SeverityGood), "1 references resolve")
}

func TestLintMissingSkill(t *testing.T) {
	_, err := Lint(t.TempDir())
	require.Error(t, err)
}

func TestStructureFrontMatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no front matter", "# Title\n", "File must start with --- (YAML frontmatter)"},
		{"unclosed", "---\nname: x\n", "Missing closing --- for frontmatter"},
		{"tabs", "---\nname: x\n\tdescription: y\n---\n", "YAML contains tabs (use spaces only)"},
		{"not a mapping", "---\n- a\n- b\n---\n", "Frontmatter must be a YAML mapping"},
		{"missing name", "---\ndescription: something\n---\n", "Missing required field: name"},
		{"missing description", "---\nname: x\n---\n", "Missing required field: description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ParseSkillFile(t.TempDir(), "SKILL.md", tt.content)
			assert.Contains(t, messages(Structure{}.Analyze(s), SeverityIssue), tt.want)
		})
	}
}

func TestStructureDescriptionLength(t *testing.T) {
	long := strings.Repeat("a", 600)
	s := ParseSkillFile(t.TempDir(), "SKILL.md", skillDoc("name: x\ndescription: "+long, ""))
	assert.Contains(t, messages(Structure{}.Analyze(s), SeverityWarning), "Description is 600 chars (recommend <500)")

	tooLong := strings.Repeat("a", 1100)
	s = ParseSkillFile(t.TempDir(), "SKILL.md", skillDoc("name: x\ndescription: "+tooLong, ""))
	assert.Contains(t, messages(Structure{}.Analyze(s), SeverityIssue), "Description too long: 1100 chars (max 1024)")
}

func TestStructureUnknownFieldAndLayout(t *testing.T) {
	dir := t.TempDir()
	body := strings.Repeat("line\n", MaxSkillLines+10)
	s := ParseSkillFile(dir, filepath.Join(dir, "SKILL.md"), skillDoc("name: x\ndescription: d\nversion: 2", body))

	warnings := messages(Structure{}.Analyze(s), SeverityWarning)
	assert.Contains(t, warnings, "Unknown field: version")
	assert.Contains(t, warnings, "No LICENSE file found")
	assert.Len(t, filter(warnings, "lines (recommend <500"), 1)
}

func TestStructureLowercaseFileName(t *testing.T) {
	root := t.TempDir()
	dir := writeSkillDir(t, root, "x", "skill.md", skillDoc("name: x\ndescription: d", ""))

	s, err := LoadSkill(dir)
	require.NoError(t, err)
	assert.Contains(t, messages(Structure{}.Analyze(s), SeverityIssue), "SKILL.md must be uppercase (case-sensitive)")
}

func TestNameProblems(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"github-navigator", nil},
		{"My_Skill", []string{
			"Name must be lowercase",
			"Use hyphens, not underscores",
			"Name must start with letter, contain only lowercase, numbers, hyphens",
		}},
		{"1abc", []string{"Name must start with letter, contain only lowercase, numbers, hyphens"}},
		{"has space", []string{
			"No spaces allowed in name",
			"Name must start with letter, contain only lowercase, numbers, hyphens",
		}},
		{strings.Repeat("a", 65), []string{"Name too long: 65 chars (max 64)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameProblems(tt.name))
		})
	}
}

func filter(items []string, substr string) []string {
	var out []string
	for _, item := range items {
		if strings.Contains(item, substr) {
			out = append(out, item)
		}
	}
	return out
}
