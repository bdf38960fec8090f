package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandLintTargets(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "alpha/SKILL.md")
	touch(t, root, "beta/skill.md")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	touch(t, root, "single/SKILL.md")

	t.Run("directory of skills", func(t *testing.T) {
		targets, err := expandLintTargets([]string{root})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "alpha"),
			filepath.Join(root, "beta"),
			filepath.Join(root, "single"),
		}, targets)
	})

	t.Run("skill directory and file", func(t *testing.T) {
		file := filepath.Join(root, "alpha", "SKILL.md")
		targets, err := expandLintTargets([]string{filepath.Join(root, "single"), file})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "single"), file}, targets)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := expandLintTargets([]string{filepath.Join(root, "nope")})
		assert.Error(t, err)
	})
}

func TestLintTargetsReportsUnreadableSkill(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))

	reports := lintTargets([]string{filepath.Join(root, "broken")})
	require.Len(t, reports, 1)
	assert.Equal(t, "broken", reports[0].Skill)
	assert.True(t, reports[0].HasIssues())
	assert.Equal(t, lint.SeverityIssue, reports[0].Findings[0].Severity)
}

func TestWatchDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "alpha/SKILL.md")
	touch(t, root, "alpha/references/guide.md")
	touch(t, root, "beta/SKILL.md")

	dirs := watchDirs([]string{
		filepath.Join(root, "alpha"),
		filepath.Join(root, "alpha", "SKILL.md"),
		filepath.Join(root, "beta"),
	})
	assert.Equal(t, []string{
		filepath.Join(root, "alpha"),
		filepath.Join(root, "alpha", "references"),
		filepath.Join(root, "beta"),
	}, dirs)
}
