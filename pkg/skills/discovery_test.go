package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	t.Run("with default dirs", func(t *testing.T) {
		discovery, err := NewDiscovery()
		require.NoError(t, err)
		assert.NotNil(t, discovery)
		assert.Len(t, discovery.skillDirs, 2)
		assert.Equal(t, "./.skillkit/skills", discovery.skillDirs[0])
	})

	t.Run("with custom dirs", func(t *testing.T) {
		customDirs := []string{"/tmp/skills1", "/tmp/skills2"}
		discovery, err := NewDiscovery(WithSkillDirs(customDirs...))
		require.NoError(t, err)
		assert.Equal(t, customDirs, discovery.skillDirs)
	})

	t.Run("extra dirs come last", func(t *testing.T) {
		discovery, err := NewDiscovery(WithSkillDirs("/a"), WithExtraDirs("/b", "/c"))
		require.NoError(t, err)
		assert.Equal(t, []string{"/a", "/b", "/c"}, discovery.Dirs())
	})
}

func TestDiscoverSkills(t *testing.T) {
	tmpDir := t.TempDir()

	skill1Dir := writeSkill(t, tmpDir, "test-skill", `---
name: test-skill
description: A test skill for unit testing
allowed-tools: Bash(gh:*) Read
---

# Test Skill

## Instructions
This is a test skill.
`)
	writeSkill(t, tmpDir, "another-skill", simpleSkill("another-skill", "Another test skill", "Some content here.\n"))

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, skills, 2)

	// os.ReadDir returns entries sorted by name
	assert.Equal(t, "another-skill", skills[0].Name)
	assert.Equal(t, "Another test skill", skills[0].Description)

	testSkill := skills[1]
	assert.Equal(t, "test-skill", testSkill.Name)
	assert.Equal(t, "A test skill for unit testing", testSkill.Description)
	assert.Equal(t, skill1Dir, testSkill.Directory)
	assert.Equal(t, filepath.Join(skill1Dir, SkillFileName), testSkill.Path)
	assert.Equal(t, []string{"Bash(gh:*)", "Read"}, testSkill.AllowedTools)
}

func TestDiscoverSkillsWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	skillsDir := filepath.Join(tmpDir, "skills")
	require.NoError(t, os.MkdirAll(skillsDir, 0o755))

	actualSkillDir := writeSkill(t, filepath.Join(tmpDir, "actual-skills"), "symlinked-skill",
		simpleSkill("symlinked-skill", "A skill accessed via symlink", "This skill is accessed through a symbolic link.\n"))

	symlinkPath := filepath.Join(skillsDir, "symlinked-skill")
	require.NoError(t, os.Symlink(actualSkillDir, symlinkPath))

	writeSkill(t, skillsDir, "regular-skill", simpleSkill("regular-skill", "A regular skill directory", "Regular.\n"))

	discovery, err := NewDiscovery(WithSkillDirs(skillsDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, skills, 2)

	assert.Equal(t, "regular-skill", skills[0].Name)
	assert.Equal(t, "symlinked-skill", skills[1].Name)
	assert.Equal(t, symlinkPath, skills[1].Directory)
}

func TestDiscoverSkillsIgnoresSymlinkToFile(t *testing.T) {
	tmpDir := t.TempDir()
	skillsDir := filepath.Join(tmpDir, "skills")
	require.NoError(t, os.MkdirAll(skillsDir, 0o755))

	targetFile := filepath.Join(tmpDir, "somefile.txt")
	require.NoError(t, os.WriteFile(targetFile, []byte("just a file"), 0o644))
	require.NoError(t, os.Symlink(targetFile, filepath.Join(skillsDir, "file-symlink")))

	discovery, err := NewDiscovery(WithSkillDirs(skillsDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skills, "symlink to file should be ignored")
}

func TestDiscoverSkillsIgnoresBrokenSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	skillsDir := filepath.Join(tmpDir, "skills")
	require.NoError(t, os.MkdirAll(skillsDir, 0o755))
	require.NoError(t, os.Symlink("/non/existent/path", filepath.Join(skillsDir, "broken-symlink")))

	discovery, err := NewDiscovery(WithSkillDirs(skillsDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skills, "broken symlink should be ignored")
}

func TestDiscoverSkillsIgnoresDirectoryWithoutSkillFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "not-a-skill"), 0o755))

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestDiscoveryPrecedence(t *testing.T) {
	tmpDir1 := t.TempDir()
	tmpDir2 := t.TempDir()

	writeSkill(t, tmpDir1, "shared-skill", simpleSkill("shared-skill", "From first directory", "First directory content.\n"))
	writeSkill(t, tmpDir2, "shared-skill", simpleSkill("shared-skill", "From second directory", "Second directory content.\n"))

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir1, tmpDir2))
	require.NoError(t, err)

	registry := NewRegistry()
	report := discovery.Populate(context.Background(), registry)
	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"shared-skill"}, report.Registered)
	require.Len(t, report.Shadowed, 1)
	assert.Equal(t, "From second directory", report.Shadowed[0].Description)

	skill, err := registry.Lookup("shared-skill")
	require.NoError(t, err)
	assert.Equal(t, "From first directory", skill.Description)
}

func TestPluginSkillsArePrefixed(t *testing.T) {
	pluginsDir := t.TempDir()
	writeSkill(t, filepath.Join(pluginsDir, "acme", "tools", "skills"), "deploy",
		simpleSkill("deploy", "Deploy services when the user says 'ship it'", "Deploy.\n"))

	discovery, err := NewDiscovery(WithPluginRoot(pluginsDir))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "acme/tools/deploy", skills[0].Name)
}

func TestSkillValidation(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		content string
		problem string
	}{
		{
			name:    "missing name",
			dir:     "no-name",
			content: "---\ndescription: Missing name field\n---\n\nContent here.\n",
			problem: "name is required",
		},
		{
			name:    "missing description",
			dir:     "no-desc",
			content: "---\nname: no-desc\n---\n\nContent here.\n",
			problem: "description is required",
		},
		{
			name:    "no frontmatter",
			dir:     "no-frontmatter",
			content: "# Just content\nNo frontmatter here.\n",
			problem: "missing front matter block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeSkill(t, tmpDir, tt.dir, tt.content)
			writeSkill(t, tmpDir, "valid", simpleSkill("valid", "A valid skill", "ok\n"))

			discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
			require.NoError(t, err)

			registry := NewRegistry()
			report := discovery.Populate(context.Background(), registry)

			assert.Equal(t, []string{"valid"}, report.Registered)
			require.Len(t, report.Problems, 1)
			assert.ErrorIs(t, report.Problems[0], ErrMalformedFrontMatter)
			assert.Contains(t, report.Problems[0].Error(), tt.problem)
			assert.Contains(t, report.Err().Error(), tt.dir)
		})
	}
}

func TestFilterByAllowlist(t *testing.T) {
	skills := []*Descriptor{
		{Name: "skill-a", Description: "A"},
		{Name: "skill-b", Description: "B"},
		{Name: "skill-c", Description: "C"},
	}

	t.Run("empty allowlist returns all", func(t *testing.T) {
		assert.Len(t, FilterByAllowlist(skills, nil), 3)
	})

	t.Run("allowlist filters skills and keeps order", func(t *testing.T) {
		result := FilterByAllowlist(skills, []string{"skill-c", "skill-a"})
		require.Len(t, result, 2)
		assert.Equal(t, "skill-a", result[0].Name)
		assert.Equal(t, "skill-c", result[1].Name)
	})

	t.Run("allowlist with unknown skill", func(t *testing.T) {
		result := FilterByAllowlist(skills, []string{"skill-a", "unknown"})
		require.Len(t, result, 1)
		assert.Equal(t, "skill-a", result[0].Name)
	})
}

func TestDiscoveryAllowlist(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		writeSkill(t, tmpDir, name, simpleSkill(name, "Skill "+name, "Content for "+name+".\n"))
	}

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir), WithAllowlist("gamma", "alpha"))
	require.NoError(t, err)

	registry := NewRegistry()
	report := discovery.Populate(context.Background(), registry)
	assert.Equal(t, []string{"alpha", "gamma"}, report.Registered)
	assert.Equal(t, []string{"alpha", "gamma"}, registry.Names())
}

func TestNonExistentDirectory(t *testing.T) {
	discovery, err := NewDiscovery(WithSkillDirs("/non/existent/path"))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skills)
}
