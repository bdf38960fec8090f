package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/plugins"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type SkillAddConfig struct {
	Global bool
	Dir    string
}

func NewSkillAddConfig() *SkillAddConfig {
	return &SkillAddConfig{
		Global: false,
		Dir:    "",
	}
}

type SkillRemoveConfig struct {
	Global bool
	Yes    bool
}

func NewSkillRemoveConfig() *SkillRemoveConfig {
	return &SkillRemoveConfig{
		Global: false,
		Yes:    false,
	}
}

type SkillNewConfig struct {
	Global       bool
	Description  string
	AllowedTools []string
}

func NewSkillNewConfig() *SkillNewConfig {
	return &SkillNewConfig{}
}

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage installed skills",
	Long:  `Add skills from GitHub repositories, scaffold new skills and remove installed ones.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillAddCmd = &cobra.Command{
	Use:   "add <repo>",
	Short: "Add skills from a GitHub repository",
	Long: `Add skills from a GitHub repository. The repository should contain directories
with SKILL.md files. You can specify:

  - A repo: orgname/skills (adds all skills)
  - A repo with specific skill: orgname/skills --dir skills/specific-skill
  - A repo with version: orgname/skills@v0.1.0 (adds from specific tag/branch/sha)

Examples:
  skillkit skill add orgname/skills
  skillkit skill add orgname/skills --dir skills/specific-skill
  skillkit skill add orgname/skills@main
  skillkit skill add orgname/skills -g`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillAddConfigFromFlags(cmd)
		addSkillCmd(cmd.Context(), args[0], config)
	},
}

var skillRemoveCmd = &cobra.Command{
	Use:   "remove <skill-name>",
	Short: "Remove an installed skill",
	Long: `Remove an installed skill by name.

Examples:
  skillkit skill remove specific-skill
  skillkit skill remove specific-skill -g --yes`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillRemoveConfigFromFlags(cmd)
		removeSkillCmd(args[0], config)
	},
}

var skillNewCmd = &cobra.Command{
	Use:   "new <skill-name>",
	Short: "Scaffold a new skill",
	Long: `Create a skill directory with a SKILL.md whose front matter is filled in, then
lint it. The name must be lowercase letters, digits and single hyphens.

Examples:
  skillkit skill new release-notes --description "Drafts release notes. Use when..."
  skillkit skill new gh-helper --allowed-tools "Bash(gh:*)" -g`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillNewConfigFromFlags(cmd)
		newSkillCmd(args[0], config)
	},
}

func init() {
	addDefaults := NewSkillAddConfig()
	skillAddCmd.Flags().BoolP("global", "g", addDefaults.Global, "Install to global ~/.skillkit/skills directory instead of local ./.skillkit/skills")
	skillAddCmd.Flags().StringP("dir", "d", addDefaults.Dir, "Path to a specific skill directory within the repository")

	removeDefaults := NewSkillRemoveConfig()
	skillRemoveCmd.Flags().BoolP("global", "g", removeDefaults.Global, "Remove from global ~/.skillkit/skills directory instead of local ./.skillkit/skills")
	skillRemoveCmd.Flags().BoolP("yes", "y", removeDefaults.Yes, "Do not ask for confirmation")

	skillNewCmd.Flags().BoolP("global", "g", false, "Create in global ~/.skillkit/skills directory instead of local ./.skillkit/skills")
	skillNewCmd.Flags().String("description", "", "Trigger description (what the skill does and when to use it)")
	skillNewCmd.Flags().StringSlice("allowed-tools", nil, "Tools the skill pre-authorizes, e.g. \"Bash(gh:*)\"")

	skillCmd.AddCommand(skillAddCmd)
	skillCmd.AddCommand(skillRemoveCmd)
	skillCmd.AddCommand(skillNewCmd)
}

func getSkillAddConfigFromFlags(cmd *cobra.Command) *SkillAddConfig {
	config := NewSkillAddConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	return config
}

func getSkillRemoveConfigFromFlags(cmd *cobra.Command) *SkillRemoveConfig {
	config := NewSkillRemoveConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if yes, err := cmd.Flags().GetBool("yes"); err == nil {
		config.Yes = yes
	}
	return config
}

func getSkillNewConfigFromFlags(cmd *cobra.Command) *SkillNewConfig {
	config := NewSkillNewConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if desc, err := cmd.Flags().GetString("description"); err == nil {
		config.Description = desc
	}
	if tools, err := cmd.Flags().GetStringSlice("allowed-tools"); err == nil {
		config.AllowedTools = tools
	}
	return config
}

func getSkillsDir(global bool) (string, error) {
	if global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get user home directory")
		}
		return filepath.Join(homeDir, ".skillkit", "skills"), nil
	}
	return ".skillkit/skills", nil
}

func isGhCliInstalled() bool {
	return exec.Command("gh", "--version").Run() == nil
}

func isGhAuthenticated() bool {
	return exec.Command("gh", "auth", "status").Run() == nil
}

func addSkillCmd(ctx context.Context, repo string, config *SkillAddConfig) {
	if !isGhCliInstalled() {
		presenter.Error(errors.New("gh CLI is not installed"), "Please install the GitHub CLI (gh) to use this command")
		os.Exit(1)
	}

	if !isGhAuthenticated() {
		presenter.Error(errors.New("gh CLI is not authenticated"), "Please run 'gh auth login' to authenticate")
		os.Exit(1)
	}

	repoName, ref := plugins.ParseRepoAndRef(repo)
	if err := plugins.ValidateRepoName(repoName); err != nil {
		presenter.Error(err, "Invalid repository")
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "skillkit-skill-*")
	if err != nil {
		presenter.Error(err, "Failed to create temporary directory")
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	cloneDir := filepath.Join(tmpDir, "repo")
	if err := plugins.GHClone(ctx, repoName, ref, cloneDir); err != nil {
		presenter.Error(err, "Failed to clone repository")
		os.Exit(1)
	}

	skillsDir, err := getSkillsDir(config.Global)
	if err != nil {
		presenter.Error(err, "Failed to determine skills directory")
		os.Exit(1)
	}

	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		presenter.Error(err, "Failed to create skills directory")
		os.Exit(1)
	}

	var skillDirs []string
	if config.Dir != "" {
		targetPath := filepath.Join(cloneDir, config.Dir)
		if _, err := os.Stat(filepath.Join(targetPath, skills.SkillFileName)); os.IsNotExist(err) {
			presenter.Error(errors.Errorf("no SKILL.md found at %s", config.Dir), "Invalid skill path")
			os.Exit(1)
		}
		skillDirs = []string{targetPath}
	} else {
		skillDirs, err = plugins.FindSkillDirs(cloneDir)
		if err != nil {
			presenter.Error(err, "Failed to find skills in repository")
			os.Exit(1)
		}
	}

	if len(skillDirs) == 0 {
		presenter.Warning("No skills found in the repository")
		return
	}

	installed, err := installSkills(ctx, skillDirs, skillsDir)
	if err != nil {
		presenter.Error(err, "Failed to install skills")
		os.Exit(1)
	}
	if installed > 0 {
		presenter.Info(fmt.Sprintf("Successfully installed %d skill(s)", installed))
	}
}

// installSkills copies each skill directory into skillsDir while holding
// the install lock. Existing skills are skipped. It returns how many were
// installed.
func installSkills(ctx context.Context, skillDirs []string, skillsDir string) (int, error) {
	unlock, err := plugins.LockDir(skillsDir)
	if err != nil {
		return 0, err
	}
	defer unlock()

	installed := 0
	for _, dir := range skillDirs {
		skillName := filepath.Base(dir)
		destDir := filepath.Join(skillsDir, skillName)

		if _, err := os.Stat(destDir); err == nil {
			presenter.Warning(fmt.Sprintf("Skill '%s' already exists, skipping", skillName))
			continue
		}

		if err := plugins.CopyDir(dir, destDir); err != nil {
			presenter.Error(err, fmt.Sprintf("Failed to install skill '%s'", skillName))
			continue
		}

		logger.G(ctx).WithField("skill", skillName).WithField("dest", destDir).Debug("skill installed")
		installed++
		presenter.Success(fmt.Sprintf("Installed skill '%s' to %s", skillName, destDir))
	}
	return installed, nil
}

func removeSkillCmd(name string, config *SkillRemoveConfig) {
	skillsDir, err := getSkillsDir(config.Global)
	if err != nil {
		presenter.Error(err, "Failed to determine skills directory")
		os.Exit(1)
	}

	skillDir := filepath.Join(skillsDir, name)

	skillFile := filepath.Join(skillDir, skills.SkillFileName)
	if _, err := os.Stat(skillFile); os.IsNotExist(err) {
		location := "local"
		if config.Global {
			location = "global"
		}
		presenter.Error(errors.Errorf("skill '%s' not found in %s skills directory", name, location), "Skill not found")
		os.Exit(1)
	}

	if !config.Yes {
		answer := presenter.Prompt(fmt.Sprintf("Remove skill '%s' from %s?", name, skillDir), "y", "N")
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			presenter.Info("Aborted")
			return
		}
	}

	if err := os.RemoveAll(skillDir); err != nil {
		presenter.Error(err, fmt.Sprintf("Failed to remove skill '%s'", name))
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("Removed skill '%s' from %s", name, skillDir))
}

// skillTemplate is the front matter written by "skill new". Field order
// is the order in the generated document.
type skillTemplate struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	AllowedTools []string `yaml:"allowed-tools,omitempty"`
}

const skillBodyTemplate = `
# %s

## Instructions

Describe the steps to follow when this skill is active.

## Examples

- "An example request that should trigger this skill"
`

// renderSkill returns the SKILL.md content for a new skill.
func renderSkill(name string, config *SkillNewConfig) ([]byte, error) {
	if err := skills.ValidateName(name); err != nil {
		return nil, err
	}

	description := config.Description
	if description == "" {
		description = fmt.Sprintf("Describe what %s does. Use when the user asks to ...", name)
	}
	if err := skills.ValidateDescription(description); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(skillTemplate{
		Name:         name,
		Description:  description,
		AllowedTools: config.AllowedTools,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to encode front matter")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode front matter")
	}
	buf.WriteString("---\n")
	fmt.Fprintf(&buf, skillBodyTemplate, titleCase(name))
	return buf.Bytes(), nil
}

func titleCase(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// createSkill writes a new skill under skillsDir and returns its directory.
func createSkill(skillsDir, name string, config *SkillNewConfig) (string, error) {
	content, err := renderSkill(name, config)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(skillsDir, name)
	if _, err := os.Stat(dir); err == nil {
		return "", errors.Errorf("skill directory %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create skill directory")
	}
	if err := os.WriteFile(filepath.Join(dir, skills.SkillFileName), content, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write SKILL.md")
	}
	return dir, nil
}

func newSkillCmd(name string, config *SkillNewConfig) {
	skillsDir, err := getSkillsDir(config.Global)
	if err != nil {
		presenter.Error(err, "Failed to determine skills directory")
		os.Exit(1)
	}

	dir, err := createSkill(skillsDir, name, config)
	if err != nil {
		presenter.Error(err, fmt.Sprintf("Failed to create skill '%s'", name))
		os.Exit(1)
	}
	presenter.Success(fmt.Sprintf("Created skill '%s' in %s", name, dir))

	report, err := lint.Lint(dir)
	if err != nil {
		presenter.Warning(fmt.Sprintf("Could not lint the new skill: %s", err))
		return
	}
	for _, f := range report.Findings {
		if f.Severity == lint.SeverityIssue || f.Severity == lint.SeverityWarning {
			presenter.Finding(string(f.Severity), f.Message)
		}
	}
}
