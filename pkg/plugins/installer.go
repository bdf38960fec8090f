package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
)

const (
	skillkitDir   = ".skillkit"
	pluginsSubdir = "plugins"
	skillsSubdir  = "skills"
)

// InstalledPlugin is a plugin found on disk.
type InstalledPlugin struct {
	Name   string   // "org/repo"
	Path   string   // plugin directory
	Skills []string // skill directory names under skills/
}

// Installer handles plugin installation from GitHub repositories
type Installer struct {
	global  bool
	force   bool
	baseDir string
	clone   CloneFunc
}

// InstallerOption configures an Installer or Remover
type InstallerOption func(*Installer)

// WithGlobal installs plugins to the global directory
func WithGlobal(global bool) InstallerOption {
	return func(i *Installer) {
		i.global = global
	}
}

// WithForce overwrites existing plugins
func WithForce(force bool) InstallerOption {
	return func(i *Installer) {
		i.force = force
	}
}

// WithBaseDir installs under dir instead of .skillkit or ~/.skillkit.
func WithBaseDir(dir string) InstallerOption {
	return func(i *Installer) {
		i.baseDir = dir
	}
}

// WithCloner replaces GHClone.
func WithCloner(clone CloneFunc) InstallerOption {
	return func(i *Installer) {
		i.clone = clone
	}
}

func resolveBaseDir(i *Installer) error {
	if i.baseDir != "" {
		return nil
	}
	if !i.global {
		i.baseDir = skillkitDir
		return nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return errors.Wrap(err, "failed to get home directory")
	}
	i.baseDir = filepath.Join(homeDir, skillkitDir)
	return nil
}

// NewInstaller creates a new plugin installer
func NewInstaller(opts ...InstallerOption) (*Installer, error) {
	i := &Installer{clone: GHClone}
	for _, opt := range opts {
		opt(i)
	}
	if err := resolveBaseDir(i); err != nil {
		return nil, err
	}
	return i, nil
}

// PluginsDir returns the directory plugins are installed into.
func (i *Installer) PluginsDir() string {
	return filepath.Join(i.baseDir, pluginsSubdir)
}

// InstallResult contains information about an installed plugin
type InstallResult struct {
	Plugin string
	Path   string
	Skills []string
	// Skipped maps a skill directory name to the reason it was not
	// installed.
	Skipped map[string]string
}

// Install clones repo at ref and installs every valid skill it contains.
// Skills whose SKILL.md does not parse are skipped and reported.
func (i *Installer) Install(ctx context.Context, repo string, ref string) (*InstallResult, error) {
	if err := ValidateRepoName(repo); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "skillkit-plugin-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	cloneDir := filepath.Join(tempDir, "repo")
	if err := i.clone(ctx, repo, ref, cloneDir); err != nil {
		return nil, err
	}

	found, err := FindSkillDirs(cloneDir)
	if err != nil {
		return nil, err
	}

	unlock, err := LockDir(i.PluginsDir())
	if err != nil {
		return nil, err
	}
	defer unlock()

	pluginDir := filepath.Join(i.PluginsDir(), filepath.FromSlash(repo))
	if err := i.checkExisting(pluginDir); err != nil {
		return nil, err
	}

	result := &InstallResult{Plugin: repo, Path: pluginDir, Skipped: map[string]string{}}
	destSkillsDir := filepath.Join(pluginDir, skillsSubdir)
	for _, dir := range found {
		name := filepath.Base(dir)
		if reason := i.validateSkill(dir, result); reason != "" {
			result.Skipped[name] = reason
			logger.G(ctx).WithField("plugin", repo).WithField("skill", name).WithField("reason", reason).Warn("skipping plugin skill")
			continue
		}
		if err := CopyDir(dir, filepath.Join(destSkillsDir, name)); err != nil {
			os.RemoveAll(pluginDir)
			return nil, errors.Wrapf(err, "failed to install skill %s", name)
		}
		result.Skills = append(result.Skills, name)
	}

	if len(result.Skills) == 0 {
		os.RemoveAll(pluginDir)
		return nil, errors.Errorf("no valid skills found in %s", repo)
	}

	logger.G(ctx).WithField("plugin", repo).WithField("skills", result.Skills).Info("plugin installed")
	return result, nil
}

// validateSkill returns why the skill at dir cannot be installed, or "".
func (i *Installer) validateSkill(dir string, result *InstallResult) string {
	name := filepath.Base(dir)
	for _, installed := range result.Skills {
		if installed == name {
			return fmt.Sprintf("duplicate skill directory name %q", name)
		}
	}

	path := filepath.Join(dir, skills.SkillFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		return err.Error()
	}
	if _, err := skills.Parse(content, path); err != nil {
		return err.Error()
	}
	return ""
}

func (i *Installer) checkExisting(path string) error {
	if _, err := os.Stat(path); err == nil {
		if !i.force {
			return errors.Errorf("plugin already exists at %s (use --force to overwrite)", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrap(err, "failed to remove existing plugin")
		}
	}
	return nil
}

// Remover handles plugin removal and listing
type Remover struct {
	baseDir string
}

// NewRemover creates a new plugin remover
func NewRemover(opts ...InstallerOption) (*Remover, error) {
	i := &Installer{}
	for _, opt := range opts {
		opt(i)
	}
	if err := resolveBaseDir(i); err != nil {
		return nil, err
	}
	return &Remover{baseDir: i.baseDir}, nil
}

// Remove deletes the plugin installed from repo ("org/repo"). The org
// directory is removed too once it is empty.
func (r *Remover) Remove(repo string) error {
	if err := ValidateRepoName(repo); err != nil {
		return err
	}

	pluginsDir := filepath.Join(r.baseDir, pluginsSubdir)
	unlock, err := LockDir(pluginsDir)
	if err != nil {
		return err
	}
	defer unlock()

	pluginPath := filepath.Join(pluginsDir, filepath.FromSlash(repo))
	if _, err := os.Stat(pluginPath); os.IsNotExist(err) {
		return errors.Errorf("plugin '%s' not found", repo)
	}

	if err := os.RemoveAll(pluginPath); err != nil {
		return errors.Wrap(err, "failed to remove plugin")
	}

	orgDir := filepath.Dir(pluginPath)
	if entries, err := os.ReadDir(orgDir); err == nil && len(entries) == 0 {
		os.Remove(orgDir)
	}
	return nil
}

// ListPlugins returns the installed plugins sorted by name.
func (r *Remover) ListPlugins() ([]InstalledPlugin, error) {
	pluginsDir := filepath.Join(r.baseDir, pluginsSubdir)

	orgs, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var plugins []InstalledPlugin
	for _, org := range orgs {
		if !org.IsDir() {
			continue
		}
		repos, err := os.ReadDir(filepath.Join(pluginsDir, org.Name()))
		if err != nil {
			continue
		}
		for _, repo := range repos {
			if !repo.IsDir() {
				continue
			}
			pluginPath := filepath.Join(pluginsDir, org.Name(), repo.Name())
			skillEntries, err := os.ReadDir(filepath.Join(pluginPath, skillsSubdir))
			if err != nil {
				continue
			}

			plugin := InstalledPlugin{
				Name: org.Name() + "/" + repo.Name(),
				Path: pluginPath,
			}
			for _, e := range skillEntries {
				if !e.IsDir() {
					continue
				}
				if _, err := os.Stat(filepath.Join(pluginPath, skillsSubdir, e.Name(), skills.SkillFileName)); err == nil {
					plugin.Skills = append(plugin.Skills, e.Name())
				}
			}
			plugins = append(plugins, plugin)
		}
	}
	return plugins, nil
}
