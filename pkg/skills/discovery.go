package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/pkg/errors"
)

// Discovery finds skill directories in precedence order.
type Discovery struct {
	skillDirs  []string
	pluginDirs []pluginDirConfig
	allowed    []string
}

// pluginDirConfig represents a plugin directory with its prefix
type pluginDirConfig struct {
	dir    string
	prefix string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithExtraDirs appends directories after the ones already configured, so
// they have the lowest precedence.
func WithExtraDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = append(d.skillDirs, dirs...)
		return nil
	}
}

// WithPluginRoot adds every "<org>/<repo>/skills" directory found under root.
// Skills from a plugin are registered as "<org>/<repo>/<name>".
func WithPluginRoot(root string) Option {
	return func(d *Discovery) error {
		d.addPluginDirs(root)
		return nil
	}
}

// WithAllowlist restricts discovery to the named skills. Plugin skills are
// matched by their prefixed name.
func WithAllowlist(names ...string) Option {
	return func(d *Discovery) error {
		d.allowed = names
		return nil
	}
}

// WithDefaultDirs initializes with default skill directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./.skillkit/skills",                          // Repo-local (highest precedence)
			filepath.Join(homeDir, ".skillkit", "skills"), // User-global
		}

		d.pluginDirs = []pluginDirConfig{}
		d.addPluginDirs("./.skillkit/plugins")
		d.addPluginDirs(filepath.Join(homeDir, ".skillkit", "plugins"))

		return nil
	}
}

// addPluginDirs scans a plugins directory and adds all plugin skill directories
// Supports nested org/repo directory structure
func (d *Discovery) addPluginDirs(pluginsDir string) {
	_ = filepath.Walk(pluginsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}

		skillsDir := filepath.Join(path, "skills")
		if _, err := os.Stat(skillsDir); err != nil {
			return nil
		}

		relPath, err := filepath.Rel(pluginsDir, path)
		if err != nil || relPath == "." {
			return nil
		}

		d.pluginDirs = append(d.pluginDirs, pluginDirConfig{
			dir:    skillsDir,
			prefix: filepath.ToSlash(relPath) + "/",
		})

		return filepath.SkipDir
	})
}

// NewDiscovery creates a new skill discovery instance. Without options the
// default directories are used.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// Dirs returns the configured directories in precedence order.
func (d *Discovery) Dirs() []string {
	dirs := append([]string{}, d.skillDirs...)
	for _, p := range d.pluginDirs {
		dirs = append(dirs, p.dir)
	}
	return dirs
}

// DiscoverSkills parses every skill found in the configured directories, in
// precedence order. Duplicates are returned as found; Populate decides which
// one wins. Documents that fail to parse are reported in the returned error
// alongside the skills that did parse.
func (d *Discovery) DiscoverSkills(ctx context.Context) ([]*Descriptor, error) {
	var (
		found    []*Descriptor
		problems []error
	)

	for _, dir := range d.skillDirs {
		found, problems = d.discoverSkillsFromDir(ctx, dir, "", found, problems)
	}
	for _, pluginDir := range d.pluginDirs {
		found, problems = d.discoverSkillsFromDir(ctx, pluginDir.dir, pluginDir.prefix, found, problems)
	}

	return FilterByAllowlist(found, d.allowed), joinProblems(problems)
}

func (d *Discovery) discoverSkillsFromDir(ctx context.Context, dir, prefix string, found []*Descriptor, problems []error) ([]*Descriptor, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(ctx).WithError(err).WithField("dir", dir).Debug("skipping unreadable skill directory")
		}
		return found, problems
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		// os.Stat follows symlinks so linked skill directories are picked up.
		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skillPath := filepath.Join(entryPath, SkillFileName)
		content, err := os.ReadFile(skillPath)
		if err != nil {
			if !os.IsNotExist(err) {
				problems = append(problems, errors.Wrapf(err, "failed to read %s", skillPath))
			}
			continue
		}

		descriptor, err := Parse(content, skillPath)
		if err != nil {
			problems = append(problems, err)
			continue
		}

		descriptor.Name = prefix + descriptor.Name
		descriptor.Directory = entryPath
		found = append(found, descriptor)
	}

	return found, problems
}

// Report summarizes a Populate run.
type Report struct {
	Registered []string
	Shadowed   []*Descriptor
	Problems   []error
}

// Err returns the collected problems as a single error, or nil.
func (r *Report) Err() error {
	return joinProblems(r.Problems)
}

// Populate discovers skills and registers them into registry. The first
// skill found for a name wins; later ones are shadowed and logged.
func (d *Discovery) Populate(ctx context.Context, registry *Registry) *Report {
	report := &Report{}

	found, err := d.DiscoverSkills(ctx)
	if err != nil {
		report.Problems = append(report.Problems, unwrapProblems(err)...)
	}

	for _, descriptor := range found {
		err := registry.Register(descriptor)
		switch {
		case err == nil:
			report.Registered = append(report.Registered, descriptor.Name)
		case errors.Is(err, ErrDuplicateIdentifier):
			logger.G(ctx).WithField("skill", descriptor.Name).
				WithField("path", descriptor.Path).
				Warn("skill shadowed by an earlier definition")
			report.Shadowed = append(report.Shadowed, descriptor)
		default:
			report.Problems = append(report.Problems, err)
		}
	}

	for _, problem := range report.Problems {
		logger.G(ctx).WithError(problem).Warn("skill not registered")
	}

	return report
}

// FilterByAllowlist keeps only the named skills, preserving order. An
// empty allowlist keeps everything.
func FilterByAllowlist(descriptors []*Descriptor, allowed []string) []*Descriptor {
	if len(allowed) == 0 {
		return descriptors
	}

	allow := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allow[name] = true
	}

	filtered := make([]*Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if allow[d.Name] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
