package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const watchDebounce = 200 * time.Millisecond

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Check skills for authoring problems",
	Long: `Lint skill directories: front matter structure, description search optimization,
trigger coverage, token cost, cross-platform compatibility and reference links.

A path may be a skill directory, its SKILL.md, or a directory of skills. With no
path the current directory is used. Exits with status 1 when any issue is found.
With --watch the skills are linted again whenever a file in them changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		watch, _ := cmd.Flags().GetBool("watch")
		asJSON, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		presenter.SetQuiet(quiet)

		if len(args) == 0 {
			args = []string{"."}
		}
		targets, err := expandLintTargets(args)
		if err != nil {
			presenter.Error(err, "Failed to find skills")
			os.Exit(1)
		}
		if len(targets) == 0 {
			presenter.Warning("No skills found")
			os.Exit(1)
		}

		if !watch {
			if runLint(targets, asJSON) {
				os.Exit(1)
			}
			return
		}

		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := watchLint(ctx, targets, asJSON); err != nil {
			presenter.Error(err, "Watch failed")
			os.Exit(1)
		}
	},
}

func init() {
	lintCmd.Flags().BoolP("watch", "w", false, "Re-run when skill files change")
	lintCmd.Flags().Bool("json", false, "Output findings as JSON")
	lintCmd.Flags().BoolP("quiet", "q", false, "Only show issues")
}

// expandLintTargets resolves each path to skill directories or files. A
// directory without a SKILL.md contributes its immediate subdirectories that
// have one.
func expandLintTargets(paths []string) ([]string, error) {
	var targets []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot lint %s", p)
		}
		if !info.IsDir() || hasSkillFile(p) {
			targets = append(targets, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", p)
		}
		for _, e := range entries {
			sub := filepath.Join(p, e.Name())
			if e.IsDir() && hasSkillFile(sub) {
				targets = append(targets, sub)
			}
		}
	}
	return targets, nil
}

func hasSkillFile(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), skills.SkillFileName) {
			return true
		}
	}
	return false
}

// lintTargets lints every target. A target that cannot be read becomes a
// report with a single issue.
func lintTargets(targets []string) []*lint.Report {
	reports := make([]*lint.Report, 0, len(targets))
	for _, target := range targets {
		report, err := lint.Lint(target)
		if err != nil {
			report = &lint.Report{
				Skill: filepath.Base(target),
				Path:  target,
				Findings: []lint.Finding{{
					Analyzer: "structure",
					Severity: lint.SeverityIssue,
					Message:  err.Error(),
				}},
			}
		}
		reports = append(reports, report)
	}
	return reports
}

// runLint prints the reports and returns true when any has issues.
func runLint(targets []string, asJSON bool) bool {
	reports := lintTargets(targets)

	failed := false
	for _, r := range reports {
		failed = failed || r.HasIssues()
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(reports)
		return failed
	}

	for _, r := range reports {
		presenter.Section(fmt.Sprintf("%s (%s)", r.Skill, r.Path))
		for _, f := range r.Findings {
			presenter.Finding(string(f.Severity), f.Message)
		}
	}

	issues, warnings := 0, 0
	for _, r := range reports {
		issues += r.Count(lint.SeverityIssue)
		warnings += r.Count(lint.SeverityWarning)
	}
	summary := fmt.Sprintf("%d skill(s): %d issue(s), %d warning(s)", len(reports), issues, warnings)
	if failed {
		presenter.Error(errors.New(summary), "Lint failed")
	} else {
		presenter.Success(summary)
	}
	return failed
}

// watchLint lints once and again after every burst of changes under the
// target directories, until ctx is cancelled.
func watchLint(ctx context.Context, targets []string, asJSON bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	for _, dir := range watchDirs(targets) {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
		logger.G(ctx).WithField("dir", dir).Debug("watching for changes")
	}

	runLint(targets, asJSON)
	presenter.Info("Watching for changes, press Ctrl+C to stop")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.G(ctx).WithField("file", event.Name).WithField("op", event.Op.String()).Debug("change detected")
			pending = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("file watcher error")
		case <-pending:
			pending = nil
			presenter.Separator()
			runLint(targets, asJSON)
		}
	}
}

// watchDirs returns each skill directory and its references directory when
// present, without duplicates.
func watchDirs(targets []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, target := range targets {
		dir := target
		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			dir = filepath.Dir(target)
		}
		add(dir)
		if info, err := os.Stat(filepath.Join(dir, "references")); err == nil && info.IsDir() {
			add(filepath.Join(dir, "references"))
		}
	}
	return dirs
}
