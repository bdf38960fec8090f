// Package plugins installs skills from GitHub repositories. A plugin is an
// "org/repo" checkout whose skills live under
// <base>/plugins/<org>/<repo>/skills and are registered as
// "org/repo/<skill>". Standalone skills are copied into a skills directory
// with the same helpers.
package plugins

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

const (
	cloneAttempts = 3
	cloneDelay    = time.Second
	lockFileName  = ".install.lock"
)

// ValidateRepoName validates a GitHub repository name format.
// Expected format: "owner/repo" (e.g., "acme/skills").
func ValidateRepoName(repo string) error {
	if repo == "" {
		return errors.New("repository name cannot be empty")
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 {
		return errors.Errorf("invalid repository format %q: expected 'owner/repo'", repo)
	}
	if parts[0] == "" || parts[1] == "" {
		return errors.Errorf("invalid repository format %q: owner and repo cannot be empty", repo)
	}
	if parts[0] == "." || parts[0] == ".." || parts[1] == "." || parts[1] == ".." {
		return errors.Errorf("invalid repository format %q", repo)
	}
	return nil
}

// ParseRepoAndRef splits "owner/repo@ref" into its repository and ref.
func ParseRepoAndRef(repo string) (string, string) {
	if idx := strings.LastIndex(repo, "@"); idx != -1 {
		return repo[:idx], repo[idx+1:]
	}
	return repo, ""
}

// CloneFunc fetches repo at ref (default branch when empty) into dest.
type CloneFunc func(ctx context.Context, repo, ref, dest string) error

// GHClone clones with the gh CLI, retrying transient failures. A
// repository that does not exist is not retried.
func GHClone(ctx context.Context, repo, ref, dest string) error {
	if _, err := exec.LookPath("gh"); err != nil {
		return errors.New("gh CLI is not installed, see https://cli.github.com")
	}

	args := []string{"repo", "clone", repo, dest, "--", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}

	return retry.Do(
		func() error {
			if err := os.RemoveAll(dest); err != nil {
				return retry.Unrecoverable(err)
			}
			output, err := exec.CommandContext(ctx, "gh", args...).CombinedOutput()
			if err == nil {
				return nil
			}
			err = errors.Wrapf(err, "failed to clone repository: %s", strings.TrimSpace(string(output)))
			if strings.Contains(string(output), "Could not resolve to a Repository") {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(cloneAttempts),
		retry.Delay(cloneDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("repo", repo).Warn("clone failed, retrying")
		}),
	)
}

// FindSkillDirs returns every directory under root holding a SKILL.md,
// sorted, ignoring .git and node_modules.
func FindSkillDirs(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+skills.SkillFileName, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrap(err, "failed to search for skills")
	}

	var dirs []string
	for _, m := range matches {
		if ignoredPath(m) {
			continue
		}
		dirs = append(dirs, filepath.Join(root, filepath.FromSlash(path.Dir(m))))
	}
	sort.Strings(dirs)
	return dirs, nil
}

func ignoredPath(slashPath string) bool {
	for _, part := range strings.Split(slashPath, "/") {
		if part == ".git" || part == "node_modules" {
			return true
		}
	}
	return false
}

// LockDir takes the install lock of dir, creating dir if needed. Callers
// must call the returned unlock function.
func LockDir(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(dir, lockFileName)).Lock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire install lock")
	}
	return unlock, nil
}

// CopyDir copies src to dst recursively, skipping .git.
func CopyDir(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return os.MkdirAll(destPath, info.Mode())
		}

		return copyFile(path, destPath)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
