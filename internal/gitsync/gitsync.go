// Package gitsync publishes storage mutations to a git repository at the
// storage root. The repository is an append-only audit log: publish failures
// are surfaced as sync errors but never roll back the mutation they follow.
package gitsync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/starford/mimir/internal/apperr"
)

// Publisher is the audit-log contract consumed by the services. Publish is
// best-effort: callers report storage success regardless and surface a
// failed publish separately.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// Git implements Publisher by shelling out to the git binary.
type Git struct {
	root   string
	remote string // push target; empty disables pushing
}

// New creates a Git publisher for the repository at root. If remote is
// non-empty every successful commit is followed by a best-effort push.
func New(root, remote string) *Git {
	return &Git{root: root, remote: remote}
}

// Init creates the repository and its initial commit if the root is not
// already under git.
func (g *Git) Init(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.root, ".git")); err == nil {
		return nil
	}
	if _, err := g.run(ctx, "init"); err != nil {
		return err
	}

	readme := filepath.Join(g.root, "README.md")
	if _, err := os.Stat(readme); err != nil {
		content := "# Mimir Storage\n\nProject knowledge managed by the Mimir server.\n"
		if err := os.WriteFile(readme, []byte(content), 0o644); err != nil {
			return fmt.Errorf("gitsync: write readme: %w", err)
		}
	}
	if _, err := g.run(ctx, "add", "README.md"); err != nil {
		return err
	}
	if _, err := g.run(ctx, "commit", "-m", "Initial commit"); err != nil {
		return err
	}
	return nil
}

// Publish stages everything and commits with the given message. A clean
// tree is a no-op. When a remote is configured the commit is pushed;
// push failures are folded into the returned sync error.
func (g *Git) Publish(ctx context.Context, message string) error {
	if message == "" {
		return fmt.Errorf("%w: empty commit message", apperr.ErrInvalidInput)
	}
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return err
	}
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return nil
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return err
	}
	if g.remote != "" {
		if _, err := g.run(ctx, "push", g.remote); err != nil {
			return err
		}
	}
	return nil
}

// run executes a git command with an isolated identity so commits do not
// depend on host configuration.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{
		"-c", "user.name=Mimir",
		"-c", "user.email=mimir@localhost",
	}, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Dir = g.root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: git %s: %v: %s", apperr.ErrSync, args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Noop is a Publisher that records nothing. Used when auto-commit is
// disabled and in tests.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string) error { return nil }
