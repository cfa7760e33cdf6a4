// Package watch observes the storage root for edits made outside the server
// (an editor, a git pull) and turns them into broker change events plus a
// debounced audit-log commit.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/sse"
)

const commitDebounce = 2 * time.Second

// Watch runs until ctx is cancelled. New directories created at runtime are
// added to the watch list. Changes from the server's own atomic writes also
// arrive here; the debounced commit is a no-op for those because the tree is
// already clean by the time it fires.
func Watch(ctx context.Context, root string, broker *sse.Broker, publisher gitsync.Publisher, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var commitTimer *time.Timer
	var commitCh <-chan time.Time

	scheduleCommit := func() {
		if commitTimer == nil {
			commitTimer = time.NewTimer(commitDebounce)
			commitCh = commitTimer.C
		} else {
			commitTimer.Reset(commitDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if commitTimer != nil {
				commitTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-commitCh:
			if err := publisher.Publish(ctx, "External edit"); err != nil {
				logger.Warn("watcher: audit publish failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if ignored(absPath) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !watchedFile(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = sse.ChangeCreated
			case ev.Op&fsnotify.Write != 0:
				kind = sse.ChangeUpdated
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = sse.ChangeDeleted
			default:
				continue
			}

			logger.Debug("watcher: change", slog.String("path", rel), slog.String("kind", kind))
			broker.Publish(sse.Change{
				Kind:    kind,
				Project: projectOf(rel),
				Path:    rel,
				Origin:  "external",
			})
			scheduleCommit()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// ignored filters the git directory and in-flight atomic-write temp files.
func ignored(absPath string) bool {
	base := filepath.Base(absPath)
	if strings.HasPrefix(base, ".mimir-tmp-") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(absPath), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}

func watchedFile(absPath string) bool {
	switch filepath.Ext(absPath) {
	case ".md", ".yaml":
		return true
	}
	return false
}

// projectOf extracts the project slug from a root-relative path, or "" for
// files outside the projects tree.
func projectOf(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) >= 2 && parts[0] == "projects" {
		return parts[1]
	}
	return ""
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
