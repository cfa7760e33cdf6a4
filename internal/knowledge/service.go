// Package knowledge coordinates project resolution, locking, the document
// codec, and the audit log into the operation surface for main documents
// and knowledge files.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/search"
	"github.com/starford/mimir/internal/storage"
)

// Service implements the document operations. Every mutation follows the
// same cycle: resolve the path, take the per-path lock, read-decode-mutate-
// encode-write, release the lock, then publish to the audit log outside the
// critical section.
type Service struct {
	store    storage.Provider
	locks    *storage.Locker
	projects *project.Resolver
	sync     gitsync.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a knowledge service.
func NewService(store storage.Provider, locks *storage.Locker, projects *project.Resolver, sync gitsync.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		locks:    locks,
		projects: projects,
		sync:     sync,
		logger:   logger,
		now:      time.Now,
	}
}

// GetMain returns the main instructions document. A missing project or file
// is exists=false, not an error.
func (s *Service) GetMain(_ context.Context, projectID string) (string, bool, error) {
	p, ok, err := s.projects.ResolveForRead(projectID)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	exists, err := s.store.Exists(p.MainFile())
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}
	raw, err := s.store.Read(p.MainFile())
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

// UpdateMain creates or replaces the main instructions document, creating
// the project on first write.
func (s *Service) UpdateMain(ctx context.Context, projectID, content string) error {
	p, err := s.projects.ResolveForWrite(projectID)
	if err != nil {
		return err
	}
	err = s.locks.WithLock(p.MainFile(), func() error {
		return s.store.Write(p.MainFile(), []byte(content))
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Update main.md for project: %s", projectID))
	return nil
}

// DeleteProject removes the project directory tree and its index mapping.
// Tree removal spans multiple files and is not atomic; a crash mid-delete
// can leave a partial tree behind.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	p, ok, err := s.projects.ResolveForRead(projectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", apperr.ErrProjectNotFound, projectID)
	}
	if err := s.store.DeleteTree(p.Dir()); err != nil {
		return err
	}
	if err := s.projects.Remove(projectID); err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Delete project: %s", projectID))
	return nil
}

// ListProjects returns all known projects.
func (s *Service) ListProjects(_ context.Context) ([]project.Project, error) {
	return s.projects.List()
}

// Search scans the project's knowledge documents for the space-separated
// keywords in query. An unknown project yields an empty report.
func (s *Service) Search(_ context.Context, projectID, query string) (*search.Report, error) {
	p, ok, err := s.projects.ResolveForRead(projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &search.Report{Results: []search.DocumentMatch{}}, nil
	}
	return search.Search(s.store, p.KnowledgeDir(), strings.Fields(query))
}

// Sync retries the audit-log publish explicitly. Unlike the per-mutation
// publishes this one reports its error to the caller.
func (s *Service) Sync(ctx context.Context) error {
	return s.sync.Publish(ctx, "Manual sync")
}

// publish records the mutation in the audit log. Failures are logged and
// dropped: the storage write already succeeded and a later explicit Sync
// can retry.
func (s *Service) publish(ctx context.Context, message string) {
	if err := s.sync.Publish(ctx, message); err != nil {
		s.logger.Warn("audit publish failed",
			slog.String("message", message),
			slog.String("error", err.Error()))
	}
}
