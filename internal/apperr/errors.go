// Package apperr defines the error taxonomy shared by all Mimir services.
package apperr

import (
	"errors"
	"fmt"
)

// Base sentinels. Transport layers map these onto status codes.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrSync marks a failure of the audit-log publish step. By the time a
	// sync error surfaces the file write has already been committed, so it
	// is reported separately from the mutation it follows, never instead of it.
	ErrSync = errors.New("sync failed")
)

// Entity-specific not-found errors. Each matches errors.Is(err, ErrNotFound)
// so callers can react either to the broad class or to the exact entity.
var (
	ErrProjectNotFound  = fmt.Errorf("project %w", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)
	ErrSectionNotFound  = fmt.Errorf("section %w", ErrNotFound)
	ErrChapterNotFound  = fmt.Errorf("chapter %w", ErrNotFound)
	ErrTodoNotFound     = fmt.Errorf("todo list %w", ErrNotFound)
	ErrTaskNotFound     = fmt.Errorf("task %w", ErrNotFound)
)
