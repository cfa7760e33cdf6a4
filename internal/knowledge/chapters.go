package knowledge

import (
	"context"
	"fmt"

	"github.com/starford/mimir/internal/document"
)

// AddChapter inserts a chapter into a knowledge document at the given
// position (end, before, after). Duplicate titles are rejected before any
// structural change.
func (s *Service) AddChapter(ctx context.Context, projectID, filename, title, content, position, referenceTitle string) error {
	pos, err := document.ParsePosition(position)
	if err != nil {
		return err
	}
	err = s.mutateFile(projectID, filename, func(chapters []document.Chapter) ([]document.Chapter, error) {
		return document.AddChapter(chapters, document.Chapter{Title: title, Body: content}, pos, referenceTitle)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Add chapter %q to %s in project %s", title, filename, projectID))
	return nil
}

// UpdateChapter replaces the body of a chapter matched by exact title. All
// other content, including metadata, the introduction, and sibling
// chapters, is preserved.
func (s *Service) UpdateChapter(ctx context.Context, projectID, filename, title, content, summary string) error {
	err := s.mutateFile(projectID, filename, func(chapters []document.Chapter) ([]document.Chapter, error) {
		return document.UpdateChapter(chapters, title, content, summary)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Update chapter %q in %s", title, filename))
	return nil
}

// RemoveChapter deletes a chapter from a knowledge document. The document
// remains valid with zero chapters.
func (s *Service) RemoveChapter(ctx context.Context, projectID, filename, title string) error {
	err := s.mutateFile(projectID, filename, func(chapters []document.Chapter) ([]document.Chapter, error) {
		return document.RemoveChapter(chapters, title)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Remove chapter %q from %s", title, filename))
	return nil
}

// mutateFile runs one read-decode-mutate-encode-write cycle against a
// knowledge document under its path lock, refreshing the updated timestamp.
func (s *Service) mutateFile(projectID, filename string, fn func([]document.Chapter) ([]document.Chapter, error)) error {
	_, filePath, err := s.resolveFile(projectID, filename, true)
	if err != nil {
		return err
	}

	return s.locks.WithLock(filePath, func() error {
		raw, err := s.store.Read(filePath)
		if err != nil {
			return err
		}
		doc, err := document.DecodeDocument(raw)
		if err != nil {
			return err
		}

		chapters, err := fn(doc.Chapters)
		if err != nil {
			return err
		}
		doc.Chapters = chapters
		doc.Meta.Updated = s.now()

		out, err := document.EncodeDocument(doc)
		if err != nil {
			return err
		}
		return s.store.Write(filePath, out)
	})
}
