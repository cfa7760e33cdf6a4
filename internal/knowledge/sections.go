package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/document"
)

// sectionPrefix is the heading marker a section header argument must carry.
const sectionPrefix = "## "

// parseHeader validates a section header argument ("## Title") and returns
// the bare title. Sections are addressed by their full heading line, so a
// missing marker is a caller error, not a lookup miss.
func parseHeader(header string) (string, error) {
	if !strings.HasPrefix(header, sectionPrefix) {
		return "", fmt.Errorf("%w: section header must start with %q", apperr.ErrInvalidInput, sectionPrefix)
	}
	title := strings.TrimSpace(header[len(sectionPrefix):])
	if title == "" {
		return "", fmt.Errorf("%w: section header has no title", apperr.ErrInvalidInput)
	}
	return title, nil
}

// asSectionErr renames chapter-level mutator errors for the main document,
// where the same structure is called a section.
func asSectionErr(err error) error {
	if errors.Is(err, apperr.ErrChapterNotFound) {
		return fmt.Errorf("%w (%v)", apperr.ErrSectionNotFound, err)
	}
	return err
}

// AddSection inserts a new section into the main document. position is one
// of end, before, after; before and after require referenceHeader.
func (s *Service) AddSection(ctx context.Context, projectID, header, content, position, referenceHeader string) error {
	title, err := parseHeader(header)
	if err != nil {
		return err
	}
	pos, err := document.ParsePosition(position)
	if err != nil {
		return err
	}
	ref := ""
	if referenceHeader != "" {
		if ref, err = parseHeader(referenceHeader); err != nil {
			return err
		}
	}

	err = s.mutateMain(projectID, func(chapters []document.Chapter) ([]document.Chapter, error) {
		out, err := document.AddChapter(chapters, document.Chapter{Title: title, Body: content}, pos, ref)
		return out, asSectionErr(err)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Add section %q to main.md for project: %s", title, projectID))
	return nil
}

// UpdateSection replaces the body of an existing section; its heading and
// position are unchanged.
func (s *Service) UpdateSection(ctx context.Context, projectID, header, content string) error {
	title, err := parseHeader(header)
	if err != nil {
		return err
	}
	err = s.mutateMain(projectID, func(chapters []document.Chapter) ([]document.Chapter, error) {
		out, err := document.UpdateChapter(chapters, title, content, "")
		return out, asSectionErr(err)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Update section %q in main.md for project: %s", title, projectID))
	return nil
}

// RemoveSection deletes a section from the main document. Removing the last
// section leaves a document with only its introduction, which is valid.
func (s *Service) RemoveSection(ctx context.Context, projectID, header string) error {
	title, err := parseHeader(header)
	if err != nil {
		return err
	}
	err = s.mutateMain(projectID, func(chapters []document.Chapter) ([]document.Chapter, error) {
		out, err := document.RemoveChapter(chapters, title)
		return out, asSectionErr(err)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Remove section %q from main.md for project: %s", title, projectID))
	return nil
}

// mutateMain runs one read-decode-mutate-encode-write cycle against the
// project's main document under its path lock. The project and the file
// must already exist: section mutations never create documents.
func (s *Service) mutateMain(projectID string, fn func([]document.Chapter) ([]document.Chapter, error)) error {
	p, ok, err := s.projects.ResolveForRead(projectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", apperr.ErrProjectNotFound, projectID)
	}

	return s.locks.WithLock(p.MainFile(), func() error {
		exists, err := s.store.Exists(p.MainFile())
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: main.md for project %q", apperr.ErrDocumentNotFound, projectID)
		}
		raw, err := s.store.Read(p.MainFile())
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
		if !doc.Meta.IsZero() {
			doc.Meta.Updated = s.now()
		}

		out, err := document.EncodeDocument(doc)
		if err != nil {
			return err
		}
		return s.store.Write(p.MainFile(), out)
	})
}
