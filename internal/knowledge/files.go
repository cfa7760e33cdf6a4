package knowledge

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/document"
	"github.com/starford/mimir/internal/project"
)

// ChapterInput is one chapter supplied by a caller creating a document.
type ChapterInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChapterInfo is the read-side view of a chapter.
type ChapterInfo struct {
	Title   string `json:"title"`
	Level   int    `json:"level"`
	Summary string `json:"summary"`
}

// FileInfo is a knowledge file listing entry.
type FileInfo struct {
	Filename string            `json:"filename"`
	Metadata document.Metadata `json:"metadata"`
}

// FileDetail is the full representation of a knowledge file.
type FileDetail struct {
	Filename     string            `json:"filename"`
	Metadata     document.Metadata `json:"metadata"`
	Introduction string            `json:"introduction"`
	Chapters     []ChapterInfo     `json:"chapters"`
	Content      string            `json:"content"`
}

// CreateFile creates a structured knowledge document. The filename is
// slugified; at least one keyword and a title plus content per chapter are
// required. Input validation runs before any file is touched.
func (s *Service) CreateFile(ctx context.Context, projectID, filename, title, introduction string, keywords []string, chapters []ChapterInput) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("%w: filename is required", apperr.ErrInvalidInput)
	}
	if len(keywords) == 0 {
		return "", fmt.Errorf("%w: at least one keyword is required", apperr.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(chapters))
	for i, ch := range chapters {
		if ch.Title == "" || ch.Content == "" {
			return "", fmt.Errorf("%w: chapter %d missing title or content", apperr.ErrInvalidInput, i)
		}
		if _, dup := seen[ch.Title]; dup {
			return "", fmt.Errorf("%w: duplicate chapter title %q", apperr.ErrInvalidInput, ch.Title)
		}
		seen[ch.Title] = struct{}{}
	}

	safeName := slugFilename(filename)
	p, err := s.projects.ResolveForWrite(projectID)
	if err != nil {
		return "", err
	}
	filePath := path.Join(p.KnowledgeDir(), safeName)

	err = s.locks.WithLock(filePath, func() error {
		exists, err := s.store.Exists(filePath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, safeName)
		}

		now := s.now()
		doc := &document.Document{
			Meta: document.Metadata{
				Title:    title,
				Keywords: keywords,
				Created:  now,
				Updated:  now,
			},
			Introduction: introduction,
		}
		for _, ch := range chapters {
			doc.Chapters = append(doc.Chapters, document.Chapter{
				Title:   ch.Title,
				Level:   2,
				Body:    ch.Content,
				Summary: document.Summarize(ch.Content),
			})
		}

		raw, err := document.EncodeDocument(doc)
		if err != nil {
			return err
		}
		return s.store.Write(filePath, raw)
	})
	if err != nil {
		return "", err
	}

	s.publish(ctx, fmt.Sprintf("Create knowledge file: %s for project %s", safeName, projectID))
	return path.Join("knowledge", safeName), nil
}

// GetFile returns a parsed knowledge file. A missing project or file is
// exists=false, not an error.
func (s *Service) GetFile(_ context.Context, projectID, filename string) (*FileDetail, bool, error) {
	p, filePath, err := s.resolveFile(projectID, filename, false)
	if err != nil || p.ID == "" {
		return nil, false, err
	}
	raw, err := s.store.Read(filePath)
	if err != nil {
		return nil, false, err
	}
	doc, err := document.DecodeDocument(raw)
	if err != nil {
		return nil, false, err
	}
	return &FileDetail{
		Filename:     filename,
		Metadata:     doc.Meta,
		Introduction: doc.Introduction,
		Chapters:     chapterInfos(doc.Chapters),
		Content:      string(raw),
	}, true, nil
}

// DeleteFile permanently removes a knowledge document.
func (s *Service) DeleteFile(ctx context.Context, projectID, filename string) error {
	_, filePath, err := s.resolveFile(projectID, filename, true)
	if err != nil {
		return err
	}
	if err := s.locks.WithLock(filePath, func() error { return s.store.Delete(filePath) }); err != nil {
		return err
	}
	s.publish(ctx, fmt.Sprintf("Delete knowledge file: %s from project %s", filename, projectID))
	return nil
}

// ListFiles returns metadata for every knowledge document in the project.
// Files that fail to parse are skipped, not fatal.
func (s *Service) ListFiles(_ context.Context, projectID string) ([]FileInfo, error) {
	p, ok, err := s.projects.ResolveForRead(projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []FileInfo{}, nil
	}
	names, err := s.store.ListFiles(p.KnowledgeDir())
	if err != nil {
		return nil, err
	}
	out := []FileInfo{}
	for _, name := range names {
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		raw, err := s.store.Read(path.Join(p.KnowledgeDir(), name))
		if err != nil {
			continue
		}
		meta, _, err := document.Decode(raw)
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Filename: name, Metadata: meta})
	}
	return out, nil
}

// ListChapters returns the chapter structure of one knowledge document.
func (s *Service) ListChapters(_ context.Context, projectID, filename string) (string, []ChapterInfo, error) {
	_, filePath, err := s.resolveFile(projectID, filename, true)
	if err != nil {
		return "", nil, err
	}
	raw, err := s.store.Read(filePath)
	if err != nil {
		return "", nil, err
	}
	doc, err := document.DecodeDocument(raw)
	if err != nil {
		return "", nil, err
	}
	return doc.Meta.Title, chapterInfos(doc.Chapters), nil
}

// resolveFile validates a filename, resolves the project, and checks file
// existence. With required=true a missing project or file is a not-found
// error; otherwise both are reported as a zero Project.
func (s *Service) resolveFile(projectID, filename string, required bool) (project.Project, string, error) {
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		return project.Project{}, "", fmt.Errorf("%w: bad filename %q", apperr.ErrInvalidInput, filename)
	}
	p, ok, err := s.projects.ResolveForRead(projectID)
	if err != nil {
		return project.Project{}, "", err
	}
	if !ok {
		if required {
			return project.Project{}, "", fmt.Errorf("%w: %q", apperr.ErrProjectNotFound, projectID)
		}
		return project.Project{}, "", nil
	}
	filePath := path.Join(p.KnowledgeDir(), filename)
	exists, err := s.store.Exists(filePath)
	if err != nil {
		return project.Project{}, "", err
	}
	if !exists {
		if required {
			return project.Project{}, "", fmt.Errorf("%w: %s", apperr.ErrDocumentNotFound, filename)
		}
		return project.Project{}, "", nil
	}
	return p, filePath, nil
}

func chapterInfos(chapters []document.Chapter) []ChapterInfo {
	out := make([]ChapterInfo, len(chapters))
	for i, ch := range chapters {
		out[i] = ChapterInfo{Title: ch.Title, Level: ch.Level, Summary: ch.Summary}
	}
	return out
}

// slugFilename slugifies a document filename, tolerating an existing .md
// suffix.
func slugFilename(filename string) string {
	base := filename
	if strings.HasSuffix(strings.ToLower(filename), ".md") {
		base = filename[:len(filename)-3]
	}
	return project.Slugify(base) + ".md"
}
