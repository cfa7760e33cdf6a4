package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/storage"
)

func testService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	locks := storage.NewLocker()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewService(store, locks, project.NewResolver(store, locks), gitsync.Noop{}, logger)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func TestGetMain_UnknownProject(t *testing.T) {
	s := testService(t)
	content, exists, err := s.GetMain(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetMain: %v", err)
	}
	if exists || content != "" {
		t.Errorf("exists = %v, content = %q", exists, content)
	}
	// The read must not have materialized the project.
	ps, _ := s.ListProjects(context.Background())
	if len(ps) != 0 {
		t.Errorf("ghost project created: %v", ps)
	}
}

func TestUpdateThenGetMain(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	if err := s.UpdateMain(ctx, "My Project", "# Instructions\n\nDo things.\n"); err != nil {
		t.Fatalf("UpdateMain: %v", err)
	}
	content, exists, err := s.GetMain(ctx, "My Project")
	if err != nil || !exists {
		t.Fatalf("GetMain: exists=%v err=%v", exists, err)
	}
	if content != "# Instructions\n\nDo things.\n" {
		t.Errorf("content = %q", content)
	}
}

func TestSectionLifecycle(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_ = s.UpdateMain(ctx, "p", "Intro\n\n## Build\n\nmake\n\n## Test\n\ngo test\n")

	if err := s.AddSection(ctx, "p", "## Deploy", "ship it", "after", "## Build"); err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	content, _, _ := s.GetMain(ctx, "p")
	wantOrder := []string{"## Build", "## Deploy", "## Test"}
	last := -1
	for _, h := range wantOrder {
		i := strings.Index(content, h+"\n")
		if i < 0 || i < last {
			t.Fatalf("section order wrong in:\n%s", content)
		}
		last = i
	}
	if !strings.HasPrefix(content, "Intro") {
		t.Errorf("introduction lost:\n%s", content)
	}

	if err := s.UpdateSection(ctx, "p", "## Deploy", "use the pipeline"); err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	content, _, _ = s.GetMain(ctx, "p")
	if !strings.Contains(content, "use the pipeline") || strings.Contains(content, "ship it") {
		t.Errorf("update not applied:\n%s", content)
	}

	if err := s.RemoveSection(ctx, "p", "## Test"); err != nil {
		t.Fatalf("RemoveSection: %v", err)
	}
	content, _, _ = s.GetMain(ctx, "p")
	if strings.Contains(content, "## Test") {
		t.Errorf("section not removed:\n%s", content)
	}
}

func TestSectionErrors(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if err := s.UpdateSection(ctx, "ghost", "## A", "x"); !errors.Is(err, apperr.ErrProjectNotFound) {
		t.Errorf("unknown project err = %v", err)
	}

	_ = s.UpdateMain(ctx, "p", "## A\n\nbody\n")
	if err := s.UpdateSection(ctx, "p", "## Missing", "x"); !errors.Is(err, apperr.ErrSectionNotFound) {
		t.Errorf("missing section err = %v", err)
	}
	if err := s.AddSection(ctx, "p", "## A", "dup", "end", ""); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := s.AddSection(ctx, "p", "## B", "x", "before", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("missing reference err = %v", err)
	}
	if err := s.AddSection(ctx, "p", "no marker", "x", "end", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad header err = %v", err)
	}
}

func TestFailedMutationLeavesFileUnchanged(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_ = s.UpdateMain(ctx, "p", "## A\n\nbody\n")
	before, _, _ := s.GetMain(ctx, "p")

	_ = s.AddSection(ctx, "p", "## A", "dup", "end", "")
	after, _, _ := s.GetMain(ctx, "p")
	if before != after {
		t.Errorf("document changed by failed mutation:\nbefore: %q\nafter: %q", before, after)
	}
}

func TestConcurrentAddSections(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_ = s.UpdateMain(ctx, "p", "Intro\n")

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			header := fmt.Sprintf("## Section %02d", i)
			if err := s.AddSection(ctx, "p", header, fmt.Sprintf("body %d", i), "end", ""); err != nil {
				t.Errorf("AddSection %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	content, _, _ := s.GetMain(ctx, "p")
	for i := 0; i < n; i++ {
		header := fmt.Sprintf("## Section %02d", i)
		if strings.Count(content, header+"\n") != 1 {
			t.Errorf("header %q missing or duplicated:\n%s", header, content)
		}
	}
	if !strings.HasPrefix(content, "Intro") {
		t.Errorf("introduction lost under concurrency:\n%s", content)
	}
}

func TestCreateAndGetFile(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	fp, err := s.CreateFile(ctx, "p", "API Guide", "API Guide", "All about the API.",
		[]string{"api"}, []ChapterInput{{Title: "Auth", Content: "Use tokens."}})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if fp != "knowledge/api-guide.md" {
		t.Errorf("filepath = %q", fp)
	}

	detail, exists, err := s.GetFile(ctx, "p", "api-guide.md")
	if err != nil || !exists {
		t.Fatalf("GetFile: exists=%v err=%v", exists, err)
	}
	if detail.Metadata.Title != "API Guide" {
		t.Errorf("title = %q", detail.Metadata.Title)
	}
	if detail.Metadata.Created.IsZero() || detail.Metadata.Updated.IsZero() {
		t.Error("timestamps not set")
	}
	if detail.Introduction != "All about the API." {
		t.Errorf("introduction = %q", detail.Introduction)
	}
	if len(detail.Chapters) != 1 || detail.Chapters[0].Title != "Auth" {
		t.Errorf("chapters = %+v", detail.Chapters)
	}
}

func TestCreateFile_Validation(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.CreateFile(ctx, "p", "f", "t", "i", nil, nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("no keywords err = %v", err)
	}
	if _, err := s.CreateFile(ctx, "p", "f", "t", "i", []string{"k"},
		[]ChapterInput{{Title: "", Content: "x"}}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty chapter title err = %v", err)
	}
	// Validation failures must not create the project.
	ps, _ := s.ListProjects(ctx)
	if len(ps) != 0 {
		t.Errorf("invalid input materialized a project: %v", ps)
	}
}

func TestCreateFile_Duplicate(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, _ = s.CreateFile(ctx, "p", "guide", "G", "i", []string{"k"}, nil)
	_, err := s.CreateFile(ctx, "p", "Guide", "G", "i", []string{"k"}, nil)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want already exists", err)
	}
}

func TestChapterLifecycle(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, _ = s.CreateFile(ctx, "p", "doc", "Doc", "Intro", []string{"k"},
		[]ChapterInput{{Title: "A", Content: "1"}, {Title: "B", Content: "2"}})

	if err := s.AddChapter(ctx, "p", "doc.md", "C", "3", "after", "A"); err != nil {
		t.Fatalf("AddChapter: %v", err)
	}
	_, infos, err := s.ListChapters(ctx, "p", "doc.md")
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	got := make([]string, len(infos))
	for i, c := range infos {
		got[i] = c.Title
	}
	if len(got) != 3 || got[0] != "A" || got[1] != "C" || got[2] != "B" {
		t.Fatalf("chapter order = %v, want [A C B]", got)
	}

	if err := s.UpdateChapter(ctx, "p", "doc.md", "C", "updated content", ""); err != nil {
		t.Fatalf("UpdateChapter: %v", err)
	}
	detail, _, _ := s.GetFile(ctx, "p", "doc.md")
	if !strings.Contains(detail.Content, "updated content") {
		t.Errorf("content = %q", detail.Content)
	}

	if err := s.RemoveChapter(ctx, "p", "doc.md", "A"); err != nil {
		t.Fatalf("RemoveChapter: %v", err)
	}
	_, infos, _ = s.ListChapters(ctx, "p", "doc.md")
	if len(infos) != 2 {
		t.Errorf("chapters after remove = %+v", infos)
	}

	if err := s.RemoveChapter(ctx, "p", "doc.md", "missing"); !errors.Is(err, apperr.ErrChapterNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestRemoveOnlyChapterKeepsIntroduction(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, _ = s.CreateFile(ctx, "p", "doc", "Doc", "The introduction.", []string{"k"},
		[]ChapterInput{{Title: "Only", Content: "x"}})

	if err := s.RemoveChapter(ctx, "p", "doc.md", "Only"); err != nil {
		t.Fatalf("RemoveChapter: %v", err)
	}
	detail, exists, err := s.GetFile(ctx, "p", "doc.md")
	if err != nil || !exists {
		t.Fatalf("GetFile: exists=%v err=%v", exists, err)
	}
	if len(detail.Chapters) != 0 {
		t.Errorf("chapters = %+v, want none", detail.Chapters)
	}
	if detail.Introduction != "The introduction." {
		t.Errorf("introduction = %q", detail.Introduction)
	}
}

func TestDeleteFile(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, _ = s.CreateFile(ctx, "p", "doc", "Doc", "i", []string{"k"}, nil)

	if err := s.DeleteFile(ctx, "p", "doc.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	_, exists, _ := s.GetFile(ctx, "p", "doc.md")
	if exists {
		t.Error("file still exists after delete")
	}
	if err := s.DeleteFile(ctx, "p", "doc.md"); !errors.Is(err, apperr.ErrDocumentNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListFiles(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, _ = s.CreateFile(ctx, "p", "beta", "Beta", "i", []string{"b"}, nil)
	_, _ = s.CreateFile(ctx, "p", "alpha", "Alpha", "i", []string{"a"}, nil)

	files, err := s.ListFiles(ctx, "p")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || files[0].Filename != "alpha.md" || files[1].Filename != "beta.md" {
		t.Errorf("files = %+v", files)
	}
	if files[0].Metadata.Title != "Alpha" {
		t.Errorf("metadata = %+v", files[0].Metadata)
	}
}

func TestSearchThroughService(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_, _ = s.CreateFile(ctx, "p", "doc", "Doc", "intro", []string{"k"},
		[]ChapterInput{{Title: "C", Content: "foo bar foo"}})

	r, err := s.Search(ctx, "p", "foo bar")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if r.TotalDocuments != 1 || r.Results[0].MatchingChapters[0].MatchCount != 3 {
		t.Errorf("report = %+v", r)
	}

	// Unknown project searches empty, and creates nothing.
	r, err = s.Search(ctx, "ghost", "foo")
	if err != nil || r.TotalDocuments != 0 {
		t.Errorf("ghost search: %+v, %v", r, err)
	}
}

func TestDeleteProject(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	_ = s.UpdateMain(ctx, "p", "content")

	if err := s.DeleteProject(ctx, "p"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	_, exists, _ := s.GetMain(ctx, "p")
	if exists {
		t.Error("main still readable after project delete")
	}
	if err := s.DeleteProject(ctx, "p"); !errors.Is(err, apperr.ErrProjectNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
