package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/knowledge"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/storage"
	"github.com/starford/mimir/internal/todo"
)

// testEnv sets up a temp storage root, services, and router for testing.
// An empty token means auth disabled.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	locks := storage.NewLocker()
	resolver := project.NewResolver(store, locks)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := knowledge.NewService(store, locks, resolver, gitsync.Noop{}, logger)
	todos := todo.NewManager(store, locks, resolver, gitsync.Noop{}, logger)
	return NewRouter(svc, todos, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMainRoundTrip(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/projects/demo/main",
		map[string]string{"content": "# Demo\n\nhello\n"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/demo/main", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp MainResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Exists || resp.Content != "# Demo\n\nhello\n" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetMain_Missing(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/projects/nope/main", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp MainResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Exists {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSectionEndpoints(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPut, "/projects/p/main",
		map[string]string{"content": "Intro\n\n## Build\n\nmake\n"})

	w := do(t, router, http.MethodPost, "/projects/p/main/sections", SectionRequest{
		Header: "## Deploy", Content: "ship it", Position: "after", ReferenceHeader: "## Build",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}

	// Duplicate header conflicts.
	w = do(t, router, http.MethodPost, "/projects/p/main/sections", SectionRequest{
		Header: "## Deploy", Content: "again",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}

	w = do(t, router, http.MethodPut, "/projects/p/main/sections", SectionRequest{
		Header: "## Deploy", Content: "use the pipeline",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodDelete,
		"/projects/p/main/sections?header="+url.QueryEscape("## Build"), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, body = %s", w.Code, w.Body.String())
	}

	// Missing section is 404.
	w = do(t, router, http.MethodPut, "/projects/p/main/sections", SectionRequest{
		Header: "## Missing", Content: "x",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}

func TestKnowledgeFileEndpoints(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/projects/p/files", CreateFileRequest{
		Filename:     "API Guide",
		Title:        "API Guide",
		Introduction: "All about the API.",
		Keywords:     []string{"api"},
		Chapters:     []knowledge.ChapterInput{{Title: "Auth", Content: "Use tokens."}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/p/files", nil)
	var list FileListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Files[0].Filename != "api-guide.md" {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/projects/p/files/api-guide.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail FileDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Metadata.Title != "API Guide" || len(detail.Chapters) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	// Missing keywords is a 400.
	w = do(t, router, http.MethodPost, "/projects/p/files", CreateFileRequest{
		Filename: "bad", Title: "Bad",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/projects/p/files/api-guide.md", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/projects/p/files/api-guide.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", w.Code)
	}
}

func TestChapterEndpoints(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/projects/p/files", CreateFileRequest{
		Filename: "doc", Title: "Doc", Introduction: "i", Keywords: []string{"k"},
		Chapters: []knowledge.ChapterInput{{Title: "A", Content: "1"}},
	})

	w := do(t, router, http.MethodPost, "/projects/p/files/doc.md/chapters", ChapterRequest{
		Title: "B", Content: "2",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/p/files/doc.md/chapters", nil)
	var chapters ChapterListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &chapters)
	if chapters.Total != 2 || chapters.DocumentTitle != "Doc" {
		t.Errorf("chapters = %+v", chapters)
	}

	w = do(t, router, http.MethodPut, "/projects/p/files/doc.md/chapters", ChapterRequest{
		Title: "A", Content: "updated",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodDelete,
		"/projects/p/files/doc.md/chapters?title="+url.QueryEscape("B"), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/projects/p/files", CreateFileRequest{
		Filename: "doc", Title: "Doc", Introduction: "i", Keywords: []string{"k"},
		Chapters: []knowledge.ChapterInput{{Title: "C", Content: "foo bar foo"}},
	})

	w := do(t, router, http.MethodGet, "/projects/p/search?q=foo+bar", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var report SearchReport
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if report.TotalDocuments != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestTodoEndpoints(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/projects/p/todos",
		CreateTodoRequest{Description: "release"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var list todo.ListInfo
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Number != 1 {
		t.Fatalf("list = %+v", list)
	}

	w = do(t, router, http.MethodPost, "/projects/p/todos/1/tasks",
		AddTaskRequest{Title: "write notes", Body: "detail"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add task status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/p/todos/1/tasks/next", nil)
	var next NextTaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &next)
	if next.Done || next.Task == nil || next.Task.Number != 1 {
		t.Fatalf("next = %+v", next)
	}

	w = do(t, router, http.MethodPost, "/projects/p/todos/1/tasks/1/complete", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("complete status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/projects/p/todos/1/tasks/next", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &next)
	if !next.Done {
		t.Errorf("next = %+v", next)
	}

	w = do(t, router, http.MethodDelete, "/projects/p/todos/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete todo status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/projects/p/todos/1/tasks", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("tasks after delete status = %d", w.Code)
	}
}

func TestDeleteProjectEndpoint(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPut, "/projects/p/main", map[string]string{"content": "x"})

	w := do(t, router, http.MethodDelete, "/projects/p", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodDelete, "/projects/p", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := testEnv(t, "secret")

	w := do(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestEncodedProjectID(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPut, "/projects/My%20Project/main",
		map[string]string{"content": "# Mine\n"})

	w := do(t, router, http.MethodGet, "/projects/My%20Project/main", nil)
	var resp MainResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Exists || resp.Content != "# Mine\n" {
		t.Errorf("resp = %+v", resp)
	}
}
