package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mimir/internal/gitsync"
	"github.com/starford/mimir/internal/knowledge"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/storage"
	"github.com/starford/mimir/internal/todo"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	locks := storage.NewLocker()
	resolver := project.NewResolver(store, locks)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := knowledge.NewService(store, locks, resolver, gitsync.Noop{}, logger)
	todos := todo.NewManager(store, locks, resolver, gitsync.Noop{}, logger)
	return New(svc, todos)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error
	switch name {
	case "get_project_main":
		result, err = srv.getProjectMain(ctx, req)
	case "update_project_main":
		result, err = srv.updateProjectMain(ctx, req)
	case "add_section":
		result, err = srv.addSection(ctx, req)
	case "update_section":
		result, err = srv.updateSection(ctx, req)
	case "remove_section":
		result, err = srv.removeSection(ctx, req)
	case "create_knowledge_file":
		result, err = srv.createKnowledgeFile(ctx, req)
	case "get_knowledge_file":
		result, err = srv.getKnowledgeFile(ctx, req)
	case "list_chapters":
		result, err = srv.listChapters(ctx, req)
	case "add_chapter":
		result, err = srv.addChapter(ctx, req)
	case "search_knowledge":
		result, err = srv.searchKnowledge(ctx, req)
	case "create_todo":
		result, err = srv.createTodo(ctx, req)
	case "add_task":
		result, err = srv.addTask(ctx, req)
	case "complete_task":
		result, err = srv.completeTask(ctx, req)
	case "get_next_task":
		result, err = srv.getNextTask(ctx, req)
	case "delete_project":
		result, err = srv.deleteProject(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func resultJSON(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &payload); err != nil {
		t.Fatalf("result not JSON: %v\n%s", err, resultText(r))
	}
	return payload
}

func TestGetMain_MissingProject(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_project_main", map[string]any{"project_id": "nope"})
	payload := resultJSON(t, r)
	if payload["exists"] != false {
		t.Errorf("payload = %v", payload)
	}
}

func TestUpdateAndGetMain(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "update_project_main", map[string]any{
		"project_id": "demo",
		"content":    "# Demo\n\nhello\n",
	})
	r := callTool(t, srv, "get_project_main", map[string]any{"project_id": "demo"})
	payload := resultJSON(t, r)
	if payload["exists"] != true || payload["content"] != "# Demo\n\nhello\n" {
		t.Errorf("payload = %v", payload)
	}
}

func TestSectionToolErrors(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "update_section", map[string]any{
		"project_id":     "nope",
		"section_header": "## X",
		"new_content":    "y",
	})
	payload := resultJSON(t, r)
	if payload["code"] != "NOT_FOUND" {
		t.Errorf("payload = %v", payload)
	}

	callTool(t, srv, "update_project_main", map[string]any{"project_id": "p", "content": "## A\n\nx\n"})
	r = callTool(t, srv, "add_section", map[string]any{
		"project_id":     "p",
		"section_header": "## A",
		"content":        "dup",
	})
	if resultJSON(t, r)["code"] != "ALREADY_EXISTS" {
		t.Errorf("payload = %v", resultJSON(t, r))
	}
	r = callTool(t, srv, "add_section", map[string]any{
		"project_id":     "p",
		"section_header": "## B",
		"content":        "x",
		"position":       "before",
	})
	if resultJSON(t, r)["code"] != "INVALID_INPUT" {
		t.Errorf("payload = %v", resultJSON(t, r))
	}
}

func TestKnowledgeFileRoundTrip(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_knowledge_file", map[string]any{
		"project_id":   "p",
		"filename":     "API Guide",
		"title":        "API Guide",
		"introduction": "All about the API.",
		"keywords":     []any{"api"},
		"chapters": []any{
			map[string]any{"title": "Auth", "content": "Use tokens."},
		},
	})
	payload := resultJSON(t, r)
	if payload["filepath"] != "knowledge/api-guide.md" {
		t.Errorf("payload = %v", payload)
	}

	r = callTool(t, srv, "get_knowledge_file", map[string]any{
		"project_id": "p",
		"filename":   "api-guide.md",
	})
	payload = resultJSON(t, r)
	if payload["exists"] != true {
		t.Fatalf("payload = %v", payload)
	}

	r = callTool(t, srv, "list_chapters", map[string]any{
		"project_id": "p",
		"filename":   "api-guide.md",
	})
	payload = resultJSON(t, r)
	if payload["total_chapters"] != float64(1) {
		t.Errorf("payload = %v", payload)
	}
}

func TestSearchTool(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_knowledge_file", map[string]any{
		"project_id":   "p",
		"filename":     "doc",
		"title":        "Doc",
		"introduction": "intro",
		"keywords":     []any{"k"},
		"chapters": []any{
			map[string]any{"title": "C", "content": "foo bar foo"},
		},
	})
	r := callTool(t, srv, "search_knowledge", map[string]any{
		"project_id": "p",
		"query":      "foo bar",
	})
	payload := resultJSON(t, r)
	if payload["total_documents"] != float64(1) {
		t.Errorf("payload = %v", payload)
	}
}

func TestTodoTools(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_todo", map[string]any{
		"project_id":  "p",
		"description": "release",
	})
	payload := resultJSON(t, r)
	todoPayload, ok := payload["todo"].(map[string]any)
	if !ok || todoPayload["number"] != float64(1) {
		t.Fatalf("payload = %v", payload)
	}

	callTool(t, srv, "add_task", map[string]any{
		"project_id":  "p",
		"todo_number": float64(1),
		"title":       "write notes",
		"body":        "detail",
	})
	r = callTool(t, srv, "get_next_task", map[string]any{
		"project_id":  "p",
		"todo_number": float64(1),
	})
	payload = resultJSON(t, r)
	if payload["done"] != false {
		t.Fatalf("payload = %v", payload)
	}

	callTool(t, srv, "complete_task", map[string]any{
		"project_id":  "p",
		"todo_number": float64(1),
		"task_number": float64(1),
	})
	r = callTool(t, srv, "get_next_task", map[string]any{
		"project_id":  "p",
		"todo_number": float64(1),
	})
	payload = resultJSON(t, r)
	if payload["done"] != true {
		t.Errorf("payload = %v", payload)
	}
}

func TestDeleteProjectTool(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "update_project_main", map[string]any{"project_id": "p", "content": "x"})
	r := callTool(t, srv, "delete_project", map[string]any{"project_id": "p"})
	if resultJSON(t, r)["success"] != true {
		t.Errorf("payload = %v", resultJSON(t, r))
	}
	r = callTool(t, srv, "delete_project", map[string]any{"project_id": "p"})
	if resultJSON(t, r)["code"] != "NOT_FOUND" {
		t.Errorf("payload = %v", resultJSON(t, r))
	}
}

func TestResourceURIs(t *testing.T) {
	id, file, err := parseProjectURI("knowledge://projects/demo/main")
	if err != nil || id != "demo" || file != "" {
		t.Errorf("got %q %q %v", id, file, err)
	}
	id, file, err = parseProjectURI("knowledge://projects/demo/chapters/api-guide.md")
	if err != nil || id != "demo" || file != "api-guide.md" {
		t.Errorf("got %q %q %v", id, file, err)
	}
	if _, _, err := parseProjectURI("other://x"); err == nil {
		t.Error("expected error for foreign scheme")
	}
}

func TestMainResource(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "update_project_main", map[string]any{"project_id": "demo", "content": "# Demo\n"})

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "knowledge://projects/demo/main"
	contents, err := srv.readMainResource(context.Background(), req)
	if err != nil {
		t.Fatalf("readMainResource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "# Demo") {
		t.Errorf("text = %q", text)
	}
}
