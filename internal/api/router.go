package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mimir/internal/knowledge"
	"github.com/starford/mimir/internal/todo"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *knowledge.Service, todos *todo.Manager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	th := NewTodoHandler(todos)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/projects", h.ListProjects)
	r.Post("/sync", h.Sync)

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Delete("/", h.DeleteProject)

		// Main instructions document and its sections.
		r.Get("/main", h.GetMain)
		r.Put("/main", h.UpdateMain)
		r.Post("/main/sections", h.AddSection)
		r.Put("/main/sections", h.UpdateSection)
		r.Delete("/main/sections", h.RemoveSection)

		// Knowledge documents and chapters.
		r.Get("/files", h.ListFiles)
		r.Post("/files", h.CreateFile)
		r.Get("/files/{filename}", h.GetFile)
		r.Delete("/files/{filename}", h.DeleteFile)
		r.Get("/files/{filename}/chapters", h.ListChapters)
		r.Post("/files/{filename}/chapters", h.AddChapter)
		r.Put("/files/{filename}/chapters", h.UpdateChapter)
		r.Delete("/files/{filename}/chapters", h.RemoveChapter)

		// Search.
		r.Get("/search", h.Search)

		// Task lists.
		r.Get("/todos", th.ListTodos)
		r.Post("/todos", th.CreateTodo)
		r.Delete("/todos/{todoNumber}", th.DeleteTodo)
		r.Get("/todos/{todoNumber}/tasks", th.ListTasks)
		r.Post("/todos/{todoNumber}/tasks", th.AddTask)
		r.Get("/todos/{todoNumber}/tasks/next", th.NextTask)
		r.Get("/todos/{todoNumber}/tasks/{taskNumber}", th.GetTask)
		r.Delete("/todos/{todoNumber}/tasks/{taskNumber}", th.RemoveTask)
		r.Post("/todos/{todoNumber}/tasks/{taskNumber}/complete", th.CompleteTask)
	})

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
