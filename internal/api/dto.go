package api

import (
	"github.com/starford/mimir/internal/knowledge"
	"github.com/starford/mimir/internal/project"
	"github.com/starford/mimir/internal/search"
	"github.com/starford/mimir/internal/todo"
)

// UpdateMainRequest is the request body for PUT .../main.
type UpdateMainRequest struct {
	Content string `json:"content" validate:"required"`
}

// MainResponse wraps the main document.
type MainResponse struct {
	Exists  bool   `json:"exists" validate:"required"`
	Content string `json:"content"`
}

// SectionRequest is the request body for section mutations.
type SectionRequest struct {
	Header          string `json:"header" example:"## Deployment" validate:"required"`
	Content         string `json:"content"`
	Position        string `json:"position,omitempty" example:"after"`
	ReferenceHeader string `json:"reference_header,omitempty"`
}

// CreateFileRequest is the request body for creating a knowledge document.
type CreateFileRequest struct {
	Filename     string                   `json:"filename" example:"api-guide" validate:"required"`
	Title        string                   `json:"title" validate:"required"`
	Introduction string                   `json:"introduction"`
	Keywords     []string                 `json:"keywords" validate:"required"`
	Chapters     []knowledge.ChapterInput `json:"chapters"`
}

// ChapterRequest is the request body for chapter mutations.
type ChapterRequest struct {
	Title            string `json:"title" validate:"required"`
	Content          string `json:"content"`
	Summary          string `json:"summary,omitempty"`
	Position         string `json:"position,omitempty" example:"before"`
	ReferenceChapter string `json:"reference_chapter,omitempty"`
}

// FileListResponse wraps knowledge document listings.
type FileListResponse struct {
	Files []knowledge.FileInfo `json:"files" validate:"required"`
	Total int                  `json:"total" validate:"required"`
}

// ChapterListResponse wraps a document's chapter listing.
type ChapterListResponse struct {
	DocumentTitle string                  `json:"document_title"`
	Chapters      []knowledge.ChapterInfo `json:"chapters" validate:"required"`
	Total         int                     `json:"total" validate:"required"`
}

// ProjectListResponse wraps the project listing.
type ProjectListResponse struct {
	Projects []project.Project `json:"projects" validate:"required"`
	Total    int               `json:"total" validate:"required"`
}

// CreateTodoRequest is the request body for creating a task list.
type CreateTodoRequest struct {
	Description string `json:"description" validate:"required"`
}

// AddTaskRequest is the request body for adding a task.
type AddTaskRequest struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
}

// TodoListResponse wraps the task list collection.
type TodoListResponse struct {
	Todos []todo.ListInfo `json:"todos" validate:"required"`
	Total int             `json:"total" validate:"required"`
}

// TaskListResponse wraps one list's tasks.
type TaskListResponse struct {
	Todo  todo.ListInfo   `json:"todo"`
	Tasks []todo.TaskInfo `json:"tasks" validate:"required"`
}

// NextTaskResponse wraps the next incomplete task.
type NextTaskResponse struct {
	Done bool             `json:"done" validate:"required"`
	Task *todo.TaskDetail `json:"task,omitempty"`
}

// FileDetail is the full document response type (aliased from the domain layer).
type FileDetail = knowledge.FileDetail

// SearchReport is the search response type (aliased from the domain layer).
type SearchReport = search.Report
