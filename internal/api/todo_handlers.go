package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/todo"
)

// TodoHandler holds the task list route handlers.
type TodoHandler struct {
	todos *todo.Manager
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(todos *todo.Manager) *TodoHandler {
	return &TodoHandler{todos: todos}
}

func numberParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", apperr.ErrInvalidInput, name)
	}
	return n, nil
}

// ListTodos handles GET /api/projects/{projectID}/todos.
//
//	@Summary		List the project's task lists
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Success		200			{object}	TodoListResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos [get]
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	lists, err := h.todos.ListTodos(r.Context(), param(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TodoListResponse{Todos: lists, Total: len(lists)})
}

// CreateTodo handles POST /api/projects/{projectID}/todos.
//
//	@Summary		Create a task list
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path		string				true	"Project identifier"
//	@Param			body		body		CreateTodoRequest	true	"List description"
//	@Success		201			{object}	todo.ListInfo
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos [post]
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	list, err := h.todos.CreateTodo(r.Context(), param(r, "projectID"), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// DeleteTodo handles DELETE /api/projects/{projectID}/todos/{todoNumber}.
//
//	@Summary		Delete a task list and its tasks
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Param			todoNumber	path	int		true	"List number"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber} [delete]
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.todos.DeleteTodo(r.Context(), param(r, "projectID"), number); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /api/projects/{projectID}/todos/{todoNumber}/tasks.
//
//	@Summary		List a task list's tasks
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Param			todoNumber	path		int		true	"List number"
//	@Success		200			{object}	TaskListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber}/tasks [get]
func (h *TodoHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	info, tasks, err := h.todos.ListTasks(r.Context(), param(r, "projectID"), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Todo: info, Tasks: tasks})
}

// AddTask handles POST /api/projects/{projectID}/todos/{todoNumber}/tasks.
//
//	@Summary		Add a task to a list
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path		string			true	"Project identifier"
//	@Param			todoNumber	path		int				true	"List number"
//	@Param			body		body		AddTaskRequest	true	"Task to add"
//	@Success		201			{object}	todo.TaskDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber}/tasks [post]
func (h *TodoHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	var req AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	task, err := h.todos.AddTask(r.Context(), param(r, "projectID"), number, req.Title, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// NextTask handles GET /api/projects/{projectID}/todos/{todoNumber}/tasks/next.
//
//	@Summary		Get the lowest-numbered incomplete task
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Param			todoNumber	path		int		true	"List number"
//	@Success		200			{object}	NextTaskResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber}/tasks/next [get]
func (h *TodoHandler) NextTask(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	task, ok, err := h.todos.GetNextTask(r.Context(), param(r, "projectID"), number)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, NextTaskResponse{Done: true})
		return
	}
	writeJSON(w, http.StatusOK, NextTaskResponse{Done: false, Task: &task})
}

// GetTask handles GET /api/projects/{projectID}/todos/{todoNumber}/tasks/{taskNumber}.
//
//	@Summary		Get one task in full
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Param			todoNumber	path		int		true	"List number"
//	@Param			taskNumber	path		int		true	"Task number"
//	@Success		200			{object}	todo.TaskDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber}/tasks/{taskNumber} [get]
func (h *TodoHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	taskNumber, err := numberParam(r, "taskNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := h.todos.GetTask(r.Context(), param(r, "projectID"), number, taskNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// RemoveTask handles DELETE /api/projects/{projectID}/todos/{todoNumber}/tasks/{taskNumber}.
//
//	@Summary		Remove a task; remaining numbers are not shifted
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Param			todoNumber	path	int		true	"List number"
//	@Param			taskNumber	path	int		true	"Task number"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber}/tasks/{taskNumber} [delete]
func (h *TodoHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	taskNumber, err := numberParam(r, "taskNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.todos.RemoveTask(r.Context(), param(r, "projectID"), number, taskNumber); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles POST /api/projects/{projectID}/todos/{todoNumber}/tasks/{taskNumber}/complete.
//
//	@Summary		Mark a task as complete
//	@Tags			todos
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Param			todoNumber	path	int		true	"List number"
//	@Param			taskNumber	path	int		true	"Task number"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/todos/{todoNumber}/tasks/{taskNumber}/complete [post]
func (h *TodoHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r, "todoNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	taskNumber, err := numberParam(r, "taskNumber")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.todos.CompleteTask(r.Context(), param(r, "projectID"), number, taskNumber); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
