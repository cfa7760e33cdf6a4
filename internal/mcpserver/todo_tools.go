package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTodoTools() {
	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("Lists the project's TODO lists with their completion state. "+
			"A list is complete when it has at least one task and all tasks are complete."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("create_todo",
		mcp.WithDescription("Creates a new TODO list. List numbers are monotonic and never "+
			"reused. Returns the new list with its number."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What this list is for")),
	), s.createTodo)

	s.mcp.AddTool(mcp.NewTool("delete_todo",
		mcp.WithDescription("Deletes a TODO list and all of its tasks."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("todo_number", mcp.Required(), mcp.Description("List number")),
	), s.deleteTodo)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("Lists the tasks of a TODO list sorted by task number."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("todo_number", mcp.Required(), mcp.Description("List number")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Adds a task to a TODO list. Task numbers are max(existing)+1 "+
			"and survive removals unchanged."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("todo_number", mcp.Required(), mcp.Description("List number")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("body", mcp.Description("Optional task details")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("remove_task",
		mcp.WithDescription("Removes a task from a TODO list. Remaining task numbers are "+
			"not shifted."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("todo_number", mcp.Required(), mcp.Description("List number")),
		mcp.WithNumber("task_number", mcp.Required(), mcp.Description("Task number")),
	), s.removeTask)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Marks a task as complete. Completing an already complete task "+
			"succeeds."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("todo_number", mcp.Required(), mcp.Description("List number")),
		mcp.WithNumber("task_number", mcp.Required(), mcp.Description("Task number")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("get_next_task",
		mcp.WithDescription("Returns the lowest-numbered incomplete task of a TODO list, or "+
			"{done: true} when every task is complete."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("todo_number", mcp.Required(), mcp.Description("List number")),
	), s.getNextTask)
}

func (s *Server) listTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lists, err := s.todos.ListTodos(ctx, projectID)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"total_todos": len(lists), "todos": lists}), nil
}

func (s *Server) createTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.todos.CreateTodo(ctx, projectID, description)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"success": true, "todo": list}), nil
}

func (s *Server) deleteTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, number, err := projectAndList(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.todos.DeleteTodo(ctx, projectID, number); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("TODO list %d deleted", number)), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, number, err := projectAndList(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, tasks, err := s.todos.ListTasks(ctx, projectID, number)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"todo": info, "tasks": tasks}), nil
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, number, err := projectAndList(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := req.GetString("body", "")

	task, err := s.todos.AddTask(ctx, projectID, number, title, body)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"success": true, "task": task}), nil
}

func (s *Server) removeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, number, taskNumber, err := projectListTask(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.todos.RemoveTask(ctx, projectID, number, taskNumber); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("task %d removed from TODO list %d", taskNumber, number)), nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, number, taskNumber, err := projectListTask(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.todos.CompleteTask(ctx, projectID, number, taskNumber); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("task %d completed in TODO list %d", taskNumber, number)), nil
}

func (s *Server) getNextTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, number, err := projectAndList(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, ok, err := s.todos.GetNextTask(ctx, projectID, number)
	if err != nil {
		return errResult(err), nil
	}
	if !ok {
		return jsonResult(map[string]any{"done": true}), nil
	}
	return jsonResult(map[string]any{"done": false, "task": task}), nil
}

func projectAndList(req mcp.CallToolRequest) (string, int, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return "", 0, err
	}
	number, err := req.RequireInt("todo_number")
	if err != nil {
		return "", 0, err
	}
	return projectID, number, nil
}

func projectListTask(req mcp.CallToolRequest) (string, int, int, error) {
	projectID, number, err := projectAndList(req)
	if err != nil {
		return "", 0, 0, err
	}
	taskNumber, err := req.RequireInt("task_number")
	if err != nil {
		return "", 0, 0, err
	}
	return projectID, number, taskNumber, nil
}
