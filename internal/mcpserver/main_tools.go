package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerMainTools() {
	s.mcp.AddTool(mcp.NewTool("get_project_main",
		mcp.WithDescription("Retrieves the main project instructions document. "+
			"Returns {exists: bool, content: str}; a missing project yields exists=false."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier, e.g. 'my-app'")),
	), s.getProjectMain)

	s.mcp.AddTool(mcp.NewTool("update_project_main",
		mcp.WithDescription("Creates or replaces the main project instructions. "+
			"Creates the project on first write. Returns {success: bool, message: str}."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full markdown content for main.md")),
	), s.updateProjectMain)

	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Adds a new section to the main document. The header must be a "+
			"full heading line like '## Deployment'. Position is 'end' (default), 'before' or "+
			"'after'; the latter two require reference_header."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("section_header", mcp.Required(), mcp.Description("Full heading line, e.g. '## Deployment'")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Section content without the heading line")),
		mcp.WithString("position", mcp.Description("'end', 'before' or 'after' (default 'end')")),
		mcp.WithString("reference_header", mcp.Description("Existing heading line for relative placement")),
	), s.addSection)

	s.mcp.AddTool(mcp.NewTool("update_section",
		mcp.WithDescription("Replaces the content of an existing section of the main document. "+
			"The header must match exactly, including the '## ' marker."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("section_header", mcp.Required(), mcp.Description("Exact heading line of the section")),
		mcp.WithString("new_content", mcp.Required(), mcp.Description("Replacement content without the heading line")),
	), s.updateSection)

	s.mcp.AddTool(mcp.NewTool("remove_section",
		mcp.WithDescription("Removes a section from the main document. Other sections and the "+
			"introduction are preserved."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("section_header", mcp.Required(), mcp.Description("Exact heading line of the section")),
	), s.removeSection)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("Lists all known projects with their storage slugs."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("delete_project",
		mcp.WithDescription("Deletes a project and all of its documents and task lists."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
	), s.deleteProject)

	s.mcp.AddTool(mcp.NewTool("sync",
		mcp.WithDescription("Commits any uncommitted storage changes to the audit log and "+
			"pushes if a remote is configured."),
	), s.syncTool)
}

func (s *Server) getProjectMain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, exists, err := s.knowledge.GetMain(ctx, projectID)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"exists": exists, "content": content}), nil
}

func (s *Server) updateProjectMain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.knowledge.UpdateMain(ctx, projectID, content); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("main document updated for project %q", projectID)), nil
}

func (s *Server) addSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	header, err := req.RequireString("section_header")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	position := req.GetString("position", "end")
	reference := req.GetString("reference_header", "")

	if err := s.knowledge.AddSection(ctx, projectID, header, content, position, reference); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("section %q added", header)), nil
}

func (s *Server) updateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	header, err := req.RequireString("section_header")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("new_content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.knowledge.UpdateSection(ctx, projectID, header, content); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("section %q updated", header)), nil
}

func (s *Server) removeSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	header, err := req.RequireString("section_header")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.knowledge.RemoveSection(ctx, projectID, header); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("section %q removed", header)), nil
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.knowledge.ListProjects(ctx)
	if err != nil {
		return errResult(err), nil
	}
	type item struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	items := make([]item, 0, len(projects))
	for _, p := range projects {
		items = append(items, item{ID: p.ID, Slug: p.Slug})
	}
	return jsonResult(map[string]any{"projects": items}), nil
}

func (s *Server) deleteProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.knowledge.DeleteProject(ctx, projectID); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("project %q deleted", projectID)), nil
}

func (s *Server) syncTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.knowledge.Sync(ctx); err != nil {
		return errResult(err), nil
	}
	return successResult("storage synchronized"), nil
}
