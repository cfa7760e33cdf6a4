package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mimir/internal/knowledge"
)

func (s *Server) registerKnowledgeTools() {
	s.mcp.AddTool(mcp.NewTool("create_knowledge_file",
		mcp.WithDescription("Creates a new knowledge document with metadata, an introduction "+
			"and chapters. The filename is slugified and gets a .md suffix. Fails if the "+
			"document already exists. Read the document format first via the "+
			"get_document_contract tool or the mimir://document-format resource."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document name, with or without .md")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable document title")),
		mcp.WithString("introduction", mcp.Required(), mcp.Description("Text before the first chapter")),
		mcp.WithArray("keywords", mcp.Required(), mcp.Description("Search keywords, at least one")),
		mcp.WithArray("chapters", mcp.Description("Chapters as [{title, content}] objects")),
	), s.createKnowledgeFile)

	s.mcp.AddTool(mcp.NewTool("get_knowledge_file",
		mcp.WithDescription("Reads a knowledge document. Returns {exists: bool, document} "+
			"with metadata, introduction and chapters."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document file name, e.g. 'api-guide.md'")),
	), s.getKnowledgeFile)

	s.mcp.AddTool(mcp.NewTool("delete_knowledge_file",
		mcp.WithDescription("Deletes a knowledge document."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document file name")),
	), s.deleteKnowledgeFile)

	s.mcp.AddTool(mcp.NewTool("list_knowledge_files",
		mcp.WithDescription("Lists the project's knowledge documents with their metadata."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
	), s.listKnowledgeFiles)

	s.mcp.AddTool(mcp.NewTool("list_chapters",
		mcp.WithDescription("Lists the chapters of a knowledge document with their summaries."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document file name")),
	), s.listChapters)

	s.mcp.AddTool(mcp.NewTool("add_chapter",
		mcp.WithDescription("Adds a chapter to a knowledge document. Position is 'end' "+
			"(default), 'before' or 'after'; the latter two require reference_chapter. "+
			"Fails if a chapter with the same title exists."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document file name")),
		mcp.WithString("chapter_title", mcp.Required(), mcp.Description("Title without the '## ' marker")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Chapter content without the heading line")),
		mcp.WithString("position", mcp.Description("'end', 'before' or 'after' (default 'end')")),
		mcp.WithString("reference_chapter", mcp.Description("Existing chapter title for relative placement")),
	), s.addChapter)

	s.mcp.AddTool(mcp.NewTool("update_chapter",
		mcp.WithDescription("Replaces the content of a chapter matched by exact title, "+
			"including case. Other chapters and metadata are preserved."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document file name")),
		mcp.WithString("chapter_title", mcp.Required(), mcp.Description("Exact chapter title")),
		mcp.WithString("new_content", mcp.Required(), mcp.Description("Replacement content without the heading line")),
		mcp.WithString("new_summary", mcp.Description("Optional explicit summary; derived from content when empty")),
	), s.updateChapter)

	s.mcp.AddTool(mcp.NewTool("remove_chapter",
		mcp.WithDescription("Removes a chapter from a knowledge document."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document file name")),
		mcp.WithString("chapter_title", mcp.Required(), mcp.Description("Exact chapter title")),
	), s.removeChapter)

	s.mcp.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Case-insensitive keyword search across the project's knowledge "+
			"documents. Query terms are separated by spaces and matched independently. "+
			"Results are grouped by document and chapter with match contexts."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Space-separated search terms")),
	), s.searchKnowledge)
}

func (s *Server) createKnowledgeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ProjectID    string `json:"project_id"`
		Filename     string `json:"filename"`
		Title        string `json:"title"`
		Introduction string `json:"introduction"`
		Keywords     []string `json:"keywords"`
		Chapters     []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"chapters"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chapters := make([]knowledge.ChapterInput, 0, len(args.Chapters))
	for _, c := range args.Chapters {
		chapters = append(chapters, knowledge.ChapterInput{Title: c.Title, Content: c.Content})
	}
	filePath, err := s.knowledge.CreateFile(ctx, args.ProjectID, args.Filename,
		args.Title, args.Introduction, args.Keywords, chapters)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{
		"success":  true,
		"filepath": filePath,
		"message":  fmt.Sprintf("knowledge file created at %s", filePath),
	}), nil
}

func (s *Server) getKnowledgeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, exists, err := s.knowledge.GetFile(ctx, projectID, filename)
	if err != nil {
		return errResult(err), nil
	}
	if !exists {
		return jsonResult(map[string]any{"exists": false}), nil
	}
	return jsonResult(map[string]any{"exists": true, "document": detail}), nil
}

func (s *Server) deleteKnowledgeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.knowledge.DeleteFile(ctx, projectID, filename); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("knowledge file %q deleted", filename)), nil
}

func (s *Server) listKnowledgeFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := s.knowledge.ListFiles(ctx, projectID)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"total_files": len(files), "files": files}), nil
}

func (s *Server) listChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, chapters, err := s.knowledge.ListChapters(ctx, projectID, filename)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{
		"document_title": title,
		"total_chapters": len(chapters),
		"chapters":       chapters,
	}), nil
}

func (s *Server) addChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("chapter_title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	position := req.GetString("position", "end")
	reference := req.GetString("reference_chapter", "")

	if err := s.knowledge.AddChapter(ctx, projectID, filename, title, content, position, reference); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("chapter %q added to %s", title, filename)), nil
}

func (s *Server) updateChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("chapter_title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("new_content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary := req.GetString("new_summary", "")

	if err := s.knowledge.UpdateChapter(ctx, projectID, filename, title, content, summary); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("chapter %q updated in %s", title, filename)), nil
}

func (s *Server) removeChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("chapter_title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.knowledge.RemoveChapter(ctx, projectID, filename, title); err != nil {
		return errResult(err), nil
	}
	return successResult(fmt.Sprintf("chapter %q removed from %s", title, filename)), nil
}

func (s *Server) searchKnowledge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.knowledge.Search(ctx, projectID, query)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(report), nil
}
