package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mimir/internal/apperr"
)

func (s *Server) registerResources() {
	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical knowledge document format. Call this "+
			"before creating or updating documents."),
	), s.getDocumentContract)

	s.mcp.AddResource(
		mcp.NewResource("mimir://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical markdown document format for knowledge files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("knowledge://projects/{project_id}/main", "Project Main Document",
			mcp.WithTemplateDescription("The project's main instructions document."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.readMainResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("knowledge://projects/{project_id}/files", "Project Knowledge Files",
			mcp.WithTemplateDescription("Listing of the project's knowledge documents with metadata."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.readFilesResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("knowledge://projects/{project_id}/chapters/{filename}", "Document Chapters",
			mcp.WithTemplateDescription("Chapter listing of one knowledge document."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.readChaptersResource,
	)
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mimir://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

func (s *Server) readMainResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projectID, _, err := parseProjectURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	content, exists, err := s.knowledge.GetMain(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		content = fmt.Sprintf("# Project %s\n\nNo main document exists yet.\n", projectID)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "text/markdown", Text: content},
	}, nil
}

func (s *Server) readFilesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projectID, _, err := parseProjectURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	files, err := s.knowledge.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(map[string]any{
		"project_id":  projectID,
		"total_files": len(files),
		"files":       files,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(out)},
	}, nil
}

func (s *Server) readChaptersResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projectID, filename, err := parseProjectURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, fmt.Errorf("%w: missing filename in %s", apperr.ErrInvalidInput, req.Params.URI)
	}
	title, chapters, err := s.knowledge.ListChapters(ctx, projectID, filename)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(map[string]any{
		"document_title": title,
		"total_chapters": len(chapters),
		"chapters":       chapters,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(out)},
	}, nil
}

// parseProjectURI splits knowledge://projects/<id>/<kind>[/<filename>].
func parseProjectURI(uri string) (projectID, filename string, err error) {
	rest, ok := strings.CutPrefix(uri, "knowledge://projects/")
	if !ok {
		return "", "", fmt.Errorf("%w: unexpected resource URI %s", apperr.ErrInvalidInput, uri)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[0] == "" {
		return "", "", fmt.Errorf("%w: unexpected resource URI %s", apperr.ErrInvalidInput, uri)
	}
	if len(parts) == 3 {
		filename = parts[2]
	}
	return parts[0], filename, nil
}
