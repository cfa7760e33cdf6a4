package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mimir/internal/knowledge"
)

// Handler holds API route handlers.
type Handler struct {
	svc *knowledge.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *knowledge.Service) *Handler {
	return &Handler{svc: svc}
}

// param extracts a URL parameter, decoding encoded characters (e.g. spaces
// in project identifiers).
func param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List all known projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects, Total: len(projects)})
}

// DeleteProject handles DELETE /api/projects/{projectID}.
//
//	@Summary		Delete a project and all its contents
//	@Tags			projects
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), param(r, "projectID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMain handles GET /api/projects/{projectID}/main.
//
//	@Summary		Get the main instructions document
//	@Tags			main
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Success		200			{object}	MainResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/main [get]
func (h *Handler) GetMain(w http.ResponseWriter, r *http.Request) {
	content, exists, err := h.svc.GetMain(r.Context(), param(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MainResponse{Exists: exists, Content: content})
}

// UpdateMain handles PUT /api/projects/{projectID}/main.
//
//	@Summary		Create or replace the main instructions document
//	@Tags			main
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path	string				true	"Project identifier"
//	@Param			body		body	UpdateMainRequest	true	"New content"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/main [put]
func (h *Handler) UpdateMain(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req UpdateMainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.UpdateMain(r.Context(), param(r, "projectID"), req.Content); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSection handles POST /api/projects/{projectID}/main/sections.
//
//	@Summary		Add a section to the main document
//	@Tags			main
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path	string			true	"Project identifier"
//	@Param			body		body	SectionRequest	true	"Section to add"
//	@Success		201
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/main/sections [post]
func (h *Handler) AddSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	position := req.Position
	if position == "" {
		position = "end"
	}
	err := h.svc.AddSection(r.Context(), param(r, "projectID"),
		req.Header, req.Content, position, req.ReferenceHeader)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdateSection handles PUT /api/projects/{projectID}/main/sections.
//
//	@Summary		Replace the content of an existing section
//	@Tags			main
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path	string			true	"Project identifier"
//	@Param			body		body	SectionRequest	true	"Header and new content"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/main/sections [put]
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.UpdateSection(r.Context(), param(r, "projectID"), req.Header, req.Content); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveSection handles DELETE /api/projects/{projectID}/main/sections.
//
//	@Summary		Remove a section from the main document
//	@Tags			main
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Param			header		query	string	true	"Full heading line of the section"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/main/sections [delete]
func (h *Handler) RemoveSection(w http.ResponseWriter, r *http.Request) {
	header := r.URL.Query().Get("header")
	if err := h.svc.RemoveSection(r.Context(), param(r, "projectID"), header); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles handles GET /api/projects/{projectID}/files.
//
//	@Summary		List the project's knowledge documents
//	@Tags			knowledge
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Success		200			{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context(), param(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// CreateFile handles POST /api/projects/{projectID}/files.
//
//	@Summary		Create a knowledge document
//	@Tags			knowledge
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path		string				true	"Project identifier"
//	@Param			body		body		CreateFileRequest	true	"Document to create"
//	@Success		201			{object}	map[string]string
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	filePath, err := h.svc.CreateFile(r.Context(), param(r, "projectID"),
		req.Filename, req.Title, req.Introduction, req.Keywords, req.Chapters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"filepath": filePath})
}

// GetFile handles GET /api/projects/{projectID}/files/{filename}.
//
//	@Summary		Get a knowledge document with its chapters
//	@Tags			knowledge
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Param			filename	path		string	true	"Document file name"
//	@Success		200			{object}	FileDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files/{filename} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	detail, exists, err := h.svc.GetFile(r.Context(), param(r, "projectID"), param(r, "filename"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteFile handles DELETE /api/projects/{projectID}/files/{filename}.
//
//	@Summary		Delete a knowledge document
//	@Tags			knowledge
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Param			filename	path	string	true	"Document file name"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files/{filename} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFile(r.Context(), param(r, "projectID"), param(r, "filename")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChapters handles GET /api/projects/{projectID}/files/{filename}/chapters.
//
//	@Summary		List a document's chapters with summaries
//	@Tags			knowledge
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Param			filename	path		string	true	"Document file name"
//	@Success		200			{object}	ChapterListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files/{filename}/chapters [get]
func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	title, chapters, err := h.svc.ListChapters(r.Context(), param(r, "projectID"), param(r, "filename"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChapterListResponse{
		DocumentTitle: title,
		Chapters:      chapters,
		Total:         len(chapters),
	})
}

// AddChapter handles POST /api/projects/{projectID}/files/{filename}/chapters.
//
//	@Summary		Add a chapter to a knowledge document
//	@Tags			knowledge
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path	string			true	"Project identifier"
//	@Param			filename	path	string			true	"Document file name"
//	@Param			body		body	ChapterRequest	true	"Chapter to add"
//	@Success		201
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files/{filename}/chapters [post]
func (h *Handler) AddChapter(w http.ResponseWriter, r *http.Request) {
	var req ChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	position := req.Position
	if position == "" {
		position = "end"
	}
	err := h.svc.AddChapter(r.Context(), param(r, "projectID"), param(r, "filename"),
		req.Title, req.Content, position, req.ReferenceChapter)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdateChapter handles PUT /api/projects/{projectID}/files/{filename}/chapters.
//
//	@Summary		Replace the content of a chapter
//	@Tags			knowledge
//	@Accept			json
//	@Produce		json
//	@Param			projectID	path	string			true	"Project identifier"
//	@Param			filename	path	string			true	"Document file name"
//	@Param			body		body	ChapterRequest	true	"Title and new content"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files/{filename}/chapters [put]
func (h *Handler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	var req ChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	err := h.svc.UpdateChapter(r.Context(), param(r, "projectID"), param(r, "filename"),
		req.Title, req.Content, req.Summary)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveChapter handles DELETE /api/projects/{projectID}/files/{filename}/chapters.
//
//	@Summary		Remove a chapter from a knowledge document
//	@Tags			knowledge
//	@Produce		json
//	@Param			projectID	path	string	true	"Project identifier"
//	@Param			filename	path	string	true	"Document file name"
//	@Param			title		query	string	true	"Exact chapter title"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/files/{filename}/chapters [delete]
func (h *Handler) RemoveChapter(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	err := h.svc.RemoveChapter(r.Context(), param(r, "projectID"), param(r, "filename"), title)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/projects/{projectID}/search.
//
//	@Summary		Keyword search across the project's knowledge documents
//	@Tags			search
//	@Produce		json
//	@Param			projectID	path		string	true	"Project identifier"
//	@Param			q			query		string	true	"Space-separated search terms"
//	@Success		200			{object}	SearchReport
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Search(r.Context(), param(r, "projectID"), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Sync handles POST /api/sync.
//
//	@Summary		Commit uncommitted storage changes to the audit log
//	@Tags			sync
//	@Produce		json
//	@Success		204
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Sync(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
