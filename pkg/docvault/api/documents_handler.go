package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/freeplm/docvault/pkg/docvault"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200

	// maxUploadMemory bounds how much of a multipart upload is buffered in
	// memory before spilling to temp files.
	maxUploadMemory = 32 << 20
)

// DocumentResponse is the response body for a document
type DocumentResponse struct {
	ObjectID        string     `json:"object_id"`
	FileName        string     `json:"file_name"`
	Owner           string     `json:"owner"`
	Group           string     `json:"group,omitempty"`
	Role            string     `json:"role,omitempty"`
	Project         string     `json:"project,omitempty"`
	Status          string     `json:"status"`
	CurrentRevision string     `json:"current_revision"`
	FileSize        int64      `json:"file_size"`
	IsCheckedOut    bool       `json:"is_checked_out"`
	CheckedOutBy    string     `json:"checked_out_by,omitempty"`
	CheckedOutAt    *time.Time `json:"checked_out_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CreatedBy       string     `json:"created_by"`
	UpdatedAt       time.Time  `json:"updated_at"`
	UpdatedBy       string     `json:"updated_by"`
}

// RevisionResponse is the response body for a single revision
type RevisionResponse struct {
	ObjectID  string    `json:"object_id"`
	Label     string    `json:"label"`
	FileSize  int64     `json:"file_size"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

// SearchResponse is the paginated envelope for document searches
type SearchResponse struct {
	Items      []DocumentResponse `json:"items"`
	TotalCount int                `json:"total_count"`
	PageNumber int                `json:"page_number"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// DocumentHandler handles HTTP requests for documents using pkg/docvault
type DocumentHandler struct {
	service docvault.Service
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service docvault.Service) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Routes returns the routes for documents
func (h *DocumentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateDocument)
	r.Get("/", h.SearchDocuments)
	r.Get("/{objectID}", h.GetDocument)
	r.Get("/{objectID}/content", h.DownloadContent)
	r.Get("/{objectID}/content-url", h.GetDownloadURL)
	r.Get("/{objectID}/revisions", h.ListRevisions)

	return r
}

// CreateDocument registers a new document from a multipart upload.
// Form fields: file (required), owner (required), group, role, project, comment.
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		slog.Error("Invalid multipart form", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing required 'file' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	owner := r.FormValue("owner")
	if owner == "" {
		http.Error(w, "Missing required 'owner' field", http.StatusBadRequest)
		return
	}

	doc, err := h.service.CreateDocument(r.Context(), docvault.CreateDocumentRequest{
		Content:  file,
		FileName: filepath.Base(header.Filename),
		Owner:    owner,
		Group:    r.FormValue("group"),
		Role:     r.FormValue("role"),
		Project:  r.FormValue("project"),
		Comment:  r.FormValue("comment"),
	})
	if err != nil {
		slog.Error("Failed to create document", "error", err)
		writeError(w, r, err)
		return
	}

	snapshot, err := h.service.GetDocument(r.Context(), doc.ObjectID)
	if err != nil {
		slog.Error("Failed to load created document", "object_id", doc.ObjectID, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Document created", "object_id", snapshot.ObjectID, "owner", owner)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toDocumentResponse(snapshot))
}

// GetDocument retrieves a document by its object ID
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	snapshot, err := h.service.GetDocument(r.Context(), objectID)
	if err != nil {
		slog.Error("Failed to get document", "object_id", objectID, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, toDocumentResponse(snapshot))
}

// SearchDocuments searches documents by metadata filters.
// Query parameters: object_id, file_name, project, owner, status, page, page_size.
func (h *DocumentHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := docvault.SearchFilter{
		ObjectID: query.Get("object_id"),
		FileName: query.Get("file_name"),
		Project:  query.Get("project"),
		Owner:    query.Get("owner"),
		Status:   query.Get("status"),
	}

	page := parsePositiveInt(query.Get("page"), 1)
	pageSize := parsePositiveInt(query.Get("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	snapshots, err := h.service.SearchDocuments(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to search documents", "error", err)
		writeError(w, r, err)
		return
	}

	totalCount := len(snapshots)
	totalPages := (totalCount + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > totalCount {
		start = totalCount
	}
	end := start + pageSize
	if end > totalCount {
		end = totalCount
	}

	items := make([]DocumentResponse, 0, end-start)
	for _, snapshot := range snapshots[start:end] {
		items = append(items, toDocumentResponse(snapshot))
	}

	render.JSON(w, r, SearchResponse{
		Items:      items,
		TotalCount: totalCount,
		PageNumber: page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// ListRevisions lists the revision history for a document
func (h *DocumentHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	revisions, err := h.service.ListRevisions(r.Context(), objectID)
	if err != nil {
		slog.Error("Failed to list revisions", "object_id", objectID, "error", err)
		writeError(w, r, err)
		return
	}

	resp := make([]RevisionResponse, 0, len(revisions))
	for _, rev := range revisions {
		resp = append(resp, RevisionResponse{
			ObjectID:  rev.ObjectID,
			Label:     rev.Label,
			FileSize:  rev.FileSize,
			Comment:   rev.Comment,
			CreatedAt: rev.CreatedAt,
			CreatedBy: rev.CreatedBy,
		})
	}

	render.JSON(w, r, resp)
}

// DownloadContent streams the content of a revision.
// The optional "revision" query parameter selects a specific revision label;
// when absent the current revision is returned.
func (h *DocumentHandler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")
	label := r.URL.Query().Get("revision")

	snapshot, err := h.service.GetDocument(r.Context(), objectID)
	if err != nil {
		slog.Error("Failed to get document", "object_id", objectID, "error", err)
		writeError(w, r, err)
		return
	}

	reader, err := h.service.DownloadContent(r.Context(), objectID, label)
	if err != nil {
		slog.Error("Failed to download content", "object_id", objectID, "revision", label, "error", err)
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(snapshot.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": snapshot.FileName,
	}))

	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("Failed to stream content", "object_id", objectID, "error", err)
	}
}

// GetDownloadURL returns a direct download URL for a revision when the
// storage backend supports it (for example presigned S3 URLs).
func (h *DocumentHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")
	label := r.URL.Query().Get("revision")

	url, err := h.service.GetDownloadURL(r.Context(), objectID, label)
	if err != nil {
		slog.Error("Failed to get download URL", "object_id", objectID, "revision", label, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{"download_url": url})
}

func toDocumentResponse(s *docvault.DocumentSnapshot) DocumentResponse {
	return DocumentResponse{
		ObjectID:        s.ObjectID,
		FileName:        s.FileName,
		Owner:           s.Owner,
		Group:           s.Group,
		Role:            s.Role,
		Project:         s.Project,
		Status:          string(s.Status),
		CurrentRevision: s.CurrentRevisionLabel,
		FileSize:        s.FileSize,
		IsCheckedOut:    s.IsCheckedOut,
		CheckedOutBy:    s.CheckedOutBy,
		CheckedOutAt:    s.CheckedOutAt,
		CreatedAt:       s.CreatedAt,
		CreatedBy:       s.CreatedBy,
		UpdatedAt:       s.UpdatedAt,
		UpdatedBy:       s.UpdatedBy,
	}
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
