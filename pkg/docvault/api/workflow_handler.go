package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/freeplm/docvault/pkg/docvault"
)

// ChangeStatusRequest is the request body for a workflow status change
type ChangeStatusRequest struct {
	NewStatus string `json:"new_status"`
	UserID    string `json:"user_id"`
	Comment   string `json:"comment,omitempty"`
}

// StatusChangeResponse is the response body for a workflow status change
type StatusChangeResponse struct {
	ObjectID  string    `json:"object_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

// HistoryEntryResponse is the response body for a workflow history entry
type HistoryEntryResponse struct {
	SequenceID int       `json:"sequence_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
	Comment    string    `json:"comment,omitempty"`
}

// WorkflowHandler handles workflow status transitions and history
type WorkflowHandler struct {
	service docvault.Service
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(service docvault.Service) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// Routes returns the routes for workflow operations
func (h *WorkflowHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{objectID}/status", h.ChangeStatus)
	r.Get("/{objectID}/history", h.GetHistory)

	return r
}

// ChangeStatus moves a document to a new workflow status
func (h *WorkflowHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "Missing required 'user_id' field", http.StatusBadRequest)
		return
	}

	status := docvault.Status(req.NewStatus)
	if !status.IsValid() {
		http.Error(w, "Invalid status: "+req.NewStatus, http.StatusBadRequest)
		return
	}

	result, err := h.service.ChangeStatus(r.Context(), docvault.ChangeStatusRequest{
		ObjectID:  objectID,
		NewStatus: status,
		UserID:    req.UserID,
		Comment:   req.Comment,
	})
	if err != nil {
		slog.Error("Failed to change status",
			"object_id", objectID, "new_status", req.NewStatus, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Status changed",
		"object_id", objectID, "old_status", result.OldStatus, "new_status", result.NewStatus)
	render.JSON(w, r, StatusChangeResponse{
		ObjectID:  result.ObjectID,
		OldStatus: string(result.OldStatus),
		NewStatus: string(result.NewStatus),
		ChangedAt: result.ChangedAt,
	})
}

// GetHistory lists the workflow history of a document in chronological order
func (h *WorkflowHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	entries, err := h.service.GetHistory(r.Context(), objectID)
	if err != nil {
		slog.Error("Failed to get workflow history", "object_id", objectID, "error", err)
		writeError(w, r, err)
		return
	}

	resp := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, HistoryEntryResponse{
			SequenceID: entry.SequenceID,
			OldStatus:  string(entry.OldStatus),
			NewStatus:  string(entry.NewStatus),
			ChangedBy:  entry.ChangedBy,
			ChangedAt:  entry.ChangedAt,
			Comment:    entry.Comment,
		})
	}

	render.JSON(w, r, resp)
}
