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

// CheckOutRequest is the request body for checking out a document
type CheckOutRequest struct {
	UserID      string `json:"user_id"`
	MachineName string `json:"machine_name,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// CheckOutResponse is the response body for a successful check-out
type CheckOutResponse struct {
	ObjectID      string    `json:"object_id"`
	RevisionLabel string    `json:"revision_label"`
	CheckedOutAt  time.Time `json:"checked_out_at"`
}

// CheckInResponse is the response body for a check-in
type CheckInResponse struct {
	ObjectID         string    `json:"object_id"`
	NewRevision      string    `json:"new_revision"`
	PreviousRevision string    `json:"previous_revision"`
	CheckedInAt      time.Time `json:"checked_in_at"`
	StatusError      string    `json:"status_error,omitempty"`
}

// CheckOutStatusResponse describes the lock state of a document
type CheckOutStatusResponse struct {
	ObjectID        string     `json:"object_id"`
	IsLocked        bool       `json:"is_locked"`
	LockedBy        string     `json:"locked_by,omitempty"`
	LockedAt        *time.Time `json:"locked_at,omitempty"`
	WorkingRevision string     `json:"working_revision,omitempty"`
	MachineName     string     `json:"machine_name,omitempty"`
}

// CheckOutHandler handles the exclusive check-out lifecycle of documents
type CheckOutHandler struct {
	service docvault.Service
}

// NewCheckOutHandler creates a new check-out handler
func NewCheckOutHandler(service docvault.Service) *CheckOutHandler {
	return &CheckOutHandler{service: service}
}

// Routes returns the routes for the check-out lifecycle
func (h *CheckOutHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{objectID}/checkout", h.CheckOut)
	r.Post("/{objectID}/checkin", h.CheckIn)
	r.Post("/{objectID}/cancel", h.CancelCheckOut)
	r.Get("/{objectID}/status", h.GetStatus)

	return r
}

// CheckOut acquires the exclusive edit lock on a document
func (h *CheckOutHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	var req CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "Missing required 'user_id' field", http.StatusBadRequest)
		return
	}

	result, err := h.service.CheckOut(r.Context(), docvault.CheckOutRequest{
		ObjectID:    objectID,
		UserID:      req.UserID,
		MachineName: req.MachineName,
		Comment:     req.Comment,
	})
	if err != nil {
		slog.Error("Failed to check out document", "object_id", objectID, "user_id", req.UserID, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Document checked out", "object_id", objectID, "user_id", req.UserID)
	render.JSON(w, r, CheckOutResponse{
		ObjectID:      result.ObjectID,
		RevisionLabel: result.RevisionLabel,
		CheckedOutAt:  result.CheckedOutAt,
	})
}

// CheckIn commits new content as the next revision and releases the lock.
// Form fields: file (required), user_id (required), comment, major
// ("true" promotes the major letter), new_status (optional workflow target).
func (h *CheckOutHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		slog.Error("Invalid multipart form", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing required 'file' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	userID := r.FormValue("user_id")
	if userID == "" {
		http.Error(w, "Missing required 'user_id' field", http.StatusBadRequest)
		return
	}

	req := docvault.CheckInRequest{
		ObjectID: objectID,
		UserID:   userID,
		Content:  file,
		Comment:  r.FormValue("comment"),
		IsMajor:  r.FormValue("major") == "true",
	}

	if raw := r.FormValue("new_status"); raw != "" {
		status := docvault.Status(raw)
		if !status.IsValid() {
			http.Error(w, "Invalid status: "+raw, http.StatusBadRequest)
			return
		}
		req.NewStatus = &status
	}

	result, err := h.service.CheckIn(r.Context(), req)
	if err != nil {
		slog.Error("Failed to check in document", "object_id", objectID, "user_id", userID, "error", err)
		writeError(w, r, err)
		return
	}

	resp := CheckInResponse{
		ObjectID:         result.ObjectID,
		NewRevision:      result.NewRevision,
		PreviousRevision: result.PreviousRevision,
		CheckedInAt:      result.CheckedInAt,
	}
	if result.StatusChangeErr != nil {
		// The revision was committed; only the status change was rejected.
		resp.StatusError = result.StatusChangeErr.Error()
		slog.Warn("Check-in status change rejected",
			"object_id", objectID, "error", result.StatusChangeErr)
	}

	slog.Info("Document checked in",
		"object_id", objectID, "new_revision", result.NewRevision, "user_id", userID)
	render.JSON(w, r, resp)
}

// CancelCheckOut releases the lock without committing any content
func (h *CheckOutHandler) CancelCheckOut(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	var req CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "Missing required 'user_id' field", http.StatusBadRequest)
		return
	}

	if err := h.service.CancelCheckOut(r.Context(), objectID, req.UserID); err != nil {
		slog.Error("Failed to cancel check-out", "object_id", objectID, "user_id", req.UserID, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("Check-out cancelled", "object_id", objectID, "user_id", req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus reports whether a document is checked out and by whom
func (h *CheckOutHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "objectID")

	status, err := h.service.GetCheckOutStatus(r.Context(), objectID)
	if err != nil {
		slog.Error("Failed to get check-out status", "object_id", objectID, "error", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, CheckOutStatusResponse{
		ObjectID:        objectID,
		IsLocked:        status.IsLocked,
		LockedBy:        status.LockedBy,
		LockedAt:        status.LockedAt,
		WorkingRevision: status.WorkingRevision,
		MachineName:     status.MachineName,
	})
}
