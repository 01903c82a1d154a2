package docvault

import (
	"io"
	"time"
)

// Request/Response DTOs

// CreateDocumentRequest contains parameters for creating a new document.
// Content may be empty; it becomes revision A.01 either way.
type CreateDocumentRequest struct {
	Content  io.Reader
	FileName string
	Owner    string
	Group    string
	Role     string
	Project  string
	Comment  string
}

// CheckOutRequest contains parameters for acquiring a document's edit lock
type CheckOutRequest struct {
	ObjectID    string
	UserID      string
	MachineName string
	Comment     string
}

// CheckOutResult is the payload of a successful check-out
type CheckOutResult struct {
	ObjectID      string
	RevisionLabel string
	CheckedOutAt  time.Time
}

// CheckInRequest contains parameters for committing new content as a new
// revision. NewStatus, when non-nil, requests a workflow transition after the
// content commit.
type CheckInRequest struct {
	ObjectID  string
	UserID    string
	Content   io.Reader
	Comment   string
	IsMajor   bool
	NewStatus *Status
}

// CheckInResult is the payload of a successful check-in. StatusChangeErr
// carries a rejected NewStatus transition: the revision commit itself is
// never blocked by workflow validation, so a check-in can succeed while the
// requested status change fails.
type CheckInResult struct {
	ObjectID         string
	NewRevision      string
	PreviousRevision string
	CheckedInAt      time.Time
	StatusChangeErr  error
}

// ChangeStatusRequest contains parameters for a workflow transition
type ChangeStatusRequest struct {
	ObjectID  string
	NewStatus Status
	UserID    string
	Comment   string
}

// StatusChangeResult is the payload of a successful workflow transition
type StatusChangeResult struct {
	ObjectID  string
	OldStatus Status
	NewStatus Status
	ChangedAt time.Time
}

// CheckOutStatus reports a document's lock state. All fields after IsLocked
// are zero when the document is not checked out.
type CheckOutStatus struct {
	IsLocked        bool
	LockedBy        string
	LockedAt        *time.Time
	WorkingRevision string
	MachineName     string
}
