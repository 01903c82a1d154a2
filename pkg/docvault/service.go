package docvault

import (
	"context"
	"io"
)

// Service defines the main interface for the docvault library: document
// creation, exclusive check-out/check-in, content retrieval, search and the
// workflow engine.
type Service interface {
	// Document operations
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error)
	GetDocument(ctx context.Context, objectID string) (*DocumentSnapshot, error)
	SearchDocuments(ctx context.Context, filter SearchFilter) ([]*DocumentSnapshot, error)
	ListRevisions(ctx context.Context, objectID string) ([]*Revision, error)

	// Content retrieval. An empty revisionLabel resolves to the document's
	// current revision.
	DownloadContent(ctx context.Context, objectID, revisionLabel string) (io.ReadCloser, error)
	GetDownloadURL(ctx context.Context, objectID, revisionLabel string) (string, error)

	// Check-out locking
	CheckOut(ctx context.Context, req CheckOutRequest) (*CheckOutResult, error)
	CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error)
	CancelCheckOut(ctx context.Context, objectID, userID string) error
	GetCheckOutStatus(ctx context.Context, objectID string) (*CheckOutStatus, error)

	// Workflow
	ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*StatusChangeResult, error)
	GetHistory(ctx context.Context, objectID string) ([]*WorkflowHistoryEntry, error)
}
