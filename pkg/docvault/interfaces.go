package docvault

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for content storage backends. Content keys
// are unique per (document, revision) write, so different keys may be written
// concurrently without coordination.
type BlobStore interface {
	// Upload stores content under the given key
	Upload(ctx context.Context, contentKey string, reader io.Reader) error

	// Download retrieves the content stored under the given key
	Download(ctx context.Context, contentKey string) (io.ReadCloser, error)

	// Delete removes the content stored under the given key
	Delete(ctx context.Context, contentKey string) error

	// GetContentMeta retrieves storage-level metadata for a key
	GetContentMeta(ctx context.Context, contentKey string) (*ContentMeta, error)

	// GetDownloadURL returns a URL for downloading content, when the backend
	// supports URL-based access (e.g. presigned S3 URLs)
	GetDownloadURL(ctx context.Context, contentKey string, downloadFilename string) (string, error)
}

// ContentMeta contains storage-level metadata about stored content
type ContentMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// Repository defines the interface for document metadata persistence. It is
// the single source of truth for lock ownership: all mutations of a
// document's lock, current revision label, or status go through
// UpdateDocument, which serializes writers per document.
type Repository interface {
	// CreateDocument persists a new document record. The document must not
	// already exist.
	CreateDocument(ctx context.Context, doc *Document) error

	// GetDocument returns the document record, or ErrDocumentNotFound.
	GetDocument(ctx context.Context, objectID string) (*Document, error)

	// DeleteDocument removes a document record together with its lock,
	// revision and history rows. Used to roll back a document whose initial
	// revision failed to commit.
	DeleteDocument(ctx context.Context, objectID string) error

	// GetLock returns the document's lock row, or nil when the document is
	// not checked out. Returns ErrDocumentNotFound for unknown documents.
	GetLock(ctx context.Context, objectID string) (*Lock, error)

	// GetRevision returns one revision row, or ErrRevisionNotFound.
	GetRevision(ctx context.Context, objectID, label string) (*Revision, error)

	// ListRevisions returns all revisions of a document ordered oldest first.
	ListRevisions(ctx context.Context, objectID string) ([]*Revision, error)

	// ListHistory returns the workflow history ordered by ascending
	// SequenceID. A document that never transitioned yields an empty slice.
	ListHistory(ctx context.Context, objectID string) ([]*WorkflowHistoryEntry, error)

	// SearchDocuments returns documents matching the filter, ordered by
	// ObjectID ascending.
	SearchDocuments(ctx context.Context, filter SearchFilter) ([]*Document, error)

	// UpdateDocument runs fn against the document's mutable state under the
	// repository's per-document write boundary. Mutations recorded on the
	// DocumentTx are applied atomically when fn returns nil and discarded
	// entirely when it returns an error. Two UpdateDocument calls for the
	// same objectID never interleave; calls for different documents do not
	// contend.
	UpdateDocument(ctx context.Context, objectID string, fn func(tx *DocumentTx) error) error
}

// SearchFilter holds the optional, conjunctive document search filters.
// ObjectID and Status match exact (case-insensitive); FileName, Project and
// Owner match case-insensitive substring. Empty fields impose no constraint.
type SearchFilter struct {
	ObjectID string
	FileName string
	Project  string
	Owner    string
	Status   string
}

// DocumentTx is the mutable view of one document inside an atomic update.
// Document and Lock reflect the committed state at the start of the update;
// Lock is nil when the document is not checked out. Mutation methods record
// changes that the repository applies on successful return.
type DocumentTx struct {
	Document *Document
	Lock     *Lock

	setLock    *Lock
	clearLock  bool
	revisions  []*Revision
	setCurrent string
	setStatus  *Status
	history    []*WorkflowHistoryEntry
	updatedAt  time.Time
	updatedBy  string
}

// SetLock records creation of the document's lock row.
func (tx *DocumentTx) SetLock(lock *Lock) {
	tx.setLock = lock
	tx.clearLock = false
}

// ClearLock records removal of the document's lock row.
func (tx *DocumentTx) ClearLock() {
	tx.setLock = nil
	tx.clearLock = true
}

// AddRevision records appending an immutable revision row.
func (tx *DocumentTx) AddRevision(rev *Revision) {
	tx.revisions = append(tx.revisions, rev)
}

// SetCurrentRevision records updating the document's current revision label.
func (tx *DocumentTx) SetCurrentRevision(label string) {
	tx.setCurrent = label
}

// SetStatus records updating the document's workflow status.
func (tx *DocumentTx) SetStatus(status Status) {
	tx.setStatus = &status
}

// AppendHistory records appending a workflow history entry. The repository
// assigns the entry's SequenceID.
func (tx *DocumentTx) AppendHistory(entry *WorkflowHistoryEntry) {
	tx.history = append(tx.history, entry)
}

// Touch records the document's modification stamp.
func (tx *DocumentTx) Touch(at time.Time, by string) {
	tx.updatedAt = at
	tx.updatedBy = by
}

// Apply replays the recorded mutations onto a document record. Repositories
// call this after fn succeeds; the lock, revision and history mutations are
// applied by the repository itself since their storage is repository
// specific.
func (tx *DocumentTx) Apply(doc *Document) {
	if tx.setCurrent != "" {
		doc.CurrentRevisionLabel = tx.setCurrent
	}
	if tx.setStatus != nil {
		doc.Status = *tx.setStatus
	}
	if !tx.updatedAt.IsZero() {
		doc.UpdatedAt = tx.updatedAt
		doc.UpdatedBy = tx.updatedBy
	}
}

// Mutations exposes the recorded lock, revision and history changes to
// repository implementations.
func (tx *DocumentTx) Mutations() (setLock *Lock, clearLock bool, revisions []*Revision, history []*WorkflowHistoryEntry) {
	return tx.setLock, tx.clearLock, tx.revisions, tx.history
}

// EventSink defines the interface for domain event notification. Sink
// failures are logged and never fail the originating operation.
type EventSink interface {
	// DocumentCreated is fired after a document and its initial revision commit
	DocumentCreated(ctx context.Context, doc *Document) error

	// DocumentCheckedOut is fired after a lock is acquired
	DocumentCheckedOut(ctx context.Context, lock *Lock) error

	// DocumentCheckedIn is fired after a new revision commits and the lock clears
	DocumentCheckedIn(ctx context.Context, doc *Document, rev *Revision) error

	// CheckOutCancelled is fired after a lock is released without a check-in
	CheckOutCancelled(ctx context.Context, objectID, userID string) error

	// StatusChanged is fired after a workflow transition commits
	StatusChanged(ctx context.Context, entry *WorkflowHistoryEntry) error
}
