package docvault

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository    Repository
	blobStore     BlobStore
	eventSink     EventSink
	transitions   TransitionTable
	initialStatus Status
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the content storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithTransitions replaces the workflow transition table
func WithTransitions(table TransitionTable) Option {
	return func(s *service) {
		s.transitions = table
	}
}

// WithInitialStatus sets the status assigned to newly created documents
func WithInitialStatus(status Status) Option {
	return func(s *service) {
		s.initialStatus = status
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		transitions:   DefaultTransitions(),
		initialStatus: StatusPrivate,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	return s, nil
}

// Document operations

func (s *service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	now := time.Now().UTC()
	doc := &Document{
		ObjectID:  newObjectID(now),
		FileName:  req.FileName,
		Owner:     req.Owner,
		Group:     req.Group,
		Role:      req.Role,
		Project:   req.Project,
		Status:    s.initialStatus,
		CreatedAt: now,
		CreatedBy: req.Owner,
		UpdatedAt: now,
		UpdatedBy: req.Owner,
	}

	if err := s.repository.CreateDocument(ctx, doc); err != nil {
		return nil, &DocumentError{ObjectID: doc.ObjectID, Op: "create", Err: err}
	}

	key := contentKey(doc.ObjectID, InitialRevisionLabel, doc.FileName)
	content := req.Content
	if content == nil {
		content = strings.NewReader("")
	}
	counted := &countingReader{r: content}
	if err := s.blobStore.Upload(ctx, key, counted); err != nil {
		// Roll back the document record so a failed create leaves no ghost
		// behind in searches.
		_ = s.repository.DeleteDocument(ctx, doc.ObjectID)
		return nil, &StorageError{Key: key, Op: "upload", Err: err}
	}

	err := s.repository.UpdateDocument(ctx, doc.ObjectID, func(tx *DocumentTx) error {
		tx.AddRevision(&Revision{
			ObjectID:   doc.ObjectID,
			Label:      InitialRevisionLabel,
			ContentKey: key,
			FileSize:   counted.n,
			Comment:    req.Comment,
			CreatedAt:  now,
			CreatedBy:  req.Owner,
		})
		tx.SetCurrentRevision(InitialRevisionLabel)
		return nil
	})
	if err != nil {
		_ = s.blobStore.Delete(ctx, key)
		_ = s.repository.DeleteDocument(ctx, doc.ObjectID)
		return nil, &DocumentError{ObjectID: doc.ObjectID, Op: "create", Err: err}
	}
	doc.CurrentRevisionLabel = InitialRevisionLabel

	if s.eventSink != nil {
		_ = s.eventSink.DocumentCreated(ctx, doc)
	}

	return doc, nil
}

func (s *service) GetDocument(ctx context.Context, objectID string) (*DocumentSnapshot, error) {
	doc, err := s.repository.GetDocument(ctx, objectID)
	if err != nil {
		return nil, &DocumentError{ObjectID: objectID, Op: "get", Err: err}
	}
	return s.snapshot(ctx, doc)
}

func (s *service) SearchDocuments(ctx context.Context, filter SearchFilter) ([]*DocumentSnapshot, error) {
	docs, err := s.repository.SearchDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	snapshots := make([]*DocumentSnapshot, 0, len(docs))
	for _, doc := range docs {
		snap, err := s.snapshot(ctx, doc)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (s *service) ListRevisions(ctx context.Context, objectID string) ([]*Revision, error) {
	if _, err := s.repository.GetDocument(ctx, objectID); err != nil {
		return nil, &DocumentError{ObjectID: objectID, Op: "list_revisions", Err: err}
	}
	return s.repository.ListRevisions(ctx, objectID)
}

// Content retrieval

func (s *service) DownloadContent(ctx context.Context, objectID, revisionLabel string) (io.ReadCloser, error) {
	rev, err := s.resolveRevision(ctx, objectID, revisionLabel)
	if err != nil {
		return nil, err
	}

	reader, err := s.blobStore.Download(ctx, rev.ContentKey)
	if err != nil {
		return nil, &StorageError{Key: rev.ContentKey, Op: "download", Err: err}
	}
	return reader, nil
}

func (s *service) GetDownloadURL(ctx context.Context, objectID, revisionLabel string) (string, error) {
	doc, err := s.repository.GetDocument(ctx, objectID)
	if err != nil {
		return "", &DocumentError{ObjectID: objectID, Op: "get_download_url", Err: err}
	}

	rev, err := s.resolveRevision(ctx, objectID, revisionLabel)
	if err != nil {
		return "", err
	}
	return s.blobStore.GetDownloadURL(ctx, rev.ContentKey, doc.FileName)
}

// Check-out locking

func (s *service) CheckOut(ctx context.Context, req CheckOutRequest) (*CheckOutResult, error) {
	now := time.Now().UTC()
	var lock *Lock

	err := s.repository.UpdateDocument(ctx, req.ObjectID, func(tx *DocumentTx) error {
		if tx.Lock != nil {
			return fmt.Errorf("%w (by %s since %s)", ErrAlreadyCheckedOut,
				tx.Lock.LockedBy, tx.Lock.LockedAt.Format(time.RFC3339))
		}

		lock = &Lock{
			ObjectID:             req.ObjectID,
			LockedBy:             req.UserID,
			LockedAt:             now,
			MachineName:          req.MachineName,
			WorkingRevisionLabel: tx.Document.CurrentRevisionLabel,
			Comment:              req.Comment,
		}
		tx.SetLock(lock)
		return nil
	})
	if err != nil {
		return nil, &DocumentError{ObjectID: req.ObjectID, Op: "checkout", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.DocumentCheckedOut(ctx, lock)
	}

	return &CheckOutResult{
		ObjectID:      req.ObjectID,
		RevisionLabel: lock.WorkingRevisionLabel,
		CheckedOutAt:  now,
	}, nil
}

func (s *service) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	now := time.Now().UTC()
	var (
		result CheckInResult
		doc    *Document
		rev    *Revision
	)

	err := s.repository.UpdateDocument(ctx, req.ObjectID, func(tx *DocumentTx) error {
		if tx.Lock == nil {
			return ErrNotCheckedOut
		}
		if tx.Lock.LockedBy != req.UserID {
			return fmt.Errorf("%w: locked by %s", ErrNotLockHolder, tx.Lock.LockedBy)
		}

		previous := tx.Document.CurrentRevisionLabel
		next := NextLabel(previous, req.IsMajor)

		key := contentKey(req.ObjectID, next, tx.Document.FileName)
		content := req.Content
		if content == nil {
			content = strings.NewReader("")
		}
		counted := &countingReader{r: content}
		if err := s.blobStore.Upload(ctx, key, counted); err != nil {
			return &StorageError{Key: key, Op: "upload", Err: err}
		}

		rev = &Revision{
			ObjectID:   req.ObjectID,
			Label:      next,
			ContentKey: key,
			FileSize:   counted.n,
			Comment:    req.Comment,
			CreatedAt:  now,
			CreatedBy:  req.UserID,
		}
		tx.AddRevision(rev)
		tx.SetCurrentRevision(next)
		tx.ClearLock()
		tx.Touch(now, req.UserID)

		result = CheckInResult{
			ObjectID:         req.ObjectID,
			NewRevision:      next,
			PreviousRevision: previous,
			CheckedInAt:      now,
		}

		// The content commit is never blocked by workflow validation: a
		// rejected status change is reported on the result while the
		// revision, label and lock changes still commit.
		if req.NewStatus != nil {
			current := tx.Document.Status
			if !req.NewStatus.IsValid() || !s.transitions.Allows(current, *req.NewStatus) {
				result.StatusChangeErr = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, *req.NewStatus)
			} else {
				tx.SetStatus(*req.NewStatus)
				tx.AppendHistory(&WorkflowHistoryEntry{
					ObjectID:  req.ObjectID,
					OldStatus: current,
					NewStatus: *req.NewStatus,
					ChangedBy: req.UserID,
					ChangedAt: now,
					Comment:   req.Comment,
				})
			}
		}

		doc = tx.Document
		return nil
	})
	if err != nil {
		return nil, &DocumentError{ObjectID: req.ObjectID, Op: "checkin", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.DocumentCheckedIn(ctx, doc, rev)
	}

	return &result, nil
}

func (s *service) CancelCheckOut(ctx context.Context, objectID, userID string) error {
	err := s.repository.UpdateDocument(ctx, objectID, func(tx *DocumentTx) error {
		if tx.Lock == nil {
			return ErrNotCheckedOut
		}
		if tx.Lock.LockedBy != userID {
			return fmt.Errorf("%w: locked by %s", ErrNotLockHolder, tx.Lock.LockedBy)
		}
		// Uncommitted working content is discarded with the lock; the stored
		// revisions are untouched.
		tx.ClearLock()
		return nil
	})
	if err != nil {
		return &DocumentError{ObjectID: objectID, Op: "cancel_checkout", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.CheckOutCancelled(ctx, objectID, userID)
	}
	return nil
}

func (s *service) GetCheckOutStatus(ctx context.Context, objectID string) (*CheckOutStatus, error) {
	lock, err := s.repository.GetLock(ctx, objectID)
	if err != nil {
		return nil, &DocumentError{ObjectID: objectID, Op: "checkout_status", Err: err}
	}
	if lock == nil {
		return &CheckOutStatus{}, nil
	}

	lockedAt := lock.LockedAt
	return &CheckOutStatus{
		IsLocked:        true,
		LockedBy:        lock.LockedBy,
		LockedAt:        &lockedAt,
		WorkingRevision: lock.WorkingRevisionLabel,
		MachineName:     lock.MachineName,
	}, nil
}

// Workflow

func (s *service) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*StatusChangeResult, error) {
	now := time.Now().UTC()
	var result StatusChangeResult
	var entry *WorkflowHistoryEntry

	err := s.repository.UpdateDocument(ctx, req.ObjectID, func(tx *DocumentTx) error {
		current := tx.Document.Status
		if !req.NewStatus.IsValid() || !s.transitions.Allows(current, req.NewStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, req.NewStatus)
		}

		tx.SetStatus(req.NewStatus)
		entry = &WorkflowHistoryEntry{
			ObjectID:  req.ObjectID,
			OldStatus: current,
			NewStatus: req.NewStatus,
			ChangedBy: req.UserID,
			ChangedAt: now,
			Comment:   req.Comment,
		}
		tx.AppendHistory(entry)
		tx.Touch(now, req.UserID)

		result = StatusChangeResult{
			ObjectID:  req.ObjectID,
			OldStatus: current,
			NewStatus: req.NewStatus,
			ChangedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, &DocumentError{ObjectID: req.ObjectID, Op: "change_status", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.StatusChanged(ctx, entry)
	}

	return &result, nil
}

func (s *service) GetHistory(ctx context.Context, objectID string) ([]*WorkflowHistoryEntry, error) {
	if _, err := s.repository.GetDocument(ctx, objectID); err != nil {
		return nil, &DocumentError{ObjectID: objectID, Op: "get_history", Err: err}
	}
	return s.repository.ListHistory(ctx, objectID)
}

// Helper methods

func (s *service) snapshot(ctx context.Context, doc *Document) (*DocumentSnapshot, error) {
	snap := &DocumentSnapshot{Document: *doc}

	lock, err := s.repository.GetLock(ctx, doc.ObjectID)
	if err != nil {
		return nil, &DocumentError{ObjectID: doc.ObjectID, Op: "get", Err: err}
	}
	if lock != nil {
		lockedAt := lock.LockedAt
		snap.IsCheckedOut = true
		snap.CheckedOutBy = lock.LockedBy
		snap.CheckedOutAt = &lockedAt
		snap.WorkingLabel = lock.WorkingRevisionLabel
	}

	if doc.CurrentRevisionLabel != "" {
		rev, err := s.repository.GetRevision(ctx, doc.ObjectID, doc.CurrentRevisionLabel)
		if err != nil {
			return nil, &DocumentError{ObjectID: doc.ObjectID, Op: "get", Err: err}
		}
		snap.FileSize = rev.FileSize
	}

	return snap, nil
}

func (s *service) resolveRevision(ctx context.Context, objectID, revisionLabel string) (*Revision, error) {
	if revisionLabel == "" {
		doc, err := s.repository.GetDocument(ctx, objectID)
		if err != nil {
			return nil, &DocumentError{ObjectID: objectID, Op: "download", Err: err}
		}
		if doc.CurrentRevisionLabel == "" {
			return nil, &DocumentError{ObjectID: objectID, Op: "download", Err: ErrRevisionNotFound}
		}
		revisionLabel = doc.CurrentRevisionLabel
	}

	rev, err := s.repository.GetRevision(ctx, objectID, revisionLabel)
	if err != nil {
		return nil, &DocumentError{ObjectID: objectID, Op: "download", Err: err}
	}
	return rev, nil
}

// newObjectID produces identifiers of the form DOC-20240131-9F3A2C1D.
func newObjectID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("DOC-%s-%s", now.Format("20060102"), suffix)
}

// contentKey builds the storage key for one revision's content. Only the base
// name of the file contributes to the key: caller-supplied path segments must
// never reach the storage backend's path space.
func contentKey(objectID, label, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		name = ""
	}
	if name != "" {
		return fmt.Sprintf("%s/%s/%s", objectID, label, name)
	}
	return fmt.Sprintf("%s/%s", objectID, label)
}

// countingReader counts the bytes passed through so revisions can record the
// stored file size without a second pass over the content.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
