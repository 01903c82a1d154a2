package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/freeplm/docvault/pkg/docvault"
)

// Repository implements docvault.Repository using in-memory storage.
//
// A single RWMutex guards the maps, while UpdateDocument additionally holds a
// per-document mutex for the whole read-modify-write cycle. The map mutex is
// only held for short copy/apply sections, so updates to different documents
// do not contend even when fn performs I/O.
type Repository struct {
	mu        sync.RWMutex
	documents map[string]*docvault.Document
	locks     map[string]*docvault.Lock
	revisions map[string][]*docvault.Revision
	history   map[string][]*docvault.WorkflowHistoryEntry

	updateMu sync.Mutex
	updating map[string]*sync.Mutex
}

// New creates a new in-memory repository
func New() docvault.Repository {
	return &Repository{
		documents: make(map[string]*docvault.Document),
		locks:     make(map[string]*docvault.Lock),
		revisions: make(map[string][]*docvault.Revision),
		history:   make(map[string][]*docvault.WorkflowHistoryEntry),
		updating:  make(map[string]*sync.Mutex),
	}
}

func (r *Repository) CreateDocument(ctx context.Context, doc *docvault.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[doc.ObjectID]; exists {
		return fmt.Errorf("document %s already exists", doc.ObjectID)
	}

	// Store a copy to avoid external modifications
	docCopy := *doc
	r.documents[doc.ObjectID] = &docCopy
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, objectID string) (*docvault.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[objectID]
	if !exists {
		return nil, docvault.ErrDocumentNotFound
	}
	docCopy := *doc
	return &docCopy, nil
}

func (r *Repository) DeleteDocument(ctx context.Context, objectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[objectID]; !exists {
		return docvault.ErrDocumentNotFound
	}
	delete(r.documents, objectID)
	delete(r.locks, objectID)
	delete(r.revisions, objectID)
	delete(r.history, objectID)
	return nil
}

func (r *Repository) GetLock(ctx context.Context, objectID string) (*docvault.Lock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.documents[objectID]; !exists {
		return nil, docvault.ErrDocumentNotFound
	}
	lock, exists := r.locks[objectID]
	if !exists {
		return nil, nil
	}
	lockCopy := *lock
	return &lockCopy, nil
}

func (r *Repository) GetRevision(ctx context.Context, objectID, label string) (*docvault.Revision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.documents[objectID]; !exists {
		return nil, docvault.ErrDocumentNotFound
	}
	for _, rev := range r.revisions[objectID] {
		if rev.Label == label {
			revCopy := *rev
			return &revCopy, nil
		}
	}
	return nil, docvault.ErrRevisionNotFound
}

func (r *Repository) ListRevisions(ctx context.Context, objectID string) ([]*docvault.Revision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.documents[objectID]; !exists {
		return nil, docvault.ErrDocumentNotFound
	}

	result := make([]*docvault.Revision, 0, len(r.revisions[objectID]))
	for _, rev := range r.revisions[objectID] {
		revCopy := *rev
		result = append(result, &revCopy)
	}
	return result, nil
}

func (r *Repository) ListHistory(ctx context.Context, objectID string) ([]*docvault.WorkflowHistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.documents[objectID]; !exists {
		return nil, docvault.ErrDocumentNotFound
	}

	result := make([]*docvault.WorkflowHistoryEntry, 0, len(r.history[objectID]))
	for _, entry := range r.history[objectID] {
		entryCopy := *entry
		result = append(result, &entryCopy)
	}
	return result, nil
}

func (r *Repository) SearchDocuments(ctx context.Context, filter docvault.SearchFilter) ([]*docvault.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*docvault.Document
	for _, doc := range r.documents {
		if matches(doc, filter) {
			docCopy := *doc
			result = append(result, &docCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObjectID < result[j].ObjectID
	})
	return result, nil
}

func (r *Repository) UpdateDocument(ctx context.Context, objectID string, fn func(tx *docvault.DocumentTx) error) error {
	docMu := r.documentMutex(objectID)
	docMu.Lock()
	defer docMu.Unlock()

	// Snapshot the committed state for fn
	r.mu.RLock()
	doc, exists := r.documents[objectID]
	if !exists {
		r.mu.RUnlock()
		return docvault.ErrDocumentNotFound
	}
	docCopy := *doc
	tx := &docvault.DocumentTx{Document: &docCopy}
	if lock, ok := r.locks[objectID]; ok {
		lockCopy := *lock
		tx.Lock = &lockCopy
	}
	r.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	// Apply the recorded mutations
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := *r.documents[objectID]
	tx.Apply(&applied)
	r.documents[objectID] = &applied

	setLock, clearLock, revisions, history := tx.Mutations()
	if clearLock {
		delete(r.locks, objectID)
	}
	if setLock != nil {
		lockCopy := *setLock
		r.locks[objectID] = &lockCopy
	}
	for _, rev := range revisions {
		revCopy := *rev
		r.revisions[objectID] = append(r.revisions[objectID], &revCopy)
	}
	for _, entry := range history {
		entryCopy := *entry
		entryCopy.SequenceID = len(r.history[objectID]) + 1
		r.history[objectID] = append(r.history[objectID], &entryCopy)
	}

	return nil
}

// documentMutex returns the mutex serializing updates for one document
func (r *Repository) documentMutex(objectID string) *sync.Mutex {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	mu, ok := r.updating[objectID]
	if !ok {
		mu = &sync.Mutex{}
		r.updating[objectID] = mu
	}
	return mu
}

func matches(doc *docvault.Document, filter docvault.SearchFilter) bool {
	if filter.ObjectID != "" && !strings.EqualFold(doc.ObjectID, filter.ObjectID) {
		return false
	}
	if filter.Status != "" && !strings.EqualFold(string(doc.Status), filter.Status) {
		return false
	}
	if !containsFold(doc.FileName, filter.FileName) {
		return false
	}
	if !containsFold(doc.Project, filter.Project) {
		return false
	}
	if !containsFold(doc.Owner, filter.Owner) {
		return false
	}
	return true
}

func containsFold(value, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}
