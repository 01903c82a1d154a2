package docvault

import "time"

// Status is the workflow state of a document.
type Status string

// Workflow status constants (typed).
const (
	StatusPrivate     Status = "Private"
	StatusInWork      Status = "InWork"
	StatusUnderReview Status = "UnderReview"
	StatusReleased    Status = "Released"
	StatusObsolete    Status = "Obsolete"
)

// IsValid reports whether s is one of the known workflow statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPrivate, StatusInWork, StatusUnderReview, StatusReleased, StatusObsolete:
		return true
	}
	return false
}

// Document is the persistent identity of a managed document, independent of
// any particular revision. CurrentRevisionLabel always names the most
// recently committed revision once the first revision exists.
type Document struct {
	ObjectID             string    `json:"object_id"`
	FileName             string    `json:"file_name"`
	Owner                string    `json:"owner"`
	Group                string    `json:"group,omitempty"`
	Role                 string    `json:"role,omitempty"`
	Project              string    `json:"project,omitempty"`
	Status               Status    `json:"status"`
	CurrentRevisionLabel string    `json:"current_revision_label"`
	CreatedAt            time.Time `json:"created_at"`
	CreatedBy            string    `json:"created_by"`
	UpdatedAt            time.Time `json:"updated_at"`
	UpdatedBy            string    `json:"updated_by"`
}

// Revision is an immutable snapshot of a document's content. Revisions are
// only ever appended; they are never edited or deleted.
type Revision struct {
	ObjectID   string    `json:"object_id"`
	Label      string    `json:"label"`
	ContentKey string    `json:"content_key"`
	FileSize   int64     `json:"file_size"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
}

// Lock is the exclusive edit lock on a document. At most one lock exists per
// document; its presence means the document is checked out by LockedBy.
type Lock struct {
	ObjectID             string    `json:"object_id"`
	LockedBy             string    `json:"locked_by"`
	LockedAt             time.Time `json:"locked_at"`
	MachineName          string    `json:"machine_name,omitempty"`
	WorkingRevisionLabel string    `json:"working_revision_label"`
	Comment              string    `json:"comment,omitempty"`
}

// WorkflowHistoryEntry is one row of the append-only status-change log,
// ordered per document by ascending SequenceID.
type WorkflowHistoryEntry struct {
	ObjectID   string    `json:"object_id"`
	SequenceID int       `json:"sequence_id"`
	OldStatus  Status    `json:"old_status"`
	NewStatus  Status    `json:"new_status"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
	Comment    string    `json:"comment,omitempty"`
}

// DocumentSnapshot is the read-only projection of a document joined with its
// current lock state and current-revision file size.
type DocumentSnapshot struct {
	Document
	FileSize      int64      `json:"file_size"`
	IsCheckedOut  bool       `json:"is_checked_out"`
	CheckedOutBy  string     `json:"checked_out_by,omitempty"`
	CheckedOutAt  *time.Time `json:"checked_out_at,omitempty"`
	WorkingLabel  string     `json:"working_revision,omitempty"`
}
