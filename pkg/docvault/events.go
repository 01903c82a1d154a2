package docvault

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink.
// Useful when no event handling is needed or for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) DocumentCreated(ctx context.Context, doc *Document) error { return nil }

func (n *NoopEventSink) DocumentCheckedOut(ctx context.Context, lock *Lock) error { return nil }

func (n *NoopEventSink) DocumentCheckedIn(ctx context.Context, doc *Document, rev *Revision) error {
	return nil
}

func (n *NoopEventSink) CheckOutCancelled(ctx context.Context, objectID, userID string) error {
	return nil
}

func (n *NoopEventSink) StatusChanged(ctx context.Context, entry *WorkflowHistoryEntry) error {
	return nil
}

// LoggingEventSink logs domain events through slog but takes no other action.
// Useful for development and auditing.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger falls
// back to slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) DocumentCreated(ctx context.Context, doc *Document) error {
	l.logger.Info("document created",
		"object_id", doc.ObjectID,
		"file_name", doc.FileName,
		"owner", doc.Owner,
		"status", doc.Status)
	return nil
}

func (l *LoggingEventSink) DocumentCheckedOut(ctx context.Context, lock *Lock) error {
	l.logger.Info("document checked out",
		"object_id", lock.ObjectID,
		"locked_by", lock.LockedBy,
		"working_revision", lock.WorkingRevisionLabel)
	return nil
}

func (l *LoggingEventSink) DocumentCheckedIn(ctx context.Context, doc *Document, rev *Revision) error {
	l.logger.Info("document checked in",
		"object_id", doc.ObjectID,
		"revision", rev.Label,
		"file_size", rev.FileSize,
		"by", rev.CreatedBy)
	return nil
}

func (l *LoggingEventSink) CheckOutCancelled(ctx context.Context, objectID, userID string) error {
	l.logger.Info("checkout cancelled", "object_id", objectID, "user", userID)
	return nil
}

func (l *LoggingEventSink) StatusChanged(ctx context.Context, entry *WorkflowHistoryEntry) error {
	l.logger.Info("status changed",
		"object_id", entry.ObjectID,
		"old_status", entry.OldStatus,
		"new_status", entry.NewStatus,
		"by", entry.ChangedBy)
	return nil
}
