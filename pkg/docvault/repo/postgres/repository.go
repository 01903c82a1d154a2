package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freeplm/docvault/pkg/docvault"
)

// Repository implements docvault.Repository using PostgreSQL. The per-document
// write boundary of UpdateDocument is a transaction holding a row lock
// (SELECT ... FOR UPDATE) on the documents row, so two concurrent updates of
// the same document serialize inside the database while updates of different
// documents proceed in parallel.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(pool *pgxpool.Pool) docvault.Repository {
	return &Repository{pool: pool}
}

const documentColumns = `object_id, file_name, owner_name, group_name, role_name, project,
	status, current_revision_label, created_at, created_by, updated_at, updated_by`

func scanDocument(row pgx.Row) (*docvault.Document, error) {
	var doc docvault.Document
	err := row.Scan(
		&doc.ObjectID, &doc.FileName, &doc.Owner, &doc.Group, &doc.Role, &doc.Project,
		&doc.Status, &doc.CurrentRevisionLabel, &doc.CreatedAt, &doc.CreatedBy,
		&doc.UpdatedAt, &doc.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docvault.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *Repository) CreateDocument(ctx context.Context, doc *docvault.Document) error {
	query := `
		INSERT INTO documents (
			object_id, file_name, owner_name, group_name, role_name, project,
			status, current_revision_label, created_at, created_by, updated_at, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		doc.ObjectID, doc.FileName, doc.Owner, doc.Group, doc.Role, doc.Project,
		doc.Status, doc.CurrentRevisionLabel, doc.CreatedAt, doc.CreatedBy,
		doc.UpdatedAt, doc.UpdatedBy)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, objectID string) (*docvault.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE object_id = $1`
	return scanDocument(r.pool.QueryRow(ctx, query, objectID))
}

func (r *Repository) DeleteDocument(ctx context.Context, objectID string) error {
	dbtx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer dbtx.Rollback(ctx)

	for _, query := range []string{
		`DELETE FROM workflow_history WHERE object_id = $1`,
		`DELETE FROM revisions WHERE object_id = $1`,
		`DELETE FROM locks WHERE object_id = $1`,
	} {
		if _, err := dbtx.Exec(ctx, query, objectID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
	}

	tag, err := dbtx.Exec(ctx, `DELETE FROM documents WHERE object_id = $1`, objectID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docvault.ErrDocumentNotFound
	}
	return dbtx.Commit(ctx)
}

func (r *Repository) GetLock(ctx context.Context, objectID string) (*docvault.Lock, error) {
	if _, err := r.GetDocument(ctx, objectID); err != nil {
		return nil, err
	}
	return r.getLock(ctx, r.pool, objectID)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) getLock(ctx context.Context, q queryRower, objectID string) (*docvault.Lock, error) {
	query := `
		SELECT object_id, locked_by, locked_at, machine_name, working_revision_label, comment
		FROM locks WHERE object_id = $1`

	var lock docvault.Lock
	err := q.QueryRow(ctx, query, objectID).Scan(
		&lock.ObjectID, &lock.LockedBy, &lock.LockedAt,
		&lock.MachineName, &lock.WorkingRevisionLabel, &lock.Comment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

func (r *Repository) GetRevision(ctx context.Context, objectID, label string) (*docvault.Revision, error) {
	query := `
		SELECT object_id, label, content_key, file_size, comment, created_at, created_by
		FROM revisions WHERE object_id = $1 AND label = $2`

	var rev docvault.Revision
	err := r.pool.QueryRow(ctx, query, objectID, label).Scan(
		&rev.ObjectID, &rev.Label, &rev.ContentKey, &rev.FileSize,
		&rev.Comment, &rev.CreatedAt, &rev.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, derr := r.GetDocument(ctx, objectID); derr != nil {
				return nil, derr
			}
			return nil, docvault.ErrRevisionNotFound
		}
		return nil, err
	}
	return &rev, nil
}

func (r *Repository) ListRevisions(ctx context.Context, objectID string) ([]*docvault.Revision, error) {
	if _, err := r.GetDocument(ctx, objectID); err != nil {
		return nil, err
	}

	query := `
		SELECT object_id, label, content_key, file_size, comment, created_at, created_by
		FROM revisions WHERE object_id = $1 ORDER BY created_at ASC, label ASC`

	rows, err := r.pool.Query(ctx, query, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []*docvault.Revision
	for rows.Next() {
		var rev docvault.Revision
		if err := rows.Scan(
			&rev.ObjectID, &rev.Label, &rev.ContentKey, &rev.FileSize,
			&rev.Comment, &rev.CreatedAt, &rev.CreatedBy); err != nil {
			return nil, err
		}
		revisions = append(revisions, &rev)
	}
	return revisions, rows.Err()
}

func (r *Repository) ListHistory(ctx context.Context, objectID string) ([]*docvault.WorkflowHistoryEntry, error) {
	if _, err := r.GetDocument(ctx, objectID); err != nil {
		return nil, err
	}

	query := `
		SELECT object_id, sequence_id, old_status, new_status, changed_by, changed_at, comment
		FROM workflow_history WHERE object_id = $1 ORDER BY sequence_id ASC`

	rows, err := r.pool.Query(ctx, query, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*docvault.WorkflowHistoryEntry{}
	for rows.Next() {
		var entry docvault.WorkflowHistoryEntry
		if err := rows.Scan(
			&entry.ObjectID, &entry.SequenceID, &entry.OldStatus, &entry.NewStatus,
			&entry.ChangedBy, &entry.ChangedAt, &entry.Comment); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *Repository) SearchDocuments(ctx context.Context, filter docvault.SearchFilter) ([]*docvault.Document, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.ObjectID != "" {
		add("LOWER(object_id) = LOWER($%d)", filter.ObjectID)
	}
	if filter.Status != "" {
		add("LOWER(status) = LOWER($%d)", filter.Status)
	}
	if filter.FileName != "" {
		add("file_name ILIKE '%%' || $%d || '%%'", filter.FileName)
	}
	if filter.Project != "" {
		add("project ILIKE '%%' || $%d || '%%'", filter.Project)
	}
	if filter.Owner != "" {
		add("owner_name ILIKE '%%' || $%d || '%%'", filter.Owner)
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY object_id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*docvault.Document
	for rows.Next() {
		var doc docvault.Document
		if err := rows.Scan(
			&doc.ObjectID, &doc.FileName, &doc.Owner, &doc.Group, &doc.Role, &doc.Project,
			&doc.Status, &doc.CurrentRevisionLabel, &doc.CreatedAt, &doc.CreatedBy,
			&doc.UpdatedAt, &doc.UpdatedBy); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (r *Repository) UpdateDocument(ctx context.Context, objectID string, fn func(tx *docvault.DocumentTx) error) error {
	dbtx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer dbtx.Rollback(ctx)

	// Row lock serializes concurrent updates of the same document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE object_id = $1 FOR UPDATE`
	doc, err := scanDocument(dbtx.QueryRow(ctx, query, objectID))
	if err != nil {
		return err
	}

	lock, err := r.getLock(ctx, dbtx, objectID)
	if err != nil {
		return err
	}

	tx := &docvault.DocumentTx{Document: doc, Lock: lock}
	if err := fn(tx); err != nil {
		return err
	}

	tx.Apply(doc)
	_, err = dbtx.Exec(ctx, `
		UPDATE documents SET status = $2, current_revision_label = $3, updated_at = $4, updated_by = $5
		WHERE object_id = $1`,
		doc.ObjectID, doc.Status, doc.CurrentRevisionLabel, doc.UpdatedAt, doc.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	setLock, clearLock, revisions, history := tx.Mutations()
	if clearLock {
		if _, err := dbtx.Exec(ctx, `DELETE FROM locks WHERE object_id = $1`, objectID); err != nil {
			return fmt.Errorf("clear lock: %w", err)
		}
	}
	if setLock != nil {
		_, err := dbtx.Exec(ctx, `
			INSERT INTO locks (object_id, locked_by, locked_at, machine_name, working_revision_label, comment)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			setLock.ObjectID, setLock.LockedBy, setLock.LockedAt,
			setLock.MachineName, setLock.WorkingRevisionLabel, setLock.Comment)
		if err != nil {
			return fmt.Errorf("set lock: %w", err)
		}
	}
	for _, rev := range revisions {
		_, err := dbtx.Exec(ctx, `
			INSERT INTO revisions (object_id, label, content_key, file_size, comment, created_at, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rev.ObjectID, rev.Label, rev.ContentKey, rev.FileSize,
			rev.Comment, rev.CreatedAt, rev.CreatedBy)
		if err != nil {
			return fmt.Errorf("add revision: %w", err)
		}
	}
	for _, entry := range history {
		_, err := dbtx.Exec(ctx, `
			INSERT INTO workflow_history (object_id, sequence_id, old_status, new_status, changed_by, changed_at, comment)
			SELECT $1, COALESCE(MAX(sequence_id), 0) + 1, $2, $3, $4, $5, $6
			FROM workflow_history WHERE object_id = $1`,
			entry.ObjectID, entry.OldStatus, entry.NewStatus,
			entry.ChangedBy, entry.ChangedAt, entry.Comment)
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}

	return dbtx.Commit(ctx)
}
