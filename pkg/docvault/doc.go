// Package docvault provides a reusable library for controlled, versioned
// document management with pluggable repository and blob storage backends.
//
// It exposes a single Service interface that orchestrates document creation,
// exclusive check-out/check-in locking, immutable revision history, content
// download, search, and workflow status transitions. Implementations of
// repositories (memory, Postgres) and blob stores (memory, filesystem, S3)
// are provided under subpackages.
//
// # Concurrency
//
// Every mutation of a document's lock, current revision label, or workflow
// status runs inside Repository.UpdateDocument, which serializes writers per
// document. Two concurrent check-outs of the same document therefore resolve
// to exactly one winner; operations on different documents never contend.
// Check-out does not wait for a held lock to free: it fails immediately with
// ErrAlreadyCheckedOut.
package docvault
