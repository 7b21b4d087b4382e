// Package docstore is the document store adapter for the tree collection.
// It exposes raw single-document CRUD, filter queries and an atomic position
// increment. Lifecycle hooks are not dispatched here; that is the tree
// engine's job.
package docstore

import (
	"context"
	"errors"

	"github.com/arbordb/arbor-db/pkg/types"
)

// ErrNotFound is returned when a looked-up node id has no document.
var ErrNotFound = errors.New("docstore: node not found")

// Store is the contract the tree engine requires of the underlying
// collection store. Every method is a single bounded round trip; nothing
// here spans documents atomically except IncrementPosition, which adjusts
// one numeric field in one transaction.
type Store interface {
	// FindByID returns the document with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id types.ID) (types.Node, error)

	// Find returns all documents matching q, sorted per q's sort clauses.
	Find(ctx context.Context, q Query) ([]types.Node, error)

	// Put writes one document, creating or overwriting it. No hooks run.
	Put(ctx context.Context, n types.Node) error

	// Delete removes one document. Deleting a missing id is not an error.
	Delete(ctx context.Context, id types.ID) error

	// DeleteWhere bulk-deletes every matching document and returns the
	// count. No per-document hooks run.
	DeleteWhere(ctx context.Context, q Query) (int, error)

	// IncrementPosition atomically adjusts the position field of one
	// document by delta. Returns ErrNotFound if the id has no document.
	IncrementPosition(ctx context.Context, id types.ID, delta int) error

	Close() error
}
