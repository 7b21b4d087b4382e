// Package backup snapshots the whole node collection to an lzma-compressed
// JSON stream and restores it with raw writes, bypassing the engine's
// lifecycle so a restore never re-triggers cascades.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/types"
	"github.com/ulikunitz/xz/lzma"
)

// Snapshot writes every document in the store to w, one JSON object per
// line inside an lzma stream.
func Snapshot(ctx context.Context, store docstore.Store, w io.Writer) error {
	nodes, err := store.Find(ctx, docstore.NewQuery().SortBy(docstore.SortByID))
	if err != nil {
		return fmt.Errorf("scan collection for snapshot: %w", err)
	}

	lw, err := lzma.NewWriter(w)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(lw)
	for i := range nodes {
		if err := enc.Encode(&nodes[i]); err != nil {
			return fmt.Errorf("encode node %s: %w", nodes[i].ID, err)
		}
	}

	return lw.Close()
}

// Restore reads a snapshot back into the store with raw Puts. Existing
// documents with the same ids are overwritten; the target store is not
// cleared first.
func Restore(ctx context.Context, store docstore.Store, r io.Reader) (int, error) {
	lr, err := lzma.NewReader(r)
	if err != nil {
		return 0, err
	}

	dec := json.NewDecoder(lr)
	count := 0
	for dec.More() {
		var n types.Node
		if err := dec.Decode(&n); err != nil {
			return count, fmt.Errorf("decode snapshot document %d: %w", count, err)
		}
		if err := store.Put(ctx, n); err != nil {
			return count, fmt.Errorf("restore node %s: %w", n.ID, err)
		}
		count++
	}
	return count, nil
}
