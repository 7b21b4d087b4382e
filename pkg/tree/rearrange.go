package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/types"
)

// rearrange recomputes the node's ancestor chain from its current parent
// reference. Runs at BeforeValidation so user validations already see the
// corrected path. Marks the save for cascade when the chain moved.
func (t *Tree) rearrange(ctx context.Context, sc *SaveContext) error {
	n := sc.Node

	if n.ParentID == n.ID {
		// Self-parenting would make the fetch below return the node's own
		// stale version; reject it as the cycle it is.
		return &CycleError{ID: n.ID}
	}

	oldChain := n.AncestorIDs
	if sc.Previous != nil {
		oldChain = sc.Previous.AncestorIDs
		sc.parentChanged = sc.Previous.ParentID != n.ParentID
	}

	var newChain []types.ID
	if !n.ParentID.IsZero() {
		parent, err := t.store.FindByID(ctx, n.ParentID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return &StaleReferenceError{ID: n.ParentID}
			}
			return fmt.Errorf("fetch parent %s: %w", n.ParentID, err)
		}
		sc.parent = &parent

		// A parent whose own chain was never computed counts as a root.
		newChain = append(parent.CloneAncestors(), parent.ID)
	}

	if !types.SameAncestors(oldChain, newChain) {
		sc.pathChanged = true
	}
	n.AncestorIDs = newChain

	return nil
}
