package tree

import (
	"context"
	"fmt"
)

// Sort key segments are the zero-padded positions of every ancestor plus the
// node's own, dot-joined. Padding keeps lexicographic order equal to numeric
// order, so one ascending sort over the collection yields depth-first tree
// order. Positions beyond the pad width would break that ordering; six
// digits cover a million direct children.
const sortKeyDigits = 6

// SortKeyFor builds the key a node at the given position under a parent
// with parentKey must carry. Exposed for consistency checking.
func SortKeyFor(parentKey string, position int) string {
	seg := fmt.Sprintf("%0*d", sortKeyDigits, position)
	if parentKey == "" {
		return seg
	}
	return parentKey + "." + seg
}

// deriveSortKey recomputes the node's sort key after position assignment.
// A moved key forces a cascade so descendant keys stay correct.
func (t *Tree) deriveSortKey(ctx context.Context, sc *SaveContext) error {
	parentKey := ""
	if sc.parent != nil {
		// On a reparent the gap closure may have just shifted the new
		// parent itself (it can be a former sibling), so the copy fetched
		// during rearrange can carry a stale key. Refetch.
		if sc.parentChanged {
			parent, err := t.store.FindByID(ctx, sc.parent.ID)
			if err != nil {
				return fmt.Errorf("refetch parent %s for sort key: %w", sc.parent.ID, err)
			}
			sc.parent = &parent
		}
		parentKey = sc.parent.SortKey
	}

	oldKey := sc.Node.SortKey
	if sc.Previous != nil {
		oldKey = sc.Previous.SortKey
	}

	sc.Node.SortKey = SortKeyFor(parentKey, sc.Node.Position)
	if sc.Node.SortKey != oldKey {
		sc.sortKeyChanged = true
	}
	return nil
}
