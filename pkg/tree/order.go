package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/types"
)

// The sibling ordering engine keeps positions contiguous from zero within
// each sibling group. Every shift of a third-party sibling is its own
// persisted write; there is no atomic batch, so concurrent moves on the same
// group can corrupt contiguity. Callers serialize.

// assignPosition runs at BeforeSave on ordered trees. New nodes and nodes
// that just changed parent get appended at the bottom of their group; the
// hole left in the former group is closed first.
func (t *Tree) assignPosition(ctx context.Context, sc *SaveContext) error {
	if sc.skipAssign {
		return nil
	}
	if sc.Previous != nil && !sc.parentChanged {
		return nil
	}

	if sc.parentChanged {
		prev := sc.Previous
		if err := t.shiftGroupAfter(ctx, prev.ParentID, prev.Position, -1, prev.ID); err != nil {
			return fmt.Errorf("close gap behind %s: %w", prev.ID, err)
		}
	}

	siblings, err := t.store.Find(ctx, docstore.NewQuery().
		WithParent(sc.Node.ParentID).
		IDNotIn(sc.Node.ID))
	if err != nil {
		return err
	}

	pos := 0
	for i := range siblings {
		if siblings[i].Position >= pos {
			pos = siblings[i].Position + 1
		}
	}
	sc.Node.Position = pos
	return nil
}

// closeGap runs at AfterDestroy: every former sibling past the destroyed
// node moves down one.
func (t *Tree) closeGap(ctx context.Context, sc *SaveContext) error {
	return t.shiftGroupAfter(ctx, sc.Node.ParentID, sc.Node.Position, -1, sc.Node.ID)
}

// shiftGroupAfter shifts every node in the parent's group with a position
// strictly greater than after, excluding exclude, by delta.
func (t *Tree) shiftGroupAfter(ctx context.Context, parent types.ID, after, delta int, exclude types.ID) error {
	group, err := t.store.Find(ctx, docstore.NewQuery().
		WithParent(parent).
		PositionGreaterThan(after).
		IDNotIn(exclude))
	if err != nil {
		return err
	}
	for i := range group {
		if err := t.shiftSibling(ctx, group[i], delta); err != nil {
			return err
		}
	}
	return nil
}

// shiftSiblingRange shifts nodes with lo < position < hi, excluding exclude,
// by delta.
func (t *Tree) shiftSiblingRange(ctx context.Context, parent types.ID, lo, hi, delta int, exclude types.ID) error {
	group, err := t.store.Find(ctx, docstore.NewQuery().
		WithParent(parent).
		PositionGreaterThan(lo).
		PositionLessThan(hi).
		IDNotIn(exclude))
	if err != nil {
		return err
	}
	for i := range group {
		if err := t.shiftSibling(ctx, group[i], delta); err != nil {
			return err
		}
	}
	return nil
}

// shiftSibling persists one position shift. Without sort keys the atomic
// increment keeps the race window of the read-modify-write small; with sort
// keys the shift must re-derive the sibling's key and cascade to its
// descendants, so it goes through the full save path.
func (t *Tree) shiftSibling(ctx context.Context, n types.Node, delta int) error {
	if !t.opts.SortKeys {
		return t.store.IncrementPosition(ctx, n.ID, delta)
	}
	n.Position += delta
	_, err := t.save(ctx, &n, saveOpts{skipAssign: true})
	return err
}

func (t *Tree) refetch(ctx context.Context, id types.ID) (types.Node, error) {
	n, err := t.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return types.Node{}, &StaleReferenceError{ID: id}
		}
		return types.Node{}, err
	}
	return n, nil
}

// MoveAbove places n immediately before ref in ref's sibling group,
// reparenting n first if the two differ. Moving a node relative to itself
// is a no-op.
func (t *Tree) MoveAbove(ctx context.Context, n *types.Node, ref *types.Node) error {
	return t.moveRelative(ctx, n, ref.ID, true)
}

// MoveBelow places n immediately after ref in ref's sibling group.
func (t *Tree) MoveBelow(ctx context.Context, n *types.Node, ref *types.Node) error {
	return t.moveRelative(ctx, n, ref.ID, false)
}

func (t *Tree) moveRelative(ctx context.Context, n *types.Node, refID types.ID, above bool) error {
	if !t.opts.Ordered {
		return fmt.Errorf("tree: move operations require an ordered tree")
	}
	if n.ID == refID {
		return nil
	}

	cur, err := t.refetch(ctx, n.ID)
	if err != nil {
		return err
	}
	other, err := t.refetch(ctx, refID)
	if err != nil {
		return err
	}

	if cur.ParentID != other.ParentID {
		// Detach into the target group first (gap closure and bottom
		// placement happen in the save), then retry as a same-parent move.
		n.ParentID = other.ParentID
		if _, err := t.save(ctx, n, saveOpts{}); err != nil {
			return err
		}
		return t.moveRelative(ctx, n, refID, above)
	}

	aPos, bPos := cur.Position, other.Position
	var newPos int

	switch {
	case above && aPos > bPos:
		// Everyone from ref up to (not including) n moves up one.
		if err := t.shiftSiblingRange(ctx, cur.ParentID, bPos-1, aPos, +1, cur.ID); err != nil {
			return err
		}
		newPos = bPos
	case above:
		if aPos == bPos-1 {
			return nil // already immediately above
		}
		if err := t.shiftSiblingRange(ctx, cur.ParentID, aPos, bPos, -1, cur.ID); err != nil {
			return err
		}
		newPos = bPos - 1
	case aPos < bPos:
		// Everyone after n up to (and including) ref moves down one.
		if err := t.shiftSiblingRange(ctx, cur.ParentID, aPos, bPos+1, -1, cur.ID); err != nil {
			return err
		}
		newPos = bPos
	default:
		if aPos == bPos+1 {
			return nil // already immediately below
		}
		if err := t.shiftSiblingRange(ctx, cur.ParentID, bPos, aPos, +1, cur.ID); err != nil {
			return err
		}
		newPos = bPos + 1
	}

	n.ParentID = cur.ParentID
	n.Position = newPos
	_, err = t.save(ctx, n, saveOpts{skipAssign: true})
	return err
}

// MoveUp swaps n with its immediate neighbor above; no-op at the top.
func (t *Tree) MoveUp(ctx context.Context, n *types.Node) error {
	neighbor, ok, err := t.neighbor(ctx, n, true)
	if err != nil || !ok {
		return err
	}
	return t.moveRelative(ctx, n, neighbor.ID, true)
}

// MoveDown swaps n with its immediate neighbor below; no-op at the bottom.
func (t *Tree) MoveDown(ctx context.Context, n *types.Node) error {
	neighbor, ok, err := t.neighbor(ctx, n, false)
	if err != nil || !ok {
		return err
	}
	return t.moveRelative(ctx, n, neighbor.ID, false)
}

// neighbor returns the sibling adjacent to n, above or below.
func (t *Tree) neighbor(ctx context.Context, n *types.Node, above bool) (types.Node, bool, error) {
	cur, err := t.refetch(ctx, n.ID)
	if err != nil {
		return types.Node{}, false, err
	}

	q := docstore.NewQuery().WithParent(cur.ParentID).IDNotIn(cur.ID)
	if above {
		q = q.PositionLessThan(cur.Position)
	} else {
		q = q.PositionGreaterThan(cur.Position)
	}
	group, err := t.store.Find(ctx, q.SortBy(docstore.SortByPosition))
	if err != nil {
		return types.Node{}, false, err
	}
	if len(group) == 0 {
		return types.Node{}, false, nil
	}
	if above {
		return group[len(group)-1], true, nil
	}
	return group[0], true, nil
}

// MoveToTop moves n above the current first sibling; no-op if already there.
func (t *Tree) MoveToTop(ctx context.Context, n *types.Node) error {
	neighbor, ok, err := t.extreme(ctx, n, true)
	if err != nil || !ok {
		return err
	}
	return t.moveRelative(ctx, n, neighbor.ID, true)
}

// MoveToBottom moves n below the current last sibling; no-op if already
// there.
func (t *Tree) MoveToBottom(ctx context.Context, n *types.Node) error {
	neighbor, ok, err := t.extreme(ctx, n, false)
	if err != nil || !ok {
		return err
	}
	return t.moveRelative(ctx, n, neighbor.ID, false)
}

// extreme returns the first or last node of n's sibling group, or false if
// n already holds that spot.
func (t *Tree) extreme(ctx context.Context, n *types.Node, top bool) (types.Node, bool, error) {
	cur, err := t.refetch(ctx, n.ID)
	if err != nil {
		return types.Node{}, false, err
	}

	group, err := t.store.Find(ctx, docstore.NewQuery().
		WithParent(cur.ParentID).
		SortBy(docstore.SortByPosition))
	if err != nil {
		return types.Node{}, false, err
	}
	if len(group) == 0 {
		return types.Node{}, false, nil
	}

	pick := group[0]
	if !top {
		pick = group[len(group)-1]
	}
	if pick.ID == cur.ID {
		return types.Node{}, false, nil
	}
	return pick, true, nil
}

// AtTop reports whether no sibling sits above n. Defined over actual
// positions rather than position == 0, so it stays truthful during
// transient gaps.
func (t *Tree) AtTop(ctx context.Context, n *types.Node) (bool, error) {
	group, err := t.store.Find(ctx, docstore.NewQuery().
		WithParent(n.ParentID).
		PositionLessThan(n.Position).
		IDNotIn(n.ID))
	if err != nil {
		return false, err
	}
	return len(group) == 0, nil
}

// AtBottom reports whether no sibling sits below n.
func (t *Tree) AtBottom(ctx context.Context, n *types.Node) (bool, error) {
	group, err := t.store.Find(ctx, docstore.NewQuery().
		WithParent(n.ParentID).
		PositionGreaterThan(n.Position).
		IDNotIn(n.ID))
	if err != nil {
		return false, err
	}
	return len(group) == 0, nil
}
