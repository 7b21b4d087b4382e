package tree

import (
	"context"
	"fmt"
)

// cascade re-saves every direct child after a save that changed the node's
// ancestor chain or sort key. Each child's re-save recomputes its own chain
// against the now-updated parent and may mark its own children in turn, so
// the propagation is transitive. It terminates because the tree is acyclic
// and finite and the decision is consumed here before children are iterated.
//
// A store error partway aborts immediately: already re-saved children keep
// the new chain, the rest stay stale. There is no retry and no rollback; a
// corrective re-save of the subtree is the recovery path.
func (t *Tree) cascade(ctx context.Context, sc *SaveContext) error {
	if !sc.pathChanged && !sc.sortKeyChanged {
		return nil
	}

	children, err := t.Children(ctx, sc.Node)
	if err != nil {
		return fmt.Errorf("cascade of %s: %w", sc.Node.ID, err)
	}

	for i := range children {
		res, err := t.save(ctx, &children[i], saveOpts{})
		if err != nil {
			return fmt.Errorf("cascade of %s at child %s: %w", sc.Node.ID, children[i].ID, err)
		}
		sc.cascaded += 1 + res.Cascaded
	}

	if sc.cascaded > 0 {
		t.log.Debug("cascade completed", "node", sc.Node.ID, "descendants", sc.cascaded)
	}
	return nil
}
