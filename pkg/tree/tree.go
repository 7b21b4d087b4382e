// Package tree is the tree-index maintenance engine. It keeps each node's
// cached ancestor chain and sibling position consistent with the live
// parent/child relationships, using only local, non-transactional writes
// against a docstore.Store. Multi-document operations are sequences of
// independent writes: a crash or store error partway leaves a subtree stale
// until a corrective re-save (see pkg/check). The engine does not serialize
// concurrent writers; that is the caller's job.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/logging"
	"github.com/arbordb/arbor-db/pkg/types"
)

type Options struct {
	// Ordered enables the sibling ordering engine (position maintenance and
	// the move operations).
	Ordered bool
	// SortKeys additionally maintains the depth-first sort key. Implies
	// Ordered.
	SortKeys bool
	// OnDestroy selects the deletion strategy applied to a destroyed node's
	// children.
	OnDestroy Strategy
	Logger    *slog.Logger
}

// Tree binds the engine to one node collection.
type Tree struct {
	store docstore.Store
	opts  Options
	log   *slog.Logger
	hooks map[Stage][]Hook
}

func New(store docstore.Store, opts Options) (*Tree, error) {
	if err := opts.OnDestroy.valid(); err != nil {
		return nil, err
	}
	if opts.SortKeys {
		opts.Ordered = true
	}
	if opts.Logger == nil {
		opts.Logger = logging.Logger
	}

	t := &Tree{
		store: store,
		opts:  opts,
		log:   opts.Logger,
		hooks: make(map[Stage][]Hook),
	}

	t.Hook(BeforeValidation, t.rearrange)
	if t.opts.Ordered {
		t.Hook(BeforeSave, t.assignPosition)
	}
	if t.opts.SortKeys {
		t.Hook(BeforeSave, t.deriveSortKey)
	}
	t.Hook(AfterSave, t.cascade)
	if t.opts.Ordered {
		t.Hook(AfterDestroy, t.closeGap)
	}

	return t, nil
}

// Store exposes the underlying adapter for raw access (backup, checker).
func (t *Tree) Store() docstore.Store {
	return t.store
}

// SaveResult reports what a save decided, making the cascade visible to the
// caller instead of hiding it in object state.
type SaveResult struct {
	// PathChanged is true when the save recomputed a different ancestor
	// chain than the previous one.
	PathChanged bool
	// SortKeyChanged is true when the derived sort key moved.
	SortKeyChanged bool
	// Cascaded counts the descendant re-saves this save triggered,
	// transitively.
	Cascaded int
}

type saveOpts struct {
	skipAssign bool
}

// Save persists one node, running the hook stages in order: before
// validation (ancestor chain recomputation), validation (cycle check),
// before save (position assignment, sort key derivation), the store write,
// after save (cascade to descendants). Exactly once each per call.
func (t *Tree) Save(ctx context.Context, n *types.Node) (SaveResult, error) {
	return t.save(ctx, n, saveOpts{})
}

func (t *Tree) save(ctx context.Context, n *types.Node, o saveOpts) (SaveResult, error) {
	if n.ID.IsZero() {
		n.ID = types.NewID()
	}

	sc := &SaveContext{
		Node:       n,
		skipAssign: o.skipAssign,
	}

	prev, err := t.store.FindByID(ctx, n.ID)
	if err == nil {
		sc.Previous = &prev
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return SaveResult{}, fmt.Errorf("load previous version of %s: %w", n.ID, err)
	}

	if err := t.runStage(ctx, BeforeValidation, sc); err != nil {
		return SaveResult{}, err
	}
	if err := t.validate(sc); err != nil {
		return SaveResult{}, err
	}
	if err := t.runStage(ctx, BeforeSave, sc); err != nil {
		return SaveResult{}, err
	}
	if err := t.store.Put(ctx, *n); err != nil {
		return SaveResult{}, fmt.Errorf("persist node %s: %w", n.ID, err)
	}
	if err := t.runStage(ctx, AfterSave, sc); err != nil {
		return SaveResult{}, err
	}

	return SaveResult{
		PathChanged:    sc.pathChanged,
		SortKeyChanged: sc.sortKeyChanged,
		Cascaded:       sc.cascaded,
	}, nil
}

// validate guards the acyclicity invariant after the chain was recomputed
// and before anything is written.
func (t *Tree) validate(sc *SaveContext) error {
	if sc.Node.HasAncestor(sc.Node.ID) {
		return &CycleError{ID: sc.Node.ID}
	}
	return nil
}

// Destroy removes one node, first applying the configured deletion strategy
// to its children, then deleting the document, then running the after
// destroy stage (which closes the position gap in the former sibling group).
func (t *Tree) Destroy(ctx context.Context, n *types.Node) error {
	current, err := t.store.FindByID(ctx, n.ID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return &StaleReferenceError{ID: n.ID}
		}
		return err
	}

	if err := t.applyStrategy(ctx, &current); err != nil {
		return err
	}

	if err := t.store.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("delete node %s: %w", current.ID, err)
	}

	sc := &SaveContext{Node: &current}
	return t.runStage(ctx, AfterDestroy, sc)
}

func (t *Tree) applyStrategy(ctx context.Context, n *types.Node) error {
	switch t.opts.OnDestroy {
	case NullifyChildren:
		return t.eachChild(ctx, n, func(c *types.Node) error {
			c.ParentID = ""
			_, err := t.Save(ctx, c)
			return err
		})
	case MoveChildrenToParent:
		return t.eachChild(ctx, n, func(c *types.Node) error {
			c.ParentID = n.ParentID
			_, err := t.Save(ctx, c)
			return err
		})
	case DestroyChildren:
		return t.eachChild(ctx, n, func(c *types.Node) error {
			return t.Destroy(ctx, c)
		})
	case DeleteDescendants:
		count, err := t.store.DeleteWhere(ctx, docstore.NewQuery().WithAncestor(n.ID))
		if err != nil {
			return fmt.Errorf("delete descendants of %s: %w", n.ID, err)
		}
		t.log.Debug("bulk-deleted descendants", "node", n.ID, "count", count)
		return nil
	}
	return t.opts.OnDestroy.valid()
}

func (t *Tree) eachChild(ctx context.Context, n *types.Node, fn func(c *types.Node) error) error {
	children, err := t.Children(ctx, n)
	if err != nil {
		return err
	}
	for i := range children {
		if err := fn(&children[i]); err != nil {
			return err
		}
	}
	return nil
}
