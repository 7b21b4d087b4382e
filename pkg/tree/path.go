package tree

import (
	"context"
	"fmt"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/types"
)

// Path resolver: every query here derives from the cached ancestor chain and
// costs one filtered collection scan, except Leaves which is documented as
// two.

// Ancestors returns the node's ancestors root-first, resolved to full
// documents. Chain entries missing from the store are skipped.
func (t *Tree) Ancestors(ctx context.Context, n *types.Node) ([]types.Node, error) {
	if len(n.AncestorIDs) == 0 {
		return nil, nil
	}

	found, err := t.store.Find(ctx, docstore.NewQuery().IDIn(n.AncestorIDs...))
	if err != nil {
		return nil, fmt.Errorf("ancestors of %s: %w", n.ID, err)
	}

	byID := make(map[types.ID]types.Node, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	out := make([]types.Node, 0, len(n.AncestorIDs))
	for _, id := range n.AncestorIDs {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// AncestorsAndSelf appends the node itself to its ancestor list.
func (t *Tree) AncestorsAndSelf(ctx context.Context, n *types.Node) ([]types.Node, error) {
	out, err := t.Ancestors(ctx, n)
	if err != nil {
		return nil, err
	}
	return append(out, *n), nil
}

// Descendants returns every node whose cached chain contains n's id. With
// sort keys enabled the result comes back in depth-first order.
func (t *Tree) Descendants(ctx context.Context, n *types.Node) ([]types.Node, error) {
	q := docstore.NewQuery().WithAncestor(n.ID)
	if t.opts.SortKeys {
		q = q.SortBy(docstore.SortBySortKey)
	}
	nodes, err := t.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("descendants of %s: %w", n.ID, err)
	}
	return nodes, nil
}

func (t *Tree) DescendantsAndSelf(ctx context.Context, n *types.Node) ([]types.Node, error) {
	out, err := t.Descendants(ctx, n)
	if err != nil {
		return nil, err
	}
	return append([]types.Node{*n}, out...), nil
}

// Children returns the direct children ordered by position.
func (t *Tree) Children(ctx context.Context, n *types.Node) ([]types.Node, error) {
	return t.store.Find(ctx, docstore.NewQuery().
		WithParent(n.ID).
		SortBy(docstore.SortByPosition))
}

// Siblings returns the nodes sharing n's parent, excluding n, by position.
func (t *Tree) Siblings(ctx context.Context, n *types.Node) ([]types.Node, error) {
	return t.store.Find(ctx, docstore.NewQuery().
		WithParent(n.ParentID).
		IDNotIn(n.ID).
		SortBy(docstore.SortByPosition))
}

func (t *Tree) SiblingsAndSelf(ctx context.Context, n *types.Node) ([]types.Node, error) {
	return t.store.Find(ctx, docstore.NewQuery().
		WithParent(n.ParentID).
		SortBy(docstore.SortByPosition))
}

// Root resolves the root of n's tree. A root, or a node whose chain was
// never computed, resolves to itself without a store lookup.
func (t *Tree) Root(ctx context.Context, n *types.Node) (types.Node, error) {
	if n.IsRoot() || len(n.AncestorIDs) == 0 {
		return *n, nil
	}
	root, err := t.store.FindByID(ctx, n.AncestorIDs[0])
	if err != nil {
		return types.Node{}, fmt.Errorf("root of %s: %w", n.ID, err)
	}
	return root, nil
}

// Roots returns every node without a parent.
func (t *Tree) Roots(ctx context.Context) ([]types.Node, error) {
	return t.store.Find(ctx, docstore.NewQuery().WithParent(""))
}

// IsLeaf reports whether no node references n as its parent.
func (t *Tree) IsLeaf(ctx context.Context, n *types.Node) (bool, error) {
	children, err := t.store.Find(ctx, docstore.NewQuery().WithParent(n.ID))
	if err != nil {
		return false, err
	}
	return len(children) == 0, nil
}

// Leaves returns every node never referenced as a parent. Two sequential
// queries (distinct parent ids, then the negated-membership scan), so a
// concurrent insert between them can slip through.
func (t *Tree) Leaves(ctx context.Context) ([]types.Node, error) {
	return t.leaves(ctx, nil)
}

// LeavesOf restricts Leaves to the descendants of n.
func (t *Tree) LeavesOf(ctx context.Context, n *types.Node) ([]types.Node, error) {
	return t.leaves(ctx, &n.ID)
}

func (t *Tree) leaves(ctx context.Context, under *types.ID) ([]types.Node, error) {
	all, err := t.store.Find(ctx, docstore.NewQuery())
	if err != nil {
		return nil, err
	}

	seen := make(map[types.ID]struct{})
	var parents []types.ID
	for _, n := range all {
		if n.ParentID.IsZero() {
			continue
		}
		if _, ok := seen[n.ParentID]; ok {
			continue
		}
		seen[n.ParentID] = struct{}{}
		parents = append(parents, n.ParentID)
	}

	q := docstore.NewQuery().IDNotIn(parents...)
	if under != nil {
		q = q.WithAncestor(*under)
	}
	return t.store.Find(ctx, q)
}
