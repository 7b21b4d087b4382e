package tree

import "fmt"

// Strategy decides what happens to a node's children when the node itself is
// destroyed. Exactly one strategy is wired per tree at construction.
type Strategy int

const (
	// NullifyChildren clears the parent reference on every direct child,
	// turning them into roots. Full per-child save lifecycle.
	NullifyChildren Strategy = iota
	// MoveChildrenToParent re-points every direct child to the destroyed
	// node's own parent. Full per-child save lifecycle.
	MoveChildrenToParent
	// DestroyChildren recursively destroys every direct child and,
	// transitively, their children. Full per-child destroy lifecycle.
	DestroyChildren
	// DeleteDescendants bulk-deletes every node whose ancestor chain
	// contains the destroyed node's id in a single store-level delete.
	// No hooks run, fastest, least safe.
	DeleteDescendants
)

func (s Strategy) String() string {
	switch s {
	case NullifyChildren:
		return "NullifyChildren"
	case MoveChildrenToParent:
		return "MoveChildrenToParent"
	case DestroyChildren:
		return "DestroyChildren"
	case DeleteDescendants:
		return "DeleteDescendants"
	}
	return "Unknown"
}

func (s Strategy) valid() error {
	if s < NullifyChildren || s > DeleteDescendants {
		return fmt.Errorf("tree: unknown deletion strategy %d", s)
	}
	return nil
}
