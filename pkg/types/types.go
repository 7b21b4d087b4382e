package types

import (
	"github.com/google/uuid"
)

// ID identifies a node document. It is opaque to the engine and stable for
// the lifetime of the node.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

// NewID returns a fresh random ID for callers that do not bring their own.
func NewID() ID {
	return ID(uuid.NewString())
}

// Node is a single document in the tree collection. ParentID and the caller
// payload (Name, Attrs) are the authoritative inputs; AncestorIDs, Position
// and SortKey are derived caches the engine recomputes before every persist.
// Callers must never set the derived fields directly.
type Node struct {
	ID       ID `json:"id"`
	ParentID ID `json:"parentId,omitempty"`

	// AncestorIDs is the materialized path: every ancestor id root-first,
	// excluding the node itself. Always equals the parent's AncestorIDs with
	// the parent's id appended; empty for roots.
	AncestorIDs []ID `json:"ancestorIds,omitempty"`

	// Position orders the node within its sibling group. Only meaningful
	// relative to other nodes with the same ParentID.
	Position int `json:"position"`

	// SortKey is only maintained on ordering-enabled trees. A single
	// ascending sort over it yields full depth-first tree order.
	SortKey string `json:"sortKey,omitempty"`

	Name  string            `json:"name,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID.IsZero()
}

// Depth is the number of ancestors, 0 for roots.
func (n *Node) Depth() int {
	return len(n.AncestorIDs)
}

// HasAncestor reports whether id appears in the cached ancestor chain.
func (n *Node) HasAncestor(id ID) bool {
	for _, a := range n.AncestorIDs {
		if a == id {
			return true
		}
	}
	return false
}

// CloneAncestors returns a copy of the ancestor chain so callers can mutate
// their copy without aliasing the stored slice.
func (n *Node) CloneAncestors() []ID {
	if len(n.AncestorIDs) == 0 {
		return nil
	}
	out := make([]ID, len(n.AncestorIDs))
	copy(out, n.AncestorIDs)
	return out
}

// SameAncestors reports whether two ancestor chains are identical in content
// and order.
func SameAncestors(a, b []ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
