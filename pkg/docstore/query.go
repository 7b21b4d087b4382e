package docstore

import (
	"sort"

	"github.com/arbordb/arbor-db/pkg/types"
)

// SortField names a field results can be sorted ascending by.
type SortField int

const (
	SortByPosition SortField = iota
	SortBySortKey
	SortByID
)

// Query is a conjunction of filter clauses over node documents. The zero
// value matches everything. Clauses are combined with logical AND; both
// store implementations evaluate it per document with Matches.
type Query struct {
	parentEq    *types.ID
	parentIn    []types.ID
	parentNotIn []types.ID
	idIn        []types.ID
	idNotIn     []types.ID
	ancestor    *types.ID
	positionGT  *int
	positionLT  *int
	sortBy      []SortField
}

func NewQuery() Query {
	return Query{}
}

// WithParent matches nodes whose parent id equals id. Passing the empty id
// matches roots.
func (q Query) WithParent(id types.ID) Query {
	q.parentEq = &id
	return q
}

func (q Query) ParentIn(ids ...types.ID) Query {
	q.parentIn = append(q.parentIn, ids...)
	return q
}

func (q Query) ParentNotIn(ids ...types.ID) Query {
	q.parentNotIn = append(q.parentNotIn, ids...)
	return q
}

func (q Query) IDIn(ids ...types.ID) Query {
	q.idIn = append(q.idIn, ids...)
	return q
}

func (q Query) IDNotIn(ids ...types.ID) Query {
	q.idNotIn = append(q.idNotIn, ids...)
	return q
}

// WithAncestor matches nodes whose cached ancestor chain contains id, i.e.
// the descendants of id.
func (q Query) WithAncestor(id types.ID) Query {
	q.ancestor = &id
	return q
}

func (q Query) PositionGreaterThan(p int) Query {
	q.positionGT = &p
	return q
}

func (q Query) PositionLessThan(p int) Query {
	q.positionLT = &p
	return q
}

// SortBy appends ascending sort fields, applied in order.
func (q Query) SortBy(fields ...SortField) Query {
	q.sortBy = append(q.sortBy, fields...)
	return q
}

func containsID(ids []types.ID, id types.ID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

// Matches evaluates the conjunction against one document.
func (q Query) Matches(n *types.Node) bool {
	if q.parentEq != nil && n.ParentID != *q.parentEq {
		return false
	}
	if len(q.parentIn) > 0 && !containsID(q.parentIn, n.ParentID) {
		return false
	}
	if len(q.parentNotIn) > 0 && containsID(q.parentNotIn, n.ParentID) {
		return false
	}
	if len(q.idIn) > 0 && !containsID(q.idIn, n.ID) {
		return false
	}
	if len(q.idNotIn) > 0 && containsID(q.idNotIn, n.ID) {
		return false
	}
	if q.ancestor != nil && !n.HasAncestor(*q.ancestor) {
		return false
	}
	if q.positionGT != nil && n.Position <= *q.positionGT {
		return false
	}
	if q.positionLT != nil && n.Position >= *q.positionLT {
		return false
	}
	return true
}

// Sort orders nodes in place per the query's sort clauses.
func (q Query) Sort(nodes []types.Node) {
	if len(q.sortBy) == 0 {
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		for _, f := range q.sortBy {
			switch f {
			case SortByPosition:
				if nodes[i].Position != nodes[j].Position {
					return nodes[i].Position < nodes[j].Position
				}
			case SortBySortKey:
				if nodes[i].SortKey != nodes[j].SortKey {
					return nodes[i].SortKey < nodes[j].SortKey
				}
			case SortByID:
				if nodes[i].ID != nodes[j].ID {
					return nodes[i].ID < nodes[j].ID
				}
			}
		}
		return false
	})
}
