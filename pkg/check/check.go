// Package check verifies the global tree invariants over a live collection
// and offers the corrective re-save the engine itself deliberately does not
// perform after a partial cascade.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/logging"
	"github.com/arbordb/arbor-db/pkg/tree"
	"github.com/arbordb/arbor-db/pkg/types"
	workerpool "github.com/arbordb/arbor-db/pkg/workerPool"
)

type Kind int

const (
	Cycle Kind = iota
	OrphanedParent
	StaleChain
	PositionGap
	DuplicatePosition
	WrongSortKey
)

func (k Kind) String() string {
	switch k {
	case Cycle:
		return "Cycle"
	case OrphanedParent:
		return "OrphanedParent"
	case StaleChain:
		return "StaleChain"
	case PositionGap:
		return "PositionGap"
	case DuplicatePosition:
		return "DuplicatePosition"
	case WrongSortKey:
		return "WrongSortKey"
	}
	return "Unknown"
}

// Violation is one broken invariant found during Verify.
type Violation struct {
	Kind   Kind
	NodeID types.ID
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s on %s: %s", v.Kind, v.NodeID, v.Detail)
}

type Checker struct {
	tree *tree.Tree
	wp   *workerpool.WorkerPool
	log  *slog.Logger

	// checkSortKeys enables sort key verification; only meaningful on
	// trees configured with sort keys.
	checkSortKeys bool
}

func NewChecker(t *tree.Tree, wp *workerpool.WorkerPool, checkSortKeys bool, logger *slog.Logger) *Checker {
	if wp == nil {
		wp = workerpool.NewWorkerPool(workerpool.Config{})
	}
	if logger == nil {
		logger = logging.Logger
	}
	return &Checker{
		tree:          t,
		wp:            wp,
		log:           logger,
		checkSortKeys: checkSortKeys,
	}
}

// Verify scans the whole collection once and reports every invariant
// violation. It is read-only, so the per-sibling-group checks fan out over
// the worker pool.
func (c *Checker) Verify(ctx context.Context) ([]Violation, error) {
	all, err := c.tree.Store().Find(ctx, docstore.NewQuery())
	if err != nil {
		return nil, fmt.Errorf("scan collection: %w", err)
	}

	byID := make(map[types.ID]types.Node, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}

	var violations []Violation
	groups := make(map[types.ID][]types.Node)

	for _, n := range all {
		groups[n.ParentID] = append(groups[n.ParentID], n)
		violations = append(violations, c.checkChain(n, byID)...)
	}

	room := c.wp.CreateRoom(len(groups) + 1)
	room.AsyncCollector()
	for parent, group := range groups {
		parent, group := parent, group
		room.NewTaskWaitForFreeSlot(func() interface{} {
			return checkGroup(parent, group)
		})
	}

	results, err := room.GetAsyncResults()
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		violations = append(violations, r.([]Violation)...)
	}

	c.log.Info("verify completed", "nodes", len(all), "violations", len(violations))
	return violations, nil
}

func (c *Checker) checkChain(n types.Node, byID map[types.ID]types.Node) []Violation {
	var out []Violation

	if n.HasAncestor(n.ID) {
		out = append(out, Violation{Cycle, n.ID, "own id in ancestor chain"})
	}

	var wantChain []types.ID
	var parentKey string
	if !n.ParentID.IsZero() {
		parent, ok := byID[n.ParentID]
		if !ok {
			out = append(out, Violation{OrphanedParent, n.ID,
				fmt.Sprintf("parent %s missing", n.ParentID)})
			return out
		}
		wantChain = append(parent.CloneAncestors(), parent.ID)
		parentKey = parent.SortKey
	}

	if !types.SameAncestors(n.AncestorIDs, wantChain) {
		out = append(out, Violation{StaleChain, n.ID,
			fmt.Sprintf("chain %v, parent implies %v", n.AncestorIDs, wantChain)})
	}

	if c.checkSortKeys {
		if want := tree.SortKeyFor(parentKey, n.Position); n.SortKey != want {
			out = append(out, Violation{WrongSortKey, n.ID,
				fmt.Sprintf("sort key %q, want %q", n.SortKey, want)})
		}
	}

	return out
}

// checkGroup verifies that one sibling group's positions form a contiguous
// range from zero with no duplicates.
func checkGroup(parent types.ID, group []types.Node) []Violation {
	sorted := make([]types.Node, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	var out []Violation
	for i, n := range sorted {
		if i > 0 && n.Position == sorted[i-1].Position {
			out = append(out, Violation{DuplicatePosition, n.ID,
				fmt.Sprintf("position %d repeats in group of %s", n.Position, parent)})
			continue
		}
		if n.Position != i {
			out = append(out, Violation{PositionGap, n.ID,
				fmt.Sprintf("position %d, want %d in group of %s", n.Position, i, parent)})
		}
	}
	return out
}

// Repair walks the subtree under id (or every root when id is empty)
// top-down, compacting each sibling group's positions and re-saving every
// node through the engine so stale chains and sort keys get recomputed.
// Returns the number of nodes touched.
func (c *Checker) Repair(ctx context.Context, id types.ID) (int, error) {
	var starts []types.Node
	if id.IsZero() {
		roots, err := c.tree.Roots(ctx)
		if err != nil {
			return 0, err
		}
		starts = roots
	} else {
		n, err := c.tree.Store().FindByID(ctx, id)
		if err != nil {
			return 0, err
		}
		starts = []types.Node{n}
	}

	touched := 0
	for i := range starts {
		count, err := c.repairNode(ctx, &starts[i])
		touched += count
		if err != nil {
			return touched, err
		}
	}

	c.log.Info("repair completed", "start", id, "touched", touched)
	return touched, nil
}

func (c *Checker) repairNode(ctx context.Context, n *types.Node) (int, error) {
	if _, err := c.tree.Save(ctx, n); err != nil {
		return 0, fmt.Errorf("repair %s: %w", n.ID, err)
	}
	touched := 1

	children, err := c.tree.Children(ctx, n)
	if err != nil {
		return touched, err
	}

	for i := range children {
		if children[i].Position != i {
			children[i].Position = i
			if err := c.tree.Store().Put(ctx, children[i]); err != nil {
				return touched, fmt.Errorf("compact position of %s: %w", children[i].ID, err)
			}
		}
		count, err := c.repairNode(ctx, &children[i])
		touched += count
		if err != nil {
			return touched, err
		}
	}
	return touched, nil
}
