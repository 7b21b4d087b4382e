package check_test

import (
	"context"
	"testing"

	"github.com/arbordb/arbor-db/pkg/check"
	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/tree"
	"github.com/arbordb/arbor-db/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T, sortKeys bool) (*tree.Tree, *docstore.MemoryStore, []types.Node) {
	t.Helper()
	store := docstore.NewMemoryStore()
	tr, err := tree.New(store, tree.Options{Ordered: true, SortKeys: sortKeys})
	require.NoError(t, err)

	ctx := context.Background()
	root := types.Node{Name: "root"}
	_, err = tr.Save(ctx, &root)
	require.NoError(t, err)

	nodes := []types.Node{root}
	for _, name := range []string{"a", "b", "c"} {
		n := types.Node{Name: name, ParentID: root.ID}
		_, err = tr.Save(ctx, &n)
		require.NoError(t, err)
		nodes = append(nodes, n)
	}
	leaf := types.Node{Name: "leaf", ParentID: nodes[1].ID}
	_, err = tr.Save(ctx, &leaf)
	require.NoError(t, err)
	nodes = append(nodes, leaf)

	return tr, store, nodes
}

func kinds(violations []check.Violation) []check.Kind {
	out := make([]check.Kind, len(violations))
	for i, v := range violations {
		out[i] = v.Kind
	}
	return out
}

func TestVerifyCleanTree(t *testing.T) {
	tr, _, _ := buildTree(t, true)

	checker := check.NewChecker(tr, nil, true, nil)
	violations, err := checker.Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestVerifyFindsSeededCorruption(t *testing.T) {
	tr, store, nodes := buildTree(t, false)
	ctx := context.Background()

	// Corrupt behind the engine's back: a stale chain, a position gap and
	// an orphaned parent reference.
	a := nodes[1]
	a.AncestorIDs = []types.ID{"nonsense"}
	require.NoError(t, store.Put(ctx, a))

	c := nodes[3]
	c.Position = 9
	require.NoError(t, store.Put(ctx, c))

	ghost := types.Node{ID: types.NewID(), Name: "ghost", ParentID: "gone"}
	require.NoError(t, store.Put(ctx, ghost))

	checker := check.NewChecker(tr, nil, false, nil)
	violations, err := checker.Verify(ctx)
	require.NoError(t, err)

	found := kinds(violations)
	assert.Contains(t, found, check.StaleChain)
	assert.Contains(t, found, check.PositionGap)
	assert.Contains(t, found, check.OrphanedParent)
}

func TestVerifyFindsDuplicatePositions(t *testing.T) {
	tr, store, nodes := buildTree(t, false)
	ctx := context.Background()

	b := nodes[2]
	b.Position = 0 // collides with a
	require.NoError(t, store.Put(ctx, b))

	checker := check.NewChecker(tr, nil, false, nil)
	violations, err := checker.Verify(ctx)
	require.NoError(t, err)
	assert.Contains(t, kinds(violations), check.DuplicatePosition)
}

func TestRepairClearsStaleChainsAndGaps(t *testing.T) {
	tr, store, nodes := buildTree(t, true)
	ctx := context.Background()

	// Simulate a crashed cascade: b was reparented but its child kept the
	// old chain; c's position drifted.
	b, leaf := nodes[2], nodes[4]
	leaf.ParentID = b.ID
	leaf.AncestorIDs = []types.ID{"stale"}
	require.NoError(t, store.Put(ctx, leaf))

	c := nodes[3]
	c.Position = 7
	require.NoError(t, store.Put(ctx, c))

	checker := check.NewChecker(tr, nil, true, nil)
	violations, err := checker.Verify(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, violations)

	touched, err := checker.Repair(ctx, "")
	require.NoError(t, err)
	assert.Greater(t, touched, 0)

	violations, err = checker.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}
