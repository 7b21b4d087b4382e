package tree_test

import (
	"context"
	"sort"
	"testing"

	"github.com/arbordb/arbor-db/pkg/tree"
	"github.com/arbordb/arbor-db/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKeyFor(t *testing.T) {
	assert.Equal(t, "000000", tree.SortKeyFor("", 0))
	assert.Equal(t, "000042", tree.SortKeyFor("", 42))
	assert.Equal(t, "000001.000003", tree.SortKeyFor("000001", 3))
}

func TestSortKeysDerivedOnSave(t *testing.T) {
	tr, store := newTestTree(t, tree.Options{SortKeys: true})
	root, a, b, _ := buildFamily(t, tr)

	assert.Equal(t, "000000", fetch(t, store, root.ID).SortKey)
	assert.Equal(t, "000000.000000", fetch(t, store, a.ID).SortKey)
	assert.Equal(t, "000000.000001", fetch(t, store, b.ID).SortKey)
}

func TestSortKeyChangeCascadesToDescendants(t *testing.T) {
	tr, store := newTestTree(t, tree.Options{SortKeys: true})
	_, a, b, _ := buildFamily(t, tr)
	ctx := context.Background()

	leaf := types.Node{Name: "leaf", ParentID: b.ID}
	mustSave(t, tr, &leaf)
	require.Equal(t, "000000.000001.000000", fetch(t, store, leaf.ID).SortKey)

	// Swapping a and b shifts both keys; leaf must follow b's new key even
	// though only positions moved, not parents.
	require.NoError(t, tr.MoveUp(ctx, &b))

	assert.Equal(t, "000000.000000", fetch(t, store, b.ID).SortKey)
	assert.Equal(t, "000000.000001", fetch(t, store, a.ID).SortKey)
	assert.Equal(t, "000000.000000.000000", fetch(t, store, leaf.ID).SortKey)
}

func TestSortKeysYieldDepthFirstOrder(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{SortKeys: true})
	root, a, b, c := buildFamily(t, tr)
	ctx := context.Background()

	a1 := types.Node{Name: "a1", ParentID: a.ID}
	a2 := types.Node{Name: "a2", ParentID: a.ID}
	b1 := types.Node{Name: "b1", ParentID: b.ID}
	mustSave(t, tr, &a1)
	mustSave(t, tr, &a2)
	mustSave(t, tr, &b1)

	// One flat ascending sort over sort keys is exactly depth-first order.
	descendants, err := tr.Descendants(ctx, &root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a1", "a2", "b", "b1", "c"}, names(descendants))
	assert.True(t, sort.SliceIsSorted(descendants, func(i, j int) bool {
		return descendants[i].SortKey < descendants[j].SortKey
	}))

	_ = c
}

func TestReparentRewritesSortKeysDownTheSubtree(t *testing.T) {
	tr, store := newTestTree(t, tree.Options{SortKeys: true})
	_, a, b, c := buildFamily(t, tr)
	ctx := context.Background()

	leaf := types.Node{Name: "leaf", ParentID: a.ID}
	mustSave(t, tr, &leaf)

	// a moves under c: a closes the gap behind it (b, c shift down), lands
	// at position 0 of c's group, and leaf's key follows.
	a.ParentID = c.ID
	mustSave(t, tr, &a)

	storedC := fetch(t, store, c.ID)
	assert.Equal(t, "000000.000001", storedC.SortKey)
	assert.Equal(t, "000000.000001.000000", fetch(t, store, a.ID).SortKey)
	assert.Equal(t, "000000.000001.000000.000000", fetch(t, store, leaf.ID).SortKey)

	_ = b
	_ = ctx
}
