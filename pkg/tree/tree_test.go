package tree_test

import (
	"context"
	"testing"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/tree"
	"github.com/arbordb/arbor-db/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, opts tree.Options) (*tree.Tree, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	tr, err := tree.New(store, opts)
	require.NoError(t, err)
	return tr, store
}

func mustSave(t *testing.T, tr *tree.Tree, n *types.Node) tree.SaveResult {
	t.Helper()
	res, err := tr.Save(context.Background(), n)
	require.NoError(t, err)
	return res
}

func fetch(t *testing.T, store docstore.Store, id types.ID) types.Node {
	t.Helper()
	n, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return n
}

// buildFamily creates a root with children a, b, c, saved in that order
// (positions 0, 1, 2 on ordered trees).
func buildFamily(t *testing.T, tr *tree.Tree) (root, a, b, c types.Node) {
	t.Helper()
	root = types.Node{Name: "root"}
	mustSave(t, tr, &root)

	a = types.Node{Name: "a", ParentID: root.ID}
	b = types.Node{Name: "b", ParentID: root.ID}
	c = types.Node{Name: "c", ParentID: root.ID}
	mustSave(t, tr, &a)
	mustSave(t, tr, &b)
	mustSave(t, tr, &c)
	return root, a, b, c
}

func TestSaveComputesAncestorChain(t *testing.T) {
	tr, store := newTestTree(t, tree.Options{})
	ctx := context.Background()

	root := types.Node{Name: "root"}
	mustSave(t, tr, &root)
	assert.Empty(t, root.AncestorIDs)
	assert.True(t, root.IsRoot())

	child := types.Node{Name: "child", ParentID: root.ID}
	mustSave(t, tr, &child)
	assert.Equal(t, []types.ID{root.ID}, child.AncestorIDs)

	grandchild := types.Node{Name: "grandchild", ParentID: child.ID}
	mustSave(t, tr, &grandchild)
	assert.Equal(t, []types.ID{root.ID, child.ID}, grandchild.AncestorIDs)

	// Invariant: chain equals parent's chain plus parent id, for every node.
	all, err := store.Find(ctx, docstore.NewQuery())
	require.NoError(t, err)
	for _, n := range all {
		if n.IsRoot() {
			assert.Empty(t, n.AncestorIDs)
			continue
		}
		parent := fetch(t, store, n.ParentID)
		want := append(parent.CloneAncestors(), parent.ID)
		assert.Equal(t, want, n.AncestorIDs, "chain of %s", n.Name)
	}
}

func TestSelfParentRejected(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{})

	n := types.Node{ID: types.NewID(), Name: "loner"}
	mustSave(t, tr, &n)

	n.ParentID = n.ID
	_, err := tr.Save(context.Background(), &n)
	var cerr *tree.CycleError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, n.ID, cerr.ID)

	// Rejected before persistence: the stored version is unchanged.
	stored := fetch(t, tr.Store(), n.ID)
	assert.True(t, stored.IsRoot())
}

func TestReparentUnderDescendantRejected(t *testing.T) {
	tr, store := newTestTree(t, tree.Options{})

	root, a, _, _ := buildFamily(t, tr)
	leaf := types.Node{Name: "leaf", ParentID: a.ID}
	mustSave(t, tr, &leaf)

	// root → a → leaf; moving root under leaf closes a cycle.
	root.ParentID = leaf.ID
	_, err := tr.Save(context.Background(), &root)
	var cerr *tree.CycleError
	require.ErrorAs(t, err, &cerr)

	stored := fetch(t, store, root.ID)
	assert.True(t, stored.IsRoot())
	assert.False(t, stored.HasAncestor(root.ID))
}

func TestSaveWithMissingParent(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{})

	n := types.Node{Name: "orphan", ParentID: types.NewID()}
	_, err := tr.Save(context.Background(), &n)
	var serr *tree.StaleReferenceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, n.ParentID, serr.ID)
}

func TestReparentCascadesToDescendants(t *testing.T) {
	tr, store := newTestTree(t, tree.Options{})

	root, _, b, c := buildFamily(t, tr)
	grandchild := types.Node{Name: "gc", ParentID: b.ID}
	mustSave(t, tr, &grandchild)

	// Reparent b under c: b's chain must become c's chain plus c, and b's
	// child must pick up c transitively.
	b.ParentID = c.ID
	res := mustSave(t, tr, &b)
	assert.True(t, res.PathChanged)
	assert.Equal(t, 1, res.Cascaded)

	storedB := fetch(t, store, b.ID)
	storedC := fetch(t, store, c.ID)
	assert.Equal(t, append(storedC.CloneAncestors(), storedC.ID), storedB.AncestorIDs)

	storedGC := fetch(t, store, grandchild.ID)
	assert.Equal(t, []types.ID{root.ID, c.ID, b.ID}, storedGC.AncestorIDs)
}

func TestResaveWithoutChangesDoesNotCascade(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{})

	_, a, _, _ := buildFamily(t, tr)
	child := types.Node{Name: "child", ParentID: a.ID}
	mustSave(t, tr, &child)

	a.Name = "renamed"
	res := mustSave(t, tr, &a)
	assert.False(t, res.PathChanged)
	assert.Zero(t, res.Cascaded)
}

func TestHookStagesRunInOrderOncePerSave(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{})

	var stages []tree.Stage
	record := func(stage tree.Stage) tree.Hook {
		return func(ctx context.Context, sc *tree.SaveContext) error {
			stages = append(stages, stage)
			return nil
		}
	}
	tr.Hook(tree.BeforeValidation, record(tree.BeforeValidation))
	tr.Hook(tree.BeforeSave, record(tree.BeforeSave))
	tr.Hook(tree.AfterSave, record(tree.AfterSave))
	tr.Hook(tree.AfterDestroy, record(tree.AfterDestroy))

	n := types.Node{Name: "hooked"}
	mustSave(t, tr, &n)
	require.Equal(t, []tree.Stage{tree.BeforeValidation, tree.BeforeSave, tree.AfterSave}, stages)

	stages = nil
	require.NoError(t, tr.Destroy(context.Background(), &n))
	require.Equal(t, []tree.Stage{tree.AfterDestroy}, stages)
}

func TestUserValidationSeesCorrectedPath(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{})
	root := types.Node{Name: "root"}
	mustSave(t, tr, &root)

	// The rearrange step runs first in BeforeValidation, so a hook
	// registered afterwards already sees the recomputed chain.
	var seen []types.ID
	tr.Hook(tree.BeforeValidation, func(ctx context.Context, sc *tree.SaveContext) error {
		seen = sc.Node.CloneAncestors()
		return nil
	})

	child := types.Node{Name: "child", ParentID: root.ID}
	mustSave(t, tr, &child)
	assert.Equal(t, []types.ID{root.ID}, seen)
}

func TestDestroyMissingNode(t *testing.T) {
	tr, _ := newTestTree(t, tree.Options{})

	ghost := types.Node{ID: types.NewID()}
	err := tr.Destroy(context.Background(), &ghost)
	var serr *tree.StaleReferenceError
	require.ErrorAs(t, err, &serr)
}

// failingStore passes writes through until the fuse burns, then fails every
// Put. Used to observe mid-cascade abort semantics.
type failingStore struct {
	docstore.Store
	remainingPuts int
}

func (s *failingStore) Put(ctx context.Context, n types.Node) error {
	if s.remainingPuts <= 0 {
		return assert.AnError
	}
	s.remainingPuts--
	return s.Store.Put(ctx, n)
}

func TestPartialCascadeAbortsAndPropagates(t *testing.T) {
	mem := docstore.NewMemoryStore()
	fs := &failingStore{Store: mem, remainingPuts: 1 << 30}
	tr, err := tree.New(fs, tree.Options{})
	require.NoError(t, err)

	root, _, b, c := buildFamily(t, tr)
	gb := types.Node{Name: "gb", ParentID: b.ID}
	mustSave(t, tr, &gb)

	// Reparenting b writes b itself, then cascades to gb. Let b's write
	// succeed and fail the cascade write.
	fs.remainingPuts = 1
	b.ParentID = c.ID
	_, err = tr.Save(context.Background(), &b)
	require.ErrorIs(t, err, assert.AnError)

	// b carries the new chain, gb is left stale: the documented partial
	// state with no rollback.
	storedB := fetch(t, mem, b.ID)
	assert.Equal(t, []types.ID{root.ID, c.ID}, storedB.AncestorIDs)
	storedGB := fetch(t, mem, gb.ID)
	assert.Equal(t, []types.ID{root.ID, b.ID}, storedGB.AncestorIDs)
}
