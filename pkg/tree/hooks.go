package tree

import (
	"context"

	"github.com/arbordb/arbor-db/pkg/types"
)

// Stage names a lifecycle point around a store operation. Hooks are held as
// explicit ordered lists per stage; Save dispatches BeforeValidation,
// BeforeSave and AfterSave in that order exactly once per call, Destroy
// dispatches AfterDestroy after the document is gone.
type Stage int

const (
	BeforeValidation Stage = iota
	BeforeSave
	AfterSave
	AfterDestroy
)

// SaveContext carries one save (or destroy) through its hook stages. The
// cascade decision lives here as explicit state instead of a hidden
// object-local flag, so it stays visible and testable.
type SaveContext struct {
	// Node is the document being persisted. Hooks may mutate it; the engine
	// itself rewrites the derived fields here.
	Node *types.Node

	// Previous is the persisted version before this save, nil for new nodes.
	Previous *types.Node

	// parent is the freshly fetched parent document, nil for roots. Set by
	// the rearrange step, consumed by sort key derivation.
	parent *types.Node

	pathChanged    bool
	sortKeyChanged bool
	parentChanged  bool

	// skipAssign marks saves issued by move operations, which place the
	// position themselves and must not trigger default assignment.
	skipAssign bool

	cascaded int
}

// Hook is a callback registered against a named stage.
type Hook func(ctx context.Context, sc *SaveContext) error

// Hook appends a callback to the given stage, after the engine's own
// callbacks already registered there.
func (t *Tree) Hook(stage Stage, fn Hook) {
	t.hooks[stage] = append(t.hooks[stage], fn)
}

func (t *Tree) runStage(ctx context.Context, stage Stage, sc *SaveContext) error {
	for _, fn := range t.hooks[stage] {
		if err := fn(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}
