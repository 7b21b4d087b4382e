package tree

import (
	"fmt"

	"github.com/arbordb/arbor-db/pkg/types"
)

// CycleError rejects a save whose computed ancestor chain would contain the
// node's own id. It is raised before anything is written.
type CycleError struct {
	ID types.ID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("tree: node %s would become its own ancestor", e.ID)
}

// StaleReferenceError signals an operation referencing a node id that no
// longer exists in the store. It is raised before any mutation is attempted.
type StaleReferenceError struct {
	ID types.ID
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("tree: referenced node %s does not exist", e.ID)
}
