package arbor

import (
	"log/slog"
	"os"
	"time"

	"github.com/arbordb/arbor-db/pkg/tree"
)

// Config configures the database instance. Only Paths[0] is used at the
// moment; future versions may use multiple paths for sharding or tiering.
type Config struct {
	// Paths contains data directories. Currently only Paths[0] is used.
	Paths []string
	// MinimumFreeGB is a free-space threshold checked before opening.
	MinimumFreeGB int
	// GarbageCollectionInterval spaces the badger value-log GC runs. Zero
	// disables the GC loop.
	GarbageCollectionInterval time.Duration
	// Ordered enables sibling position maintenance and move operations.
	Ordered bool
	// SortKeys additionally maintains depth-first sort keys. Implies
	// Ordered.
	SortKeys bool
	// OnDestroy selects what happens to a destroyed node's children.
	OnDestroy tree.Strategy
	// Logger is an optional structured logger. If nil, a stderr logger is
	// used.
	Logger *slog.Logger
}

func defaultLogger() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h)
}
