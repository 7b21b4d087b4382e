package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	arbor "github.com/arbordb/arbor-db"
	"github.com/arbordb/arbor-db/internal/config"
	"github.com/arbordb/arbor-db/pkg/check"
	"github.com/arbordb/arbor-db/pkg/logging"
	"github.com/arbordb/arbor-db/pkg/tree"
	"github.com/arbordb/arbor-db/pkg/types"
)

func strategyFromName(name string) tree.Strategy {
	switch name {
	case "MoveChildrenToParent":
		return tree.MoveChildrenToParent
	case "DestroyChildren":
		return tree.DestroyChildren
	case "DeleteDescendants":
		return tree.DeleteDescendants
	default:
		return tree.NullifyChildren
	}
}

func main() {
	fmt.Println("Starting ArborDB demo")

	conf, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %s", err)
	}

	dataDir, _ := filepath.Abs(conf.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %s", err)
	}

	db, err := arbor.NewArborDB(arbor.Config{
		Paths:                     []string{dataDir},
		MinimumFreeGB:             conf.MinimumFreeGB,
		GarbageCollectionInterval: 10 * time.Minute,
		Ordered:                   conf.Ordered,
		SortKeys:                  conf.SortKeys,
		OnDestroy:                 strategyFromName(conf.OnDestroy),
		Logger:                    logging.New(slog.LevelDebug),
	})
	if err != nil {
		log.Fatalf("Failed to initialize ArborDB: %s", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Build a small forest: one root with three children.
	root := types.Node{Name: "projects"}
	if _, err := db.Tree.Save(ctx, &root); err != nil {
		log.Fatalf("Error saving root: %s", err)
	}

	names := []string{"alpha", "beta", "gamma"}
	children := make([]types.Node, len(names))
	for i, name := range names {
		children[i] = types.Node{Name: name, ParentID: root.ID}
		if _, err := db.Tree.Save(ctx, &children[i]); err != nil {
			log.Fatalf("Error saving child %s: %s", name, err)
		}
	}
	fmt.Printf("Created root %s with %d children\n", root.Name, len(children))

	// Move gamma to the top of the sibling group.
	if err := db.Tree.MoveToTop(ctx, &children[2]); err != nil {
		log.Fatalf("Error moving %s to top: %s", children[2].Name, err)
	}

	// Reparent beta under gamma; beta's chain cascades automatically.
	children[1].ParentID = children[2].ID
	res, err := db.Tree.Save(ctx, &children[1])
	if err != nil {
		log.Fatalf("Error reparenting %s: %s", children[1].Name, err)
	}
	fmt.Printf("Reparented %s (path changed: %v, cascaded: %d)\n",
		children[1].Name, res.PathChanged, res.Cascaded)

	order, err := db.Tree.Children(ctx, &root)
	if err != nil {
		log.Fatalf("Error listing children: %s", err)
	}
	fmt.Println("Children of root in order:")
	for _, c := range order {
		fmt.Printf("  %d: %s\n", c.Position, c.Name)
	}

	checker := check.NewChecker(db.Tree, nil, conf.SortKeys, nil)
	violations, err := checker.Verify(ctx)
	if err != nil {
		log.Fatalf("Error verifying tree: %s", err)
	}
	fmt.Printf("Verification finished: %d violations\n", len(violations))
	for _, v := range violations {
		fmt.Println("  " + v.String())
	}
}
