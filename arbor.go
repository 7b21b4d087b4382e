// Package arbor maintains materialized-path trees over flat documents in a
// badger-backed collection store. The facade here wires the store adapter to
// the tree engine; the engine itself lives in pkg/tree.
package arbor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/arbordb/arbor-db/pkg/docstore"
	"github.com/arbordb/arbor-db/pkg/tree"
)

type ArborDB struct {
	store  *docstore.BadgerStore
	Tree   *tree.Tree
	config Config
	log    *slog.Logger

	stopGC chan struct{}
}

func NewArborDB(conf Config) (*ArborDB, error) {
	if conf.Logger == nil {
		conf.Logger = defaultLogger()
	}

	store, err := docstore.NewBadgerStore(docstore.StoreConfig{
		Paths:            conf.Paths,
		MinimumFreeSpace: conf.MinimumFreeGB,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating BadgerStore: %w", err)
	}

	tr, err := tree.New(store, tree.Options{
		Ordered:   conf.Ordered,
		SortKeys:  conf.SortKeys,
		OnDestroy: conf.OnDestroy,
		Logger:    conf.Logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	db := &ArborDB{
		store:  store,
		Tree:   tr,
		config: conf,
		log:    conf.Logger,
		stopGC: make(chan struct{}),
	}

	if conf.GarbageCollectionInterval > 0 {
		go db.runGarbageCollection()
	}

	return db, nil
}

// Store exposes the raw adapter, mainly for backup and checking tools.
func (db *ArborDB) Store() docstore.Store {
	return db.store
}

func (db *ArborDB) Close() error {
	close(db.stopGC)
	return db.store.Close()
}

func (db *ArborDB) runGarbageCollection() {
	ticker := time.NewTicker(db.config.GarbageCollectionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := db.store.Clean(); err != nil {
				db.log.Error("garbage collection failed", "error", err)
			}
		case <-db.stopGC:
			return
		}
	}
}
