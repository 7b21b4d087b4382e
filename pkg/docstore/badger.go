package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/arbordb/arbor-db/pkg/types"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

const nodeKeyPrefix = "node:"

type StoreConfig struct {
	Paths            []string // absolute path, at the moment only first path is supported
	MinimumFreeSpace int      // in GB
	Logger           *logrus.Logger
}

// BadgerStore persists the node collection in badger, one JSON document per
// key. It implements Store.
type BadgerStore struct {
	config       StoreConfig
	badgerDB     *badger.DB
	readCounter  uint64
	writeCounter uint64
}

func NewBadgerStore(config StoreConfig) (*BadgerStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	log = config.Logger

	err := config.checkConfig()
	if err != nil {
		return nil, fmt.Errorf("error checking config for BadgerStore: %w", err)
	}

	opts := badger.DefaultOptions(config.Paths[0])
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100 // Set max size of each value log file to 100MB
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger at %s: %w", config.Paths[0], err)
	}

	if err := displayDiskUsage(config.Paths); err != nil {
		db.Close()
		return nil, err
	}

	return &BadgerStore{
		config:   config,
		badgerDB: db,
	}, nil
}

func nodeKey(id types.ID) []byte {
	return []byte(nodeKeyPrefix + string(id))
}

func decodeNode(value []byte) (types.Node, error) {
	var n types.Node
	if err := json.Unmarshal(value, &n); err != nil {
		return types.Node{}, fmt.Errorf("error decoding node document: %w", err)
	}
	return n, nil
}

func (s *BadgerStore) FindByID(ctx context.Context, id types.ID) (types.Node, error) {
	atomic.AddUint64(&s.readCounter, 1)

	var node types.Node
	err := s.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return err
		}
		return item.Value(func(value []byte) error {
			node, err = decodeNode(value)
			return err
		})
	})
	if err != nil {
		return types.Node{}, err
	}
	return node, nil
}

func (s *BadgerStore) Find(ctx context.Context, q Query) ([]types.Node, error) {
	atomic.AddUint64(&s.readCounter, 1)

	var nodes []types.Node
	err := s.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(nodeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				n, err := decodeNode(value)
				if err != nil {
					return err
				}
				if q.Matches(&n) {
					nodes = append(nodes, n)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	q.Sort(nodes)
	return nodes, nil
}

func (s *BadgerStore) Put(ctx context.Context, n types.Node) error {
	if n.ID.IsZero() {
		return fmt.Errorf("error writing node: empty id")
	}
	atomic.AddUint64(&s.writeCounter, 1)

	value, err := json.Marshal(&n)
	if err != nil {
		return fmt.Errorf("error encoding node %s: %w", n.ID, err)
	}

	return s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(n.ID), value)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, id types.ID) error {
	atomic.AddUint64(&s.writeCounter, 1)

	return s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Delete(nodeKey(id))
	})
}

func (s *BadgerStore) DeleteWhere(ctx context.Context, q Query) (int, error) {
	matches, err := s.Find(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}

	wb := s.badgerDB.NewWriteBatch()
	defer wb.Cancel()

	for _, n := range matches {
		atomic.AddUint64(&s.writeCounter, 1)
		if err := wb.Delete(nodeKey(n.ID)); err != nil {
			return 0, fmt.Errorf("error deleting node %s: %w", n.ID, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(matches), nil
}

// IncrementPosition runs the read-modify-write inside one badger
// transaction, so a single position shift is atomic even though multi-node
// shifts remain a sequence of independent writes.
func (s *BadgerStore) IncrementPosition(ctx context.Context, id types.ID, delta int) error {
	atomic.AddUint64(&s.writeCounter, 1)

	return s.badgerDB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return err
		}

		var node types.Node
		err = item.Value(func(value []byte) error {
			node, err = decodeNode(value)
			return err
		})
		if err != nil {
			return err
		}

		node.Position += delta
		value, err := json.Marshal(&node)
		if err != nil {
			return fmt.Errorf("error encoding node %s: %w", id, err)
		}
		return txn.Set(nodeKey(id), value)
	})
}

func (s *BadgerStore) Close() error {
	if err := s.Clean(); err != nil {
		log.Errorf("Error cleaning db on close: %v", err)
	}
	return s.badgerDB.Close()
}

func (s *BadgerStore) Clean() error {
	err := s.badgerDB.Sync()
	if err != nil {
		return fmt.Errorf("error syncing db: %w", err)
	}

	// flatten the db
	err = s.badgerDB.Flatten(runtime.NumCPU()) // The parameter is the number of concurrent compactions
	if err != nil {
		return fmt.Errorf("error flattening db: %w", err)
	} else {
		log.Info("DB Flattened")
	}

	// clean badgerDB
	err = s.badgerDB.RunValueLogGC(0.1)
	if err != nil {
		if err != badger.ErrNoRewrite {
			return fmt.Errorf("error cleaning db: %w", err)
		}
	}

	return nil
}
