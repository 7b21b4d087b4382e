package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/arbordb/arbor-db/pkg/types"
)

// MemoryStore keeps the collection in a map. It exists for hermetic engine
// tests and small tools; it implements the same Store contract as
// BadgerStore, including the non-atomicity of multi-document operations.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[types.ID]types.Node
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[types.ID]types.Node),
	}
}

func (s *MemoryStore) FindByID(ctx context.Context, id types.ID) (types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return types.Node{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]types.Node, error) {
	s.mu.RLock()
	var nodes []types.Node
	for _, n := range s.nodes {
		n := n
		if q.Matches(&n) {
			nodes = append(nodes, n)
		}
	}
	s.mu.RUnlock()

	q.Sort(nodes)
	return nodes, nil
}

func (s *MemoryStore) Put(ctx context.Context, n types.Node) error {
	if n.ID.IsZero() {
		return fmt.Errorf("error writing node: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	return nil
}

func (s *MemoryStore) DeleteWhere(ctx context.Context, q Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.nodes {
		n := n
		if q.Matches(&n) {
			delete(s.nodes, id)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) IncrementPosition(ctx context.Context, id types.ID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n.Position += delta
	s.nodes[id] = n
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
