package entitystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/race-features/internal/frame"
)

// MemoryStore serves tables held in memory
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*frame.Table
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*frame.Table)}
}

// Put registers a table under name, replacing any previous one. The table
// keeps its raw primary key column name.
func (s *MemoryStore) Put(name string, t *frame.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = t
}

// Fetch implements Store
func (s *MemoryStore) Fetch(ctx context.Context, table string, columns []string) (*frame.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateIdentifiers(table, columns); err != nil {
		return nil, err
	}

	s.mu.RLock()
	t, ok := s.tables[table]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	selected, err := t.Select(columns...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return renamePrimaryKey(table, selected)
}
