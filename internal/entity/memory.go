package entity

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"marina/pkg/platform/sentinel"
)

// Memory is a goroutine-safe in-process Store used in development and tests.
// Ids are allocated from one counter across kinds, like Datastore's
// allocator, and iteration is in ascending id order.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	kinds  map[Kind]map[int64]Props
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{kinds: make(map[Kind]map[int64]Props)}
}

func (m *Memory) Create(_ context.Context, kind Kind, props Props) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.bucket(kind)[id] = props.Clone()
	return id, nil
}

func (m *Memory) Get(_ context.Context, kind Kind, id int64) (Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	props, ok := m.kinds[kind][id]
	if !ok {
		return Entity{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	return Entity{Kind: kind, ID: id, Props: props.Clone()}, nil
}

// Update replaces the record unconditionally. Updating an id that does not
// exist is an error, matching Datastore's update semantics.
func (m *Memory) Update(_ context.Context, kind Kind, id int64, props Props) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucket(kind)
	if _, ok := b[id]; !ok {
		return fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	b[id] = props.Clone()
	return nil
}

// Delete is idempotent.
func (m *Memory) Delete(_ context.Context, kind Kind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kinds[kind], id)
	return nil
}

func (m *Memory) Query(_ context.Context, q Query) (Page, error) {
	after, err := decodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.sortedIDs(q.Kind, q.Filter)

	page := Page{Entities: []Entity{}}
	for _, id := range ids {
		if id <= after {
			continue
		}
		if q.Limit > 0 && len(page.Entities) == q.Limit {
			page.Next = encodeCursor(page.Entities[len(page.Entities)-1].ID)
			break
		}
		page.Entities = append(page.Entities, Entity{Kind: q.Kind, ID: id, Props: m.kinds[q.Kind][id].Clone()})
	}
	return page, nil
}

func (m *Memory) Count(_ context.Context, kind Kind, filter *Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sortedIDs(kind, filter)), nil
}

func (m *Memory) bucket(kind Kind) map[int64]Props {
	b, ok := m.kinds[kind]
	if !ok {
		b = make(map[int64]Props)
		m.kinds[kind] = b
	}
	return b
}

func (m *Memory) sortedIDs(kind Kind, filter *Filter) []int64 {
	ids := make([]int64, 0, len(m.kinds[kind]))
	for id, props := range m.kinds[kind] {
		if matches(props, filter) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
