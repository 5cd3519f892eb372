// Package store provides Repository implementations.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/warp/document-engine/lifecycle"
)

// =============================================================================
// MEMORY REPOSITORY - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps documents as JSON blobs, like a real database would.
// Serializing on every write gives the same snapshot isolation as the
// SQL stores: a caller mutating a returned document cannot corrupt the
// stored history.
type Memory[T any] struct {
	mu   sync.RWMutex
	docs map[lifecycle.DocumentID][]byte
	seq  map[lifecycle.DocumentID]int // insertion order, for List
	next int
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{
		docs: make(map[lifecycle.DocumentID][]byte),
		seq:  make(map[lifecycle.DocumentID]int),
	}
}

func (m *Memory[T]) Insert(_ context.Context, doc *lifecycle.Document[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[doc.ID]; ok {
		return lifecycle.ErrDocumentExists
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[doc.ID] = raw
	m.seq[doc.ID] = m.next
	m.next++
	return nil
}

func (m *Memory[T]) Get(_ context.Context, id lifecycle.DocumentID) (*lifecycle.Document[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory[T]) getLocked(id lifecycle.DocumentID) (*lifecycle.Document[T], error) {
	raw, ok := m.docs[id]
	if !ok {
		return nil, lifecycle.ErrDocumentNotFound
	}
	var doc lifecycle.Document[T]
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *Memory[T]) Save(_ context.Context, doc *lifecycle.Document[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[doc.ID]; !ok {
		return lifecycle.ErrDocumentNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[doc.ID] = raw
	return nil
}

func (m *Memory[T]) List(_ context.Context) ([]*lifecycle.Document[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]lifecycle.DocumentID, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return m.seq[ids[i]] < m.seq[ids[j]] })

	out := make([]*lifecycle.Document[T], 0, len(ids))
	for _, id := range ids {
		doc, err := m.getLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *Memory[T]) Delete(_ context.Context, id lifecycle.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return lifecycle.ErrDocumentNotFound
	}
	delete(m.docs, id)
	delete(m.seq, id)
	return nil
}
