package geneticgraph

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// ItemWriter is the boundary between entity resolution and persistence.
// Specific sinks (e.g. Neo4j, an in-memory store for tests) are expected to
// implement this single operation.
type ItemWriter interface {
	// Store persists the given entity and returns the identifier the sink assigned
	// to it. The entity's references may point at entities that have not been
	// stored yet; sinks must tolerate such forward references, e.g. by recording a
	// placeholder that a later Store of the referenced entity completes.
	//
	// Store must not retain the entity after returning: callers keep mutating
	// entity collections until the final flush.
	Store(ctx context.Context, e Entity) (ItemID, error)
}

// Store submits the entity to the writer unless a prior call already stored
// it, and records the assigned identifier on the entity. Calling Store twice
// with the same entity is a no-op the second time, which keeps the
// store-at-most-once invariant without callers tracking what they have
// already submitted.
func Store(ctx context.Context, w ItemWriter, e Entity) error {
	rec := e.record()
	if !rec.id.IsZero() {
		return nil
	}
	id, err := w.Store(ctx, e)
	if err != nil {
		return fmt.Errorf("store %v: %w", KindOf(e), err)
	}
	if id.IsZero() {
		// A sink returning a zero identifier without an error breaks the contract of
		// ItemWriter; continuing would let the entity be stored again later.
		panic("seek developer attention: geneticgraph: sink returned a zero ItemID")
	}
	rec.id = id
	countStored(ctx, KindOf(e), 1)
	return nil
}

// A MemoryStore is an ItemWriter that keeps stored entities in memory, in the
// order they were stored. It backs tests and dry runs that inspect what a load
// would persist.
//
// A MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int
	entities []Entity
}

// Store implements ItemWriter by appending the entity and assigning it the
// next sequential identifier.
func (s *MemoryStore) Store(_ context.Context, e Entity) (ItemID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entities = append(s.entities, e)
	return ItemID(strconv.Itoa(s.seq)), nil
}

// Stored returns the stored entities in store order. Do not modify the
// returned slice.
func (s *MemoryStore) Stored() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entities
}

// CountKind returns how many stored entities are of the given kind (as named
// by KindOf).
func (s *MemoryStore) CountKind(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, e := range s.entities {
		if KindOf(e) == kind {
			n++
		}
	}
	return n
}
