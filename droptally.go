package geneticgraph

import (
	"maps"
	"sync"
)

// A DropTally counts relationship records that were silently dropped because
// one of their endpoints was never registered. Dropping such records is the
// intended behaviour for partial source data, but runs that drop everything
// usually indicate a misconfigured source, so the tally keeps the drops
// observable.
//
// The zero-value DropTally is ready for use.
//
// A DropTally is safe for concurrent use.
type DropTally struct {
	m  map[string]int
	mu sync.Mutex
}

// Count records a single dropped record under the given reason.
func (t *DropTally) Count(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Make the zero-value meaningful.
	if t.m == nil {
		t.m = make(map[string]int)
	}
	t.m[reason]++
}

// Total returns the number of records dropped so far across all reasons.
func (t *DropTally) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	for _, c := range t.m {
		n += c
	}
	return n
}

// Counts returns a copy of the per-reason drop counts accumulated so far.
func (t *DropTally) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m == nil {
		return map[string]int{}
	}
	return maps.Clone(t.m)
}
