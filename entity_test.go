package geneticgraph

import (
	"context"
	"testing"
)

func TestStoredIDAccessibleThroughEntity(t *testing.T) {
	sink := new(MemoryStore)

	// Sinks discover references as plain Entity values and must be able to ask
	// each one whether it was stored, without knowing its concrete type.
	var e Entity = &GeneticMarker{Name: "Sat_123"}
	if !e.StoredID().IsZero() {
		t.Errorf("unstored entity has id %v, want zero", e.StoredID())
	}
	if err := Store(context.Background(), sink, e); err != nil {
		t.Fatal("Store failed:", err)
	}
	if e.StoredID().IsZero() {
		t.Error("stored entity reports a zero id")
	}
}

func TestRefSetOverMixedEntityKinds(t *testing.T) {
	// Publications reference their citing entities through a set over the Entity
	// interface itself, mixing kinds in one set.
	var s RefSet[Entity]
	gm := &GeneticMap{Name: "GmComposite2003"}
	q := &QTL{Name: "Seed weight 1-1"}

	if !s.Add(gm) || !s.Add(q) {
		t.Fatal("adding new members reported no growth")
	}
	if s.Add(gm) {
		t.Error("re-adding a member reported growth")
	}
	if s.Len() != 2 {
		t.Errorf("set has %v members, want 2", s.Len())
	}
	if !s.Contains(q) || !s.Contains(gm) {
		t.Error("set does not contain its members")
	}
}
