package geneticgraph

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryResolvesToCanonicalInstance(t *testing.T) {
	r := NewRegistry()

	first := r.GeneticMarker("Sat_123")
	first.Name = "Sat_123"
	second := r.GeneticMarker("Sat_123")

	if first != second {
		t.Error("GeneticMarker returned two instances for the same key")
	}
	if second.Name != "Sat_123" {
		t.Errorf("attributes set through the first handle are missing: Name = %q", second.Name)
	}

	// Same name under a different key stays a different entity.
	other := r.GeneticMarker("Sat_123@other-map")
	if other == first {
		t.Error("distinct keys resolved to the same instance")
	}
}

func TestRegistryOrganismKeyedByTaxonAndVariety(t *testing.T) {
	r := NewRegistry()

	plain := r.Organism(OrganismKey{TaxonID: "3847"})
	williams := r.Organism(OrganismKey{TaxonID: "3847", Variety: "Williams82"})
	if plain == williams {
		t.Error("variety did not participate in the organism identity")
	}
	if again := r.Organism(OrganismKey{TaxonID: "3847", Variety: "Williams82"}); again != williams {
		t.Error("same taxon and variety resolved to a new instance")
	}
	if williams.TaxonID != "3847" || williams.Variety != "Williams82" {
		t.Errorf("new organism not populated from its key: %+v", williams)
	}
}

func TestRegistryFindDoesNotCreate(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.FindQTL("Qpl.zaas-3"); ok {
		t.Error("FindQTL reported an entity that was never registered")
	}
	r.QTL("Qpl.zaas-3")
	if _, ok := r.FindQTL("Qpl.zaas-3"); !ok {
		t.Error("FindQTL missed a registered entity")
	}
}

func TestFlushStoresEveryEntityExactlyOnce(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	sink := new(MemoryStore)

	r.Organism(OrganismKey{TaxonID: "3847"})
	gm := r.GeneticMap("GmComposite2003")
	gm.Name = "GmComposite2003"
	r.LinkageGroup("GmComposite2003_A1")
	r.GeneticMarker("Sat_123")
	r.GeneticMarker("Sat_123") // resolved again, must not double-store

	stored, err := r.Flush(ctx, sink)
	if err != nil {
		t.Fatal("Flush failed:", err)
	}

	want := map[string]int{
		"Organism":      1,
		"Publication":   0,
		"OntologyTerm":  0,
		"GeneticMap":    1,
		"LinkageGroup":  1,
		"GeneticMarker": 1,
		"QTL":           0,
		"Chromosome":    0,
		"Gene":          0,
	}
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Error("Stored counts differ:", diff)
	}
	if got := len(sink.Stored()); got != 4 {
		t.Errorf("sink received %v entities, want 4", got)
	}
	for _, e := range sink.Stored() {
		if e.record().StoredID().IsZero() {
			t.Errorf("flushed %v without recording its ItemID", KindOf(e))
		}
	}
}

func TestFlushSkipsEagerlyStoredEntities(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	sink := new(MemoryStore)

	m := r.GeneticMarker("Sat_123")
	// Simulate the build phase storing an entity eagerly before the flush.
	if err := Store(ctx, sink, m); err != nil {
		t.Fatal("eager Store failed:", err)
	}

	stored, err := r.Flush(ctx, sink)
	if err != nil {
		t.Fatal("Flush failed:", err)
	}
	if stored["GeneticMarker"] != 0 {
		t.Errorf("flush re-stored an eagerly stored marker: counts = %v", stored)
	}
	if got := len(sink.Stored()); got != 1 {
		t.Errorf("sink received %v entities, want 1", got)
	}
}

func TestFlushOrderIsDeterministic(t *testing.T) {
	ctx := context.Background()

	build := func() *Registry {
		r := NewRegistry()
		for _, name := range []string{"Satt_9", "Sat_1", "BARC-038", "A123"} {
			r.GeneticMarker(name).Name = name
		}
		r.Organism(OrganismKey{TaxonID: "3885", Variety: "McDonald123"})
		r.Organism(OrganismKey{TaxonID: "3847"})
		return r
	}

	order := func() []string {
		sink := new(MemoryStore)
		if _, err := build().Flush(ctx, sink); err != nil {
			t.Fatal("Flush failed:", err)
		}
		var kinds []string
		for _, e := range sink.Stored() {
			switch x := e.(type) {
			case *GeneticMarker:
				kinds = append(kinds, x.Name)
			case *Organism:
				kinds = append(kinds, OrganismKey{TaxonID: x.TaxonID, Variety: x.Variety}.String())
			}
		}
		return kinds
	}

	first := order()
	for range 5 {
		if diff := cmp.Diff(first, order()); diff != "" {
			t.Fatal("Flush order varied between identical runs:", diff)
		}
	}
}

func TestStoreRejectsZeroItemID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Store accepted a sink returning a zero ItemID")
		}
	}()
	_ = Store(context.Background(), zeroIDSink{}, new(GeneticMarker))
}

type zeroIDSink struct{}

func (zeroIDSink) Store(context.Context, Entity) (ItemID, error) { return "", nil }
