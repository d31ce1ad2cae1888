package chado

import (
	"context"
	"testing"

	"github.com/go-geneticgraph/go-geneticgraph"
)

func newTestProcessor() (*processor, *geneticgraph.MemoryStore) {
	registry := geneticgraph.NewRegistry()
	sink := new(geneticgraph.MemoryStore)
	return &processor{
		cfg:      Config{Writer: sink},
		registry: registry,
		linker:   geneticgraph.NewLinker(registry, sink),
	}, sink
}

func TestAssociateMarkerScopesBySubjectQTL(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor()

	q := p.registry.QTL(featureKey(101))
	q.Name = "Seed weight 1-1"
	m := p.registry.GeneticMarker(featureKey(202))
	m.Name = "Sat_123"
	g := p.registry.LinkageGroup(featureKey(303))
	g.Name = "A1"

	// The feature_relationship table relates features of every kind; a row
	// whose subject is not a QTL is outside this load and must be skipped
	// without tallying a drop.
	if p.associateMarker(ctx, 303, 202) {
		t.Error("a non-QTL subject was resolved as an association")
	}
	if got := p.linker.Drops().Total(); got != 0 {
		t.Errorf("%v drops tallied for a skipped row, want 0", got)
	}

	if !p.associateMarker(ctx, 101, 202) {
		t.Fatal("a QTL to marker row was not resolved")
	}
	if !q.Markers.Contains(m) || !m.QTLs.Contains(q) {
		t.Error("association is not recorded on both sides")
	}

	// A QTL subject pointing at an unregistered object is a genuine gap and
	// goes through the linker's drop tally.
	p.associateMarker(ctx, 101, 999)
	if got := p.linker.Drops().Total(); got != 1 {
		t.Errorf("%v drops tallied, want 1 for the unknown object", got)
	}
}

func TestRegisterMapAttributesOrganism(t *testing.T) {
	p, _ := newTestProcessor()
	org := p.registry.Organism(geneticgraph.OrganismKey{TaxonID: "3847"})

	gm := p.registerMap(7, "GmComposite2003", "Composite linkage map", org)
	if gm.Name != "GmComposite2003" || gm.Description != "Composite linkage map" {
		t.Errorf("map attributes = %q / %q, want the featuremap row's", gm.Name, gm.Description)
	}
	if gm.Unit != "cM" {
		t.Errorf("map unit = %q, want cM", gm.Unit)
	}
	if gm.Organism != org {
		t.Errorf("map organism = %+v, want the configured organism", gm.Organism)
	}

	// The same featuremap row seen again converges on the same instance.
	if again := p.registerMap(7, "GmComposite2003", "Composite linkage map", org); again != gm {
		t.Error("re-registering a map produced a second instance")
	}
}
