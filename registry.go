package geneticgraph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/danielorbach/go-component"
)

// A Registry holds the identity maps of a single load run: one map per entity
// kind, from natural key to the canonical instance for that key. Every source
// reader resolves its mentions through the same Registry, so an entity
// mentioned by several sources accumulates attributes and relationships on a
// single instance.
//
// A Registry is per-run state. Construct a fresh one for every load; entities
// are never removed from it during a run.
//
// The get-or-create accessors (Organism, GeneticMap, ...) return the existing
// instance when the key is known and otherwise insert a new empty instance.
// Callers set attributes on the returned entity; attribute writes follow
// last-writer-wins, so sources must keep their attribute-setting idempotent.
//
// The Find accessors are lookup-only and are meant for relationship passes
// that must not invent entities for unknown keys.
//
// A Registry is not safe for concurrent use: a load run drives it from a
// single goroutine, which is what keeps the multi-pass accumulation free of
// ordering surprises.
type Registry struct {
	organisms   map[OrganismKey]*Organism
	maps        map[string]*GeneticMap
	groups      map[string]*LinkageGroup
	markers     map[string]*GeneticMarker
	qtls        map[string]*QTL
	pubs        map[string]*Publication
	terms       map[string]*OntologyTerm
	chromosomes map[string]*Chromosome
	genes       map[string]*Gene
}

// NewRegistry returns an empty Registry ready for a single load run.
func NewRegistry() *Registry {
	return &Registry{
		organisms:   make(map[OrganismKey]*Organism),
		maps:        make(map[string]*GeneticMap),
		groups:      make(map[string]*LinkageGroup),
		markers:     make(map[string]*GeneticMarker),
		qtls:        make(map[string]*QTL),
		pubs:        make(map[string]*Publication),
		terms:       make(map[string]*OntologyTerm),
		chromosomes: make(map[string]*Chromosome),
		genes:       make(map[string]*Gene),
	}
}

// getOrCreate resolves key through the identity map m, inserting the entity
// built by mk on a miss.
func getOrCreate[K comparable, E Entity](m map[K]E, key K, mk func() E) E {
	if e, ok := m[key]; ok {
		return e
	}
	e := mk()
	m[key] = e
	return e
}

// Organism resolves the canonical Organism for the given key.
func (r *Registry) Organism(key OrganismKey) *Organism {
	return getOrCreate(r.organisms, key, func() *Organism {
		return &Organism{TaxonID: key.TaxonID, Variety: key.Variety}
	})
}

// GeneticMap resolves the canonical GeneticMap for the given key.
func (r *Registry) GeneticMap(key string) *GeneticMap {
	return getOrCreate(r.maps, key, func() *GeneticMap { return new(GeneticMap) })
}

// LinkageGroup resolves the canonical LinkageGroup for the given key.
func (r *Registry) LinkageGroup(key string) *LinkageGroup {
	return getOrCreate(r.groups, key, func() *LinkageGroup { return new(LinkageGroup) })
}

// GeneticMarker resolves the canonical GeneticMarker for the given key.
func (r *Registry) GeneticMarker(key string) *GeneticMarker {
	return getOrCreate(r.markers, key, func() *GeneticMarker { return new(GeneticMarker) })
}

// QTL resolves the canonical QTL for the given key.
func (r *Registry) QTL(key string) *QTL {
	return getOrCreate(r.qtls, key, func() *QTL { return new(QTL) })
}

// Publication resolves the canonical Publication for the given key.
func (r *Registry) Publication(key string) *Publication {
	return getOrCreate(r.pubs, key, func() *Publication { return new(Publication) })
}

// OntologyTerm resolves the canonical OntologyTerm for the given identifier.
func (r *Registry) OntologyTerm(identifier string) *OntologyTerm {
	return getOrCreate(r.terms, identifier, func() *OntologyTerm {
		return &OntologyTerm{Identifier: identifier}
	})
}

// Chromosome resolves the canonical Chromosome for the given key.
func (r *Registry) Chromosome(key string) *Chromosome {
	return getOrCreate(r.chromosomes, key, func() *Chromosome { return new(Chromosome) })
}

// Gene resolves the canonical Gene for the given key.
func (r *Registry) Gene(key string) *Gene {
	return getOrCreate(r.genes, key, func() *Gene { return new(Gene) })
}

// FindGeneticMap looks up a map without creating it.
func (r *Registry) FindGeneticMap(key string) (*GeneticMap, bool) {
	m, ok := r.maps[key]
	return m, ok
}

// FindLinkageGroup looks up a linkage group without creating it.
func (r *Registry) FindLinkageGroup(key string) (*LinkageGroup, bool) {
	g, ok := r.groups[key]
	return g, ok
}

// FindGeneticMarker looks up a marker without creating it.
func (r *Registry) FindGeneticMarker(key string) (*GeneticMarker, bool) {
	m, ok := r.markers[key]
	return m, ok
}

// FindQTL looks up a QTL without creating it.
func (r *Registry) FindQTL(key string) (*QTL, bool) {
	q, ok := r.qtls[key]
	return q, ok
}

// FindPublication looks up a publication without creating it.
func (r *Registry) FindPublication(key string) (*Publication, bool) {
	p, ok := r.pubs[key]
	return p, ok
}

// FindGene looks up a gene without creating it.
func (r *Registry) FindGene(key string) (*Gene, bool) {
	g, ok := r.genes[key]
	return g, ok
}

// Flush stores every entity held by the identity maps through the given
// writer, exactly once each, and returns the number of entities stored per
// kind. Entities that were already stored eagerly during the build phase (and
// thus carry an ItemID) are skipped.
//
// The maps are flushed in a fixed kind order, each in sorted key order, so two
// runs over the same inputs submit entities to the sink in the same sequence.
// Referenced-before-referencing is not guaranteed; sinks must tolerate forward
// references per the ItemWriter contract.
//
// If storing any entity fails, Flush stops and returns the error; the sink is
// then left with a partial load and the run must be considered failed.
func (r *Registry) Flush(ctx context.Context, w ItemWriter) (stored map[string]int, err error) {
	ctx, span := tracer.Start(ctx, "Registry.Flush")
	defer span.End()
	logger := component.Logger(ctx)

	defer func(start time.Time) {
		measureFlush(ctx, err == nil, time.Since(start))
	}(time.Now())

	stored = make(map[string]int)
	flush := func(kind string, entities []Entity) error {
		var n int
		for _, e := range entities {
			if !e.record().StoredID().IsZero() {
				continue
			}
			if err := Store(ctx, w, e); err != nil {
				return fmt.Errorf("flush %v: %w", kind, err)
			}
			n++
		}
		stored[kind] = n
		logger.Info("Flushed entities to the sink", "kind", kind, "count", n)
		return nil
	}

	// The flush order mirrors the dependency direction of the data model (scoping
	// entities first, relationship-heavy entities last), which keeps the number of
	// placeholder nodes a graph sink has to create low. It is an optimisation, not
	// a correctness requirement.
	if err := flush("Organism", sortedByKey(r.organisms, func(k OrganismKey) string { return k.String() })); err != nil {
		return nil, err
	}
	if err := flush("Publication", sortedByKey(r.pubs, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("OntologyTerm", sortedByKey(r.terms, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("GeneticMap", sortedByKey(r.maps, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("LinkageGroup", sortedByKey(r.groups, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("GeneticMarker", sortedByKey(r.markers, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("QTL", sortedByKey(r.qtls, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("Chromosome", sortedByKey(r.chromosomes, keyIdentity)); err != nil {
		return nil, err
	}
	if err := flush("Gene", sortedByKey(r.genes, keyIdentity)); err != nil {
		return nil, err
	}

	return stored, nil
}

func keyIdentity(k string) string { return k }

// sortedByKey returns the map's entities ordered by the string rendering of
// their keys, widened to []Entity for flushing.
func sortedByKey[K comparable, E Entity](m map[K]E, render func(K) string) []Entity {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return render(keys[i]) < render(keys[j]) })
	entities := make([]Entity, len(keys))
	for i, k := range keys {
		entities[i] = m[k]
	}
	return entities
}
