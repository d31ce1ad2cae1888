package geneticgraph

import "reflect"

// Entity is the atomic unit of information of a resolved genetic graph.
// Although the geneticgraph package could work with any type, we guard against
// accidental use of types by requiring them to implement this interface.
//
// Type-assert entities in order to access the actual type and its fields.
//
// DO NOT forget to register your type with gob.Register() before encoding.
type Entity interface {
	// StoredID returns the identifier assigned by the sink, or the zero ItemID
	// if the entity has not been stored yet.
	StoredID() ItemID

	// record exposes the persistence state shared by all entity types.
	//
	// it is unexported to prevent implementation by types outside this package -
	// instead, these types embed the Record struct.
	record() *Record
}

// Record implements Entity in order to embed into entity types. It carries the
// persistence state of the entity: the opaque identifier assigned by the sink
// when the entity is first stored.
//
// The zero value marks an entity that has not been stored yet.
type Record struct {
	id ItemID
}

func (r *Record) record() *Record { return r }

// StoredID returns the identifier assigned by the sink, or the zero ItemID if
// the entity has not been stored yet.
func (r *Record) StoredID() ItemID { return r.id }

// An Organism scopes entities to a species (by NCBI taxonomy identifier) and
// optionally to a specific variety within that species. Two entities with the
// same name but different organisms are distinct.
type Organism struct {
	Record
	TaxonID string
	Variety string
}

// A GeneticMap is a named map of linkage groups measured in a single unit
// (invariably centimorgans).
type GeneticMap struct {
	Record
	Name         string
	Description  string
	Unit         string
	Organism     *Organism
	Markers      RefSet[*GeneticMarker]
	Publications RefSet[*Publication]
}

// A LinkageGroup is a single linear segment of a genetic map. Its Length is in
// the map's unit; a zero Length means the length is unknown (measured lengths
// are always positive).
type LinkageGroup struct {
	Record
	Name       string
	Length     float64
	GeneticMap *GeneticMap
	Organism   *Organism
	Markers    RefSet[*GeneticMarker]
	QTLs       RefSet[*QTL]
}

// A GeneticMarker is a named landmark that may be placed on linkage groups
// (genetic coordinates) and located on a chromosome (genomic coordinates).
type GeneticMarker struct {
	Record
	Name         string
	Type         string
	Organism     *Organism
	Positions    []*LinkageGroupPosition
	QTLs         RefSet[*QTL]
	Location     *Location
	Publications RefSet[*Publication]
}

// A QTL is a quantitative trait locus: a region of a linkage group associated
// with a measurable trait.
type QTL struct {
	Record
	Name         string
	Organism     *Organism
	Ranges       []*LinkageGroupRange
	Markers      RefSet[*GeneticMarker]
	Annotations  []*OntologyAnnotation
	Publications RefSet[*Publication]
}

// A Publication cites the study an entity originates from. The Entities set is
// the reverse side of the citation: every entity that cites this publication.
type Publication struct {
	Record
	Title       string
	FirstAuthor string
	Journal     string
	Issue       string
	Year        string
	Volume      string
	Pages       string
	PubMedID    int
	Entities    RefSet[Entity]
}

// An OntologyTerm is a controlled-vocabulary term (GO, PO, TO, ...). Its Type
// is the two-letter ontology prefix of the identifier.
type OntologyTerm struct {
	Record
	Identifier string
	Type       string
}

// An OntologyAnnotation attaches a single OntologyTerm to a single subject
// entity. Annotations are immutable once created and are never deduplicated.
type OntologyAnnotation struct {
	Record
	Term    *OntologyTerm
	Subject Entity
}

// A LinkageGroupPosition places a marker at a point position (in map units) on
// a linkage group. Positions are immutable once created and are never
// deduplicated: the same marker may legitimately appear twice at the same
// coordinate when two maps agree.
type LinkageGroupPosition struct {
	Record
	Position float64
	Group    *LinkageGroup
}

// A LinkageGroupRange spans an interval (in map units) on a linkage group.
// Ranges are immutable once created and are never deduplicated.
type LinkageGroupRange struct {
	Record
	Begin  float64
	End    float64
	Length float64
	Group  *LinkageGroup
}

// A Chromosome names a genomic sequence that markers are located on.
type Chromosome struct {
	Record
	Name     string
	Organism *Organism
}

// A Location places an entity on a chromosome using one-based inclusive
// genomic coordinates. Locations are immutable once created.
type Location struct {
	Record
	Start  int
	End    int
	Length int
	On     *Chromosome
	Of     Entity
}

// A Gene is a named gene, referenced by expression values.
type Gene struct {
	Record
	Name     string
	Organism *Organism
}

// An ExpressionSource describes a single expression experiment (e.g. an
// RNA-Seq atlas) whose samples and values follow it.
type ExpressionSource struct {
	Record
	Name        string
	Description string
	Unit        string
	BioProject  string
	SRA         string
	GEO         string
	URL         string
	Publication *Publication
}

// An ExpressionSample is one column of an expression experiment, numbered in
// the order the source file declares them.
type ExpressionSample struct {
	Record
	Num         int
	Name        string
	Description string
	Source      *ExpressionSource
}

// An ExpressionValue is the measured expression of one gene in one sample.
type ExpressionValue struct {
	Record
	Value  float64
	Sample *ExpressionSample
	Gene   *Gene
}

// KindOf returns the kind name of the given entity. Kind names identify entity
// types across the package: in flush summaries, load notifications, and sink
// labels.
func KindOf(e Entity) string {
	switch e.(type) {
	case *Organism:
		return "Organism"
	case *GeneticMap:
		return "GeneticMap"
	case *LinkageGroup:
		return "LinkageGroup"
	case *GeneticMarker:
		return "GeneticMarker"
	case *QTL:
		return "QTL"
	case *Publication:
		return "Publication"
	case *OntologyTerm:
		return "OntologyTerm"
	case *OntologyAnnotation:
		return "OntologyAnnotation"
	case *LinkageGroupPosition:
		return "LinkageGroupPosition"
	case *LinkageGroupRange:
		return "LinkageGroupRange"
	case *Chromosome:
		return "Chromosome"
	case *Location:
		return "Location"
	case *Gene:
		return "Gene"
	case *ExpressionSource:
		return "ExpressionSource"
	case *ExpressionSample:
		return "ExpressionSample"
	case *ExpressionValue:
		return "ExpressionValue"
	default:
		// Entity is a sealed interface, so an unknown dynamic type means a new entity
		// kind was added without extending this switch.
		panic("seek developer attention: geneticgraph: unknown entity kind")
	}
}

// A RefSet is an insertion-ordered set of entity references. Adding a
// reference that is already a member leaves the set unchanged, which makes
// repeated relationship declarations across passes idempotent.
//
// Members are identified by pointer identity, hence the comparable
// requirement on top of Entity.
//
// The zero value is an empty set ready for use.
type RefSet[E interface {
	Entity
	comparable
}] struct {
	seen map[E]struct{}
	list []E
}

// Add inserts the given entity into the set. It reports whether the set grew
// (i.e. the entity was not already a member).
func (s *RefSet[E]) Add(e E) bool {
	if _, ok := s.seen[e]; ok {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[E]struct{})
	}
	s.seen[e] = struct{}{}
	s.list = append(s.list, e)
	return true
}

// Contains reports whether the given entity is a member of the set.
func (s *RefSet[E]) Contains(e E) bool {
	_, ok := s.seen[e]
	return ok
}

// Len returns the number of members.
func (s *RefSet[E]) Len() int { return len(s.list) }

// All returns the members in insertion order. Do not modify the returned
// slice.
func (s *RefSet[E]) All() []E { return s.list }

// VisitReferences calls fn for each entity directly referenced by e, in a
// stable order: single references first, then collection members in insertion
// order. Unset references are skipped. If fn returns false, the traversal
// stops.
//
// Sinks use this to discover the edges of an entity without knowing its
// concrete type.
func VisitReferences(e Entity, fn func(ref Entity) bool) {
	visit := func(refs ...Entity) bool {
		for _, r := range refs {
			if isNilEntity(r) {
				continue
			}
			if !fn(r) {
				return false
			}
		}
		return true
	}
	each := func(refs []Entity) bool { return visit(refs...) }

	switch x := e.(type) {
	case *Organism, *OntologyTerm:
		// leaf kinds: no outgoing references
	case *GeneticMap:
		_ = visit(x.Organism) &&
			each(asEntities(x.Markers.All())) &&
			each(asEntities(x.Publications.All()))
	case *LinkageGroup:
		_ = visit(x.Organism, x.GeneticMap) &&
			each(asEntities(x.Markers.All())) &&
			each(asEntities(x.QTLs.All()))
	case *GeneticMarker:
		_ = visit(x.Organism, x.Location) &&
			each(asEntities(x.Positions)) &&
			each(asEntities(x.QTLs.All())) &&
			each(asEntities(x.Publications.All()))
	case *QTL:
		_ = visit(x.Organism) &&
			each(asEntities(x.Ranges)) &&
			each(asEntities(x.Markers.All())) &&
			each(asEntities(x.Annotations)) &&
			each(asEntities(x.Publications.All()))
	case *Publication:
		_ = each(x.Entities.All())
	case *OntologyAnnotation:
		_ = visit(x.Term, x.Subject)
	case *LinkageGroupPosition:
		_ = visit(x.Group)
	case *LinkageGroupRange:
		_ = visit(x.Group)
	case *Chromosome:
		_ = visit(x.Organism)
	case *Location:
		_ = visit(x.On, x.Of)
	case *Gene:
		_ = visit(x.Organism)
	case *ExpressionSource:
		_ = visit(x.Publication)
	case *ExpressionSample:
		_ = visit(x.Source)
	case *ExpressionValue:
		_ = visit(x.Sample, x.Gene)
	}
}

// asEntities widens a slice of a concrete entity type to []Entity for visit.
func asEntities[E Entity](refs []E) []Entity {
	out := make([]Entity, len(refs))
	for i, r := range refs {
		out[i] = r
	}
	return out
}

// isNilEntity reports whether the given reference is unset: either a nil
// interface or an interface holding a typed nil pointer (e.g. an unset
// *Organism field).
func isNilEntity(e Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
