package geneticgraph

import (
	"context"
	"fmt"

	"github.com/danielorbach/go-component"
)

// A Linker resolves relationship records against a Registry. Every
// relationship of the data model is declared by exactly one Linker operation,
// and each operation updates both endpoint collections, so forward and reverse
// references can never disagree.
//
// Operations that attach an immutable leaf entity (a position, a range, an
// annotation, a location) store that leaf eagerly through the Linker's writer:
// leaves never change after creation, so there is no reason to defer them to
// the final flush.
//
// When an operation cannot resolve an endpoint key, it drops the record
// silently: partial source data is normal, and a single missing marker must
// not abort a multi-hour load. Drops are tallied per reason (see Drops) and
// counted in telemetry so a misconfigured run remains visible.
type Linker struct {
	registry *Registry
	writer   ItemWriter
	drops    DropTally
}

// NewLinker returns a Linker resolving against the given registry and storing
// eager leaf entities through the given writer.
func NewLinker(r *Registry, w ItemWriter) *Linker {
	return &Linker{registry: r, writer: w}
}

// Drops exposes the tally of records dropped by this Linker.
func (l *Linker) Drops() *DropTally { return &l.drops }

// drop tallies and logs one silently dropped relationship record.
func (l *Linker) drop(ctx context.Context, reason string, keyvals ...any) {
	l.drops.Count(reason)
	countDrop(ctx, reason)
	component.Logger(ctx).Debug("Dropped a relationship record", append([]any{"reason", reason}, keyvals...)...)
}

// PlaceMarker places the marker with the given key at a point position (in
// map units) on the linkage group with the given key, within the given map.
//
// The marker joins the map's and the group's marker sets (both deduplicated),
// and a new LinkageGroupPosition is created, stored eagerly, and appended to
// the marker's positions. Positions are never deduplicated: the same marker
// placed twice yields two position entities.
//
// An unknown marker key drops the whole record. An unknown group key still
// records the marker on the map (the map-level membership does not depend on
// the group) but drops the placement.
func (l *Linker) PlaceMarker(ctx context.Context, gm *GeneticMap, markerKey, groupKey string, position float64) error {
	m, ok := l.registry.FindGeneticMarker(markerKey)
	if !ok {
		l.drop(ctx, "marker placement: unknown marker", "marker", markerKey)
		return nil
	}
	gm.Markers.Add(m)

	g, ok := l.registry.FindLinkageGroup(groupKey)
	if !ok {
		l.drop(ctx, "marker placement: unknown linkage group", "marker", markerKey, "group", groupKey)
		return nil
	}
	g.Markers.Add(m)

	pos := &LinkageGroupPosition{Position: position, Group: g}
	if err := Store(ctx, l.writer, pos); err != nil {
		return fmt.Errorf("place marker %v: %w", markerKey, err)
	}
	m.Positions = append(m.Positions, pos)
	return nil
}

// MeasureGroup records the measured length (in map units) of the linkage
// group with the given key and binds the group to its owning map. Source rows
// express this as a group positioned on itself at its own length; callers
// pass only the positive-length rows.
//
// An unknown group key drops the record.
func (l *Linker) MeasureGroup(ctx context.Context, gm *GeneticMap, groupKey string, length float64) {
	g, ok := l.registry.FindLinkageGroup(groupKey)
	if !ok {
		l.drop(ctx, "group measurement: unknown linkage group", "group", groupKey)
		return
	}
	g.Length = length
	g.GeneticMap = gm
}

// SpanQTL spans the QTL with the given key over an interval of the linkage
// group with the given key. The begin and end coordinates arrive in the
// integer cM-times-100 encoding and are decoded here; the range's length is
// the decoded span rounded half-up to two decimal places.
//
// The new LinkageGroupRange is stored eagerly and appended to the QTL's
// ranges (never deduplicated), and the QTL joins the group's QTL set
// (deduplicated) as the reverse side of the same record.
//
// An unknown QTL or group key drops the record.
func (l *Linker) SpanQTL(ctx context.Context, qtlKey, groupKey string, begin, end int) error {
	q, ok := l.registry.FindQTL(qtlKey)
	if !ok {
		l.drop(ctx, "qtl span: unknown qtl", "qtl", qtlKey)
		return nil
	}
	g, ok := l.registry.FindLinkageGroup(groupKey)
	if !ok {
		l.drop(ctx, "qtl span: unknown linkage group", "qtl", qtlKey, "group", groupKey)
		return nil
	}

	b, e := Centimorgans(begin), Centimorgans(end)
	rng := &LinkageGroupRange{
		Begin:  b,
		End:    e,
		Length: Round(e-b, 2),
		Group:  g,
	}
	if err := Store(ctx, l.writer, rng); err != nil {
		return fmt.Errorf("span qtl %v: %w", qtlKey, err)
	}
	q.Ranges = append(q.Ranges, rng)
	g.QTLs.Add(q)
	return nil
}

// AssociateMarker associates the marker with the given key to the QTL with
// the given key, updating the deduplicating sets on both sides.
//
// An unknown QTL or marker key drops the record.
func (l *Linker) AssociateMarker(ctx context.Context, qtlKey, markerKey string) {
	q, ok := l.registry.FindQTL(qtlKey)
	if !ok {
		l.drop(ctx, "marker association: unknown qtl", "qtl", qtlKey)
		return
	}
	m, ok := l.registry.FindGeneticMarker(markerKey)
	if !ok {
		l.drop(ctx, "marker association: unknown marker", "qtl", qtlKey, "marker", markerKey)
		return
	}
	q.Markers.Add(m)
	m.QTLs.Add(q)
}

// Annotate attaches the ontology term with the given identifier to the QTL.
// The term is resolved through the registry (created on first sight, with its
// type derived from the two-letter prefix of the identifier), and a new
// OntologyAnnotation is stored eagerly and appended to the QTL's annotations.
func (l *Linker) Annotate(ctx context.Context, q *QTL, termID string) error {
	term := l.registry.OntologyTerm(termID)
	if term.Type == "" && len(termID) >= 2 {
		term.Type = termID[:2]
	}

	ann := &OntologyAnnotation{Term: term, Subject: q}
	if err := Store(ctx, l.writer, ann); err != nil {
		return fmt.Errorf("annotate qtl %v: %w", q.Name, err)
	}
	q.Annotations = append(q.Annotations, ann)
	return nil
}

// Cite declares that the given entity cites the given publication. The
// citation is owned by the citing entity (its publications set) and mirrored
// on the publication's reverse set in the same operation.
//
// Cite panics when called with an entity kind that cannot carry citations;
// that is a programming error, not a data problem.
func (l *Linker) Cite(pub *Publication, citing Entity) {
	switch x := citing.(type) {
	case *GeneticMap:
		x.Publications.Add(pub)
	case *QTL:
		x.Publications.Add(pub)
	case *GeneticMarker:
		x.Publications.Add(pub)
	case *ExpressionSource:
		x.Publication = pub
	default:
		panic(fmt.Sprintf("seek developer attention: geneticgraph: %v cannot cite publications", KindOf(citing)))
	}
	pub.Entities.Add(citing)
}

// Locate places the marker on a chromosome using genomic coordinates. The
// start arrives zero-based (interbase) and is shifted to the one-based
// inclusive convention; the end is identical in both conventions. The
// location's length is end - start + 1 in one-based terms.
//
// The new Location is stored eagerly and set as the marker's genomic
// location, replacing any previous one.
func (l *Linker) Locate(ctx context.Context, m *GeneticMarker, c *Chromosome, start0, end int) error {
	start := OneBased(start0)
	loc := &Location{
		Start:  start,
		End:    end,
		Length: end - start + 1,
		On:     c,
		Of:     m,
	}
	if err := Store(ctx, l.writer, loc); err != nil {
		return fmt.Errorf("locate marker %v: %w", m.Name, err)
	}
	m.Location = loc
	return nil
}
