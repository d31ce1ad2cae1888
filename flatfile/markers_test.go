package flatfile

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReadMarkerPositions(t *testing.T) {
	ctx := context.Background()
	c, sink := newTestConverter()

	const input = "# marker\tlinkage group\tposition\n" +
		"Sat_123\tA1\t12.5\n" +
		"\n" +
		"Sat_170\tA1\t45.2\n" +
		"Sat_123\tB2\t3.1\n"
	if err := c.ReadMarkerPositions(ctx, "positions.txt", strings.NewReader(input)); err != nil {
		t.Fatal("ReadMarkerPositions failed:", err)
	}

	m, ok := c.Registry.FindGeneticMarker("Sat_123")
	if !ok {
		t.Fatal("marker Sat_123 was not created")
	}
	if len(m.Positions) != 2 {
		t.Fatalf("Sat_123 has %v positions, want 2", len(m.Positions))
	}
	a1, ok := c.Registry.FindLinkageGroup("A1")
	if !ok {
		t.Fatal("linkage group A1 was not created")
	}
	if a1.Markers.Len() != 2 {
		t.Errorf("A1 holds %v markers, want 2", a1.Markers.Len())
	}
	if m.Positions[0].Position != 12.5 || m.Positions[0].Group != a1 {
		t.Errorf("first placement wired wrong: %+v", m.Positions[0])
	}
	if got := sink.CountKind("LinkageGroupPosition"); got != 3 {
		t.Errorf("sink received %v positions, want 3", got)
	}
}

func TestReadMarkerPositionsMalformedRecord(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestConverter()

	const input = "Sat_123\tA1\t12.5\n" +
		"Sat_170\tA1\n"
	err := c.ReadMarkerPositions(ctx, "positions.txt", strings.NewReader(input))

	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatalf("ReadMarkerPositions returned %v, want a *RecordError", err)
	}
	if re.File != "positions.txt" || re.Line != 2 {
		t.Errorf("error points at %v:%v, want positions.txt:2", re.File, re.Line)
	}
}

func TestReadQTLMarkers(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestConverter()

	const input = "QTL\tMarker\n" +
		"Seed weight 1-1\tSat_123\n" +
		"Seed weight 1-1\tZZ\n" +
		"First flower 2-2\tSat_170\n"
	if err := c.ReadQTLMarkers(ctx, "qtlmarkers_3847.txt", strings.NewReader(input)); err != nil {
		t.Fatal("ReadQTLMarkers failed:", err)
	}

	q, ok := c.Registry.FindQTL("Seed weight 1-1")
	if !ok {
		t.Fatal("QTL Seed weight 1-1 was not created")
	}
	m, ok := c.Registry.FindGeneticMarker("Sat_123")
	if !ok {
		t.Fatal("marker Sat_123 was not created")
	}
	// The sentinel row must not have produced a ZZ marker.
	if _, ok := c.Registry.FindGeneticMarker("ZZ"); ok {
		t.Error("the ZZ sentinel row created a marker")
	}
	if !q.Markers.Contains(m) || !m.QTLs.Contains(q) {
		t.Error("association is not recorded on both sides")
	}
	if q.Organism == nil || q.Organism.TaxonID != "3847" {
		t.Errorf("QTL organism = %+v, want taxon 3847 from the filename", q.Organism)
	}
	if got := c.Linker.Drops().Total(); got != 0 {
		t.Errorf("%v records dropped, want none", got)
	}
}

func TestReadQTLMarkersRequiresTaxonSuffix(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestConverter()

	err := c.ReadQTLMarkers(ctx, "qtlmarkers.txt", strings.NewReader("QTL\tMarker\n"))
	if err == nil {
		t.Fatal("ReadQTLMarkers accepted a filename without a _taxonid suffix")
	}
}
