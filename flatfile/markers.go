package flatfile

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/danielorbach/go-component"
	"github.com/go-geneticgraph/go-geneticgraph"
)

// ReadMarkerPositions reads a marker placement file: one tab-separated record
// per line, "marker<TAB>linkage-group<TAB>position", with '#' comment lines.
// Markers and linkage groups are created on first sight and keyed by name, so
// placements never drop; each placement stores its position eagerly.
func (c *Converter) ReadMarkerPositions(ctx context.Context, name string, r io.Reader) error {
	var count int
	err := lines(r, func(n int, text string) error {
		if strings.HasPrefix(text, "#") {
			return nil
		}
		parts := fields(text)
		if len(parts) != 3 {
			return recordError(name, n, "expected 3 fields, got %v", len(parts))
		}
		position, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return recordError(name, n, "bad position %q: %v", parts[2], err)
		}

		m := c.Registry.GeneticMarker(parts[0])
		m.Name = parts[0]
		g := c.Registry.LinkageGroup(parts[1])
		g.Name = parts[1]
		g.Markers.Add(m)

		pos := &geneticgraph.LinkageGroupPosition{Position: position, Group: g}
		if err := geneticgraph.Store(ctx, c.Writer, pos); err != nil {
			return err
		}
		m.Positions = append(m.Positions, pos)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	component.Logger(ctx).Info("Read marker placements", "file", name, "count", count)
	return nil
}

// ReadQTLMarkers reads a QTL to marker association file:
// "qtl<TAB>marker" records after a single header line. The organism is
// encoded in the filename's _taxonid suffix. Rows naming the ZZ sentinel
// marker pad the source export and are skipped.
func (c *Converter) ReadQTLMarkers(ctx context.Context, name string, r io.Reader) error {
	taxon, err := TaxonFromFilename(name)
	if err != nil {
		return err
	}
	organism := c.Registry.Organism(geneticgraph.OrganismKey{TaxonID: taxon})

	var count int
	header := true
	err = lines(r, func(n int, text string) error {
		if header {
			header = false
			return nil
		}
		parts := fields(text)
		if len(parts) != 2 {
			return recordError(name, n, "expected 2 fields, got %v", len(parts))
		}
		if parts[1] == "ZZ" {
			return nil
		}

		q := c.Registry.QTL(parts[0])
		q.Name = parts[0]
		q.Organism = organism
		m := c.Registry.GeneticMarker(parts[1])
		m.Name = parts[1]
		m.Organism = organism

		c.Linker.AssociateMarker(ctx, parts[0], parts[1])
		count++
		return nil
	})
	if err != nil {
		return err
	}
	component.Logger(ctx).Info("Read QTL marker associations", "file", name, "count", count)
	return nil
}
