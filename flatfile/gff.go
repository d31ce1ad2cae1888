package flatfile

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/danielorbach/go-component"
	"github.com/go-geneticgraph/go-geneticgraph"
)

// ReadMarkerGFF reads genomic marker positions from a GFF3 file.
//
// The file declares its organism through tab-separated directive comments
// before the first data row:
//
//	#taxonid	3847
//	#variety	Williams82
//
// A data row before the #taxonid directive fails the load. Each data row
// locates one marker on a chromosome; rows repeating a marker already seen
// for the same organism are skipped, because repeated rows in these exports
// invariably carry stale coordinates. Markers and their locations are stored
// eagerly, one per accepted row.
func (c *Converter) ReadMarkerGFF(ctx context.Context, name string, r io.Reader) error {
	var (
		taxon    string
		variety  string
		organism *geneticgraph.Organism
		seen     = make(map[string]bool)
	)

	var count, skipped int
	err := lines(r, func(n int, text string) error {
		if strings.HasPrefix(text, "#") {
			parts := fields(text)
			if len(parts) == 2 {
				switch strings.ToLower(parts[0]) {
				case "#taxonid":
					taxon = parts[1]
				case "#variety":
					variety = parts[1]
				}
			}
			return nil
		}

		parts := fields(text)
		if len(parts) != 9 {
			return recordError(name, n, "expected 9 GFF columns, got %v", len(parts))
		}
		if taxon == "" {
			return recordError(name, n, "data row before the #taxonid directive")
		}
		if organism == nil {
			organism = c.Registry.Organism(geneticgraph.OrganismKey{TaxonID: taxon, Variety: variety})
		}

		markerName := gffAttribute(parts[8], "Name")
		if markerName == "" {
			markerName = gffAttribute(parts[8], "ID")
		}
		if markerName == "" {
			return recordError(name, n, "record has neither Name nor ID attribute")
		}
		dupe := geneticgraph.OrganismKey{TaxonID: taxon, Variety: variety}.String() + ":" + markerName
		if seen[dupe] {
			skipped++
			return nil
		}
		seen[dupe] = true

		start, err := strconv.Atoi(parts[3])
		if err != nil {
			return recordError(name, n, "bad start %q: %v", parts[3], err)
		}
		end, err := strconv.Atoi(parts[4])
		if err != nil {
			return recordError(name, n, "bad end %q: %v", parts[4], err)
		}

		chromosome := c.Registry.Chromosome(parts[0])
		chromosome.Name = parts[0]
		chromosome.Organism = organism
		if err := geneticgraph.Store(ctx, c.Writer, chromosome); err != nil {
			return err
		}

		m := c.Registry.GeneticMarker(markerName)
		m.Name = markerName
		m.Type = parts[2]
		m.Organism = organism
		// GFF coordinates are one-based inclusive; Locate expects a zero-based
		// start, so the shift cancels out and the stored location matches the file.
		if err := c.Linker.Locate(ctx, m, chromosome, start-1, end); err != nil {
			return err
		}
		if err := geneticgraph.Store(ctx, c.Writer, m); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	component.Logger(ctx).Info("Read genomic marker positions", "file", name, "count", count, "skipped", skipped)
	return nil
}

// gffAttribute extracts the value of the named key from a GFF3 attributes
// column ("ID=x;Name=y;...").
func gffAttribute(attributes, key string) string {
	for _, attr := range strings.Split(attributes, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(attr), "=")
		if found && k == key {
			return v
		}
	}
	return ""
}
