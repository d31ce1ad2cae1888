package flatfile

import (
	"context"
	"io"
	"strings"

	"github.com/danielorbach/go-component"
	"github.com/go-geneticgraph/go-geneticgraph"
)

// ReadQTLOntology reads a trait annotation file: "qtl<TAB>term" records
// annotating QTLs with ontology term identifiers (e.g. "TO:0002626").
//
// The file declares its organism inline through two-column directive rows
// whose first field is TaxonID or Variety (case-insensitive). A data row
// before the TaxonID directive fails the load, because the QTLs it would
// create could not be attributed to an organism.
func (c *Converter) ReadQTLOntology(ctx context.Context, name string, r io.Reader) error {
	var (
		taxon    string
		variety  string
		organism *geneticgraph.Organism
	)

	var count int
	err := lines(r, func(n int, text string) error {
		if strings.HasPrefix(text, "#") {
			return nil
		}
		parts := fields(text)
		if len(parts) != 2 {
			return recordError(name, n, "expected 2 fields, got %v", len(parts))
		}

		switch strings.ToLower(parts[0]) {
		case "taxonid":
			taxon = parts[1]
			return nil
		case "variety":
			variety = parts[1]
			return nil
		}

		if taxon == "" {
			return recordError(name, n, "data row before the TaxonID directive")
		}
		if organism == nil {
			organism = c.Registry.Organism(geneticgraph.OrganismKey{TaxonID: taxon, Variety: variety})
		}

		q := c.Registry.QTL(parts[0])
		q.Name = parts[0]
		q.Organism = organism
		if err := c.Linker.Annotate(ctx, q, parts[1]); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	component.Logger(ctx).Info("Read QTL ontology annotations", "file", name, "count", count)
	return nil
}
