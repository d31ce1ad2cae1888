package flatfile

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/danielorbach/go-component"
	"github.com/go-geneticgraph/go-geneticgraph"
)

// ReadExpression reads an expression matrix file describing one experiment.
//
// The file opens with two-column header rows describing the experiment (ID,
// Description, PMID, BioProject, SRA, GEO, Unit, URL), followed by a
// "Samples<TAB>N" row and N sample rows ("num<TAB>name<TAB>description").
// Every remaining row carries a transcript identifier and one expression
// value per declared sample.
//
// Transcript identifiers are collapsed to their gene by stripping a trailing
// ".N" isoform suffix, and consecutive rows of the same gene sum into a
// single value per sample. The experiment, its samples, and every expression
// value are stored eagerly; genes join the shared registry and flush with the
// rest of the load.
func (c *Converter) ReadExpression(ctx context.Context, name string, r io.Reader) error {
	source := &geneticgraph.ExpressionSource{}
	var samples []*geneticgraph.ExpressionSample
	var (
		declared int  // sample rows the Samples header promised
		stored   bool // the source and samples were stored
	)

	// Consecutive rows carrying transcripts of the same gene accumulate into a
	// single value per sample, flushed when the next gene begins.
	var (
		gene *geneticgraph.Gene
		sums []float64
	)
	flushGene := func(ctx context.Context) error {
		if gene == nil {
			return nil
		}
		for i, sum := range sums {
			v := &geneticgraph.ExpressionValue{Value: sum, Sample: samples[i], Gene: gene}
			if err := geneticgraph.Store(ctx, c.Writer, v); err != nil {
				return err
			}
		}
		gene = nil
		return nil
	}

	var count int
	err := lines(r, func(n int, text string) error {
		if strings.HasPrefix(text, "#") {
			return nil
		}
		parts := fields(text)

		// The header block, up to and including the Samples row.
		if declared == 0 && len(samples) == 0 {
			if len(parts) != 2 {
				return recordError(name, n, "expected a 2-field header row, got %v fields", len(parts))
			}
			switch parts[0] {
			case "ID":
				source.Name = parts[1]
			case "Description":
				source.Description = parts[1]
			case "Unit":
				source.Unit = parts[1]
			case "BioProject":
				source.BioProject = parts[1]
			case "SRA":
				source.SRA = parts[1]
			case "GEO":
				source.GEO = parts[1]
			case "URL":
				source.URL = parts[1]
			case "PMID":
				pmid, err := strconv.Atoi(parts[1])
				if err != nil {
					return recordError(name, n, "bad PMID %q: %v", parts[1], err)
				}
				pub := c.Registry.Publication(parts[1])
				pub.PubMedID = pmid
				c.Linker.Cite(pub, source)
			case "Samples":
				want, err := strconv.Atoi(parts[1])
				if err != nil || want <= 0 {
					return recordError(name, n, "bad sample count %q", parts[1])
				}
				declared = want
			default:
				return recordError(name, n, "unknown header row %q", parts[0])
			}
			return nil
		}

		// The declared sample rows.
		if len(samples) < declared {
			if len(parts) != 3 {
				return recordError(name, n, "expected 3 sample fields, got %v", len(parts))
			}
			num, err := strconv.Atoi(parts[0])
			if err != nil {
				return recordError(name, n, "bad sample number %q: %v", parts[0], err)
			}
			samples = append(samples, &geneticgraph.ExpressionSample{
				Num:         num,
				Name:        parts[1],
				Description: parts[2],
				Source:      source,
			})
			return nil
		}

		// The samples are complete; store the experiment once before the values
		// reference it.
		if !stored {
			if err := geneticgraph.Store(ctx, c.Writer, source); err != nil {
				return err
			}
			for _, s := range samples {
				if err := geneticgraph.Store(ctx, c.Writer, s); err != nil {
					return err
				}
			}
			stored = true
		}

		// A gene row: the transcript identifier followed by one value per sample.
		if len(parts) != len(samples)+1 {
			return recordError(name, n, "expected %v expression values, got %v", len(samples), len(parts)-1)
		}
		if g := geneName(parts[0]); gene == nil || gene.Name != g {
			if err := flushGene(ctx); err != nil {
				return err
			}
			gene = c.Registry.Gene(g)
			gene.Name = g
			sums = make([]float64, len(samples))
			count++
		}
		for i, field := range parts[1:] {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return recordError(name, n, "bad expression value %q: %v", field, err)
			}
			sums[i] += value
		}
		return nil
	})
	if err != nil {
		return err
	}
	if declared == 0 {
		return recordError(name, 0, "file declares no samples")
	}
	if err := flushGene(ctx); err != nil {
		return err
	}
	component.Logger(ctx).Info("Read expression matrix", "file", name, "experiment", source.Name, "genes", count)
	return nil
}

// geneName collapses a transcript identifier to its gene name by stripping a
// trailing isoform suffix like ".1" or ".12". Identifiers whose final dot
// sits elsewhere are gene names already and pass through unchanged.
func geneName(transcript string) string {
	i := strings.LastIndex(transcript, ".")
	if i == len(transcript)-2 || i == len(transcript)-3 {
		return transcript[:i]
	}
	return transcript
}
