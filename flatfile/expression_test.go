package flatfile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-geneticgraph/go-geneticgraph"
)

const expressionInput = "# soybean expression atlas\n" +
	"ID\tSoyAtlas\n" +
	"Description\tRNA-Seq atlas of 14 tissues\n" +
	"PMID\t20607128\n" +
	"Unit\tTPM\n" +
	"BioProject\tPRJNA208048\n" +
	"SRA\tSRP012345\n" +
	"GEO\tGSE29163\n" +
	"URL\thttps://example.org/atlas\n" +
	"Samples\t2\n" +
	"1\tyoung_leaf\tYoung leaf\n" +
	"2\troot_tip\tRoot tip\n" +
	"Glyma.01G000100.1\t1.5\t2.25\n" +
	"Glyma.01G000100.2\t0.5\t0\n" +
	"Glyma.02G123400.10\t3\t4\n"

func TestReadExpression(t *testing.T) {
	ctx := context.Background()
	c, sink := newTestConverter()

	if err := c.ReadExpression(ctx, "atlas.tsv", strings.NewReader(expressionInput)); err != nil {
		t.Fatal("ReadExpression failed:", err)
	}

	if got := sink.CountKind("ExpressionSource"); got != 1 {
		t.Fatalf("sink received %v sources, want 1", got)
	}
	if got := sink.CountKind("ExpressionSample"); got != 2 {
		t.Errorf("sink received %v samples, want 2", got)
	}
	// Two genes over two samples: the two isoform rows of Glyma.01G000100
	// collapse into one value per sample.
	if got := sink.CountKind("ExpressionValue"); got != 4 {
		t.Errorf("sink received %v values, want 4", got)
	}
	// Genes are not stored eagerly; they flush with the rest of the registry.
	if got := sink.CountKind("Gene"); got != 0 {
		t.Errorf("sink received %v genes before the flush, want 0", got)
	}

	// Both isoforms of Glyma.01G000100 collapse to one gene.
	if _, ok := c.Registry.FindGene("Glyma.01G000100"); !ok {
		t.Error("gene Glyma.01G000100 was not created from its transcripts")
	}
	if _, ok := c.Registry.FindGene("Glyma.01G000100.1"); ok {
		t.Error("a transcript identifier leaked into the gene registry")
	}

	pub, ok := c.Registry.FindPublication("20607128")
	if !ok {
		t.Fatal("the PMID row did not create a publication")
	}
	if pub.PubMedID != 20607128 {
		t.Errorf("publication PubMedID = %v, want 20607128", pub.PubMedID)
	}
}

func TestReadExpressionWiresSourceAndSamples(t *testing.T) {
	ctx := context.Background()
	c, sink := newTestConverter()

	if err := c.ReadExpression(ctx, "atlas.tsv", strings.NewReader(expressionInput)); err != nil {
		t.Fatal("ReadExpression failed:", err)
	}

	var source *geneticgraph.ExpressionSource
	var samples []*geneticgraph.ExpressionSample
	var values []*geneticgraph.ExpressionValue
	for _, e := range sink.Stored() {
		switch x := e.(type) {
		case *geneticgraph.ExpressionSource:
			source = x
		case *geneticgraph.ExpressionSample:
			samples = append(samples, x)
		case *geneticgraph.ExpressionValue:
			values = append(values, x)
		}
	}
	if source == nil {
		t.Fatal("no expression source was stored")
	}

	want := geneticgraph.ExpressionSource{
		Name:        "SoyAtlas",
		Description: "RNA-Seq atlas of 14 tissues",
		Unit:        "TPM",
		BioProject:  "PRJNA208048",
		SRA:         "SRP012345",
		GEO:         "GSE29163",
		URL:         "https://example.org/atlas",
	}
	if source.Name != want.Name || source.Description != want.Description ||
		source.Unit != want.Unit || source.BioProject != want.BioProject ||
		source.SRA != want.SRA || source.GEO != want.GEO || source.URL != want.URL {
		t.Errorf("source = %+v, want the declared header fields", source)
	}
	if source.Publication == nil || source.Publication.PubMedID != 20607128 {
		t.Errorf("source publication = %+v, want the cited PMID 20607128", source.Publication)
	}
	if !source.Publication.Entities.Contains(source) {
		t.Error("the publication does not list the source among its citing entities")
	}

	if len(samples) != 2 {
		t.Fatalf("%v samples stored, want 2", len(samples))
	}
	if samples[0].Num != 1 || samples[0].Name != "young_leaf" || samples[0].Source != source {
		t.Errorf("first sample = %+v, want young_leaf number 1 of the source", samples[0])
	}

	// The two isoform rows of the first gene sum per sample: 1.5+0.5 in
	// young_leaf and 2.25+0 in root_tip.
	if len(values) != 4 {
		t.Fatalf("%v values stored, want 4", len(values))
	}
	if values[0].Value != 2.0 || values[0].Sample != samples[0] {
		t.Errorf("first value = %+v, want 2 in young_leaf", values[0])
	}
	if values[1].Value != 2.25 || values[1].Sample != samples[1] {
		t.Errorf("second value = %+v, want 2.25 in root_tip", values[1])
	}
	if values[0].Gene == nil || values[0].Gene.Name != "Glyma.01G000100" {
		t.Errorf("first value's gene = %+v, want Glyma.01G000100", values[0].Gene)
	}
	if values[2].Value != 3 || values[2].Gene == nil || values[2].Gene.Name != "Glyma.02G123400" {
		t.Errorf("third value = %+v, want 3 for Glyma.02G123400", values[2])
	}
}

func TestReadExpressionDeclaresNoSamples(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestConverter()

	const input = "ID\tSoyAtlas\n" +
		"Description\tRNA-Seq atlas\n"
	err := c.ReadExpression(ctx, "atlas.tsv", strings.NewReader(input))

	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatalf("ReadExpression returned %v, want a *RecordError", err)
	}
}

func TestReadExpressionValueCountMismatch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestConverter()

	const input = "ID\tSoyAtlas\n" +
		"Samples\t2\n" +
		"1\tyoung_leaf\tYoung leaf\n" +
		"2\troot_tip\tRoot tip\n" +
		"Glyma.01G000100.1\t1.5\n"
	err := c.ReadExpression(ctx, "atlas.tsv", strings.NewReader(input))

	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatalf("ReadExpression returned %v, want a *RecordError", err)
	}
	if re.Line != 5 {
		t.Errorf("error points at line %v, want 5", re.Line)
	}
}

func TestGeneName(t *testing.T) {
	for _, tt := range []struct {
		transcript string
		want       string
	}{
		{transcript: "Glyma.01G000100.1", want: "Glyma.01G000100"},
		{transcript: "Glyma.01G000100.12", want: "Glyma.01G000100"},
		{transcript: "Glyma.01G000100", want: "Glyma.01G000100"},
		{transcript: "Phvul.001G0001", want: "Phvul.001G0001"},
		{transcript: "nodots", want: "nodots"},
	} {
		if got := geneName(tt.transcript); got != tt.want {
			t.Errorf("geneName(%q) = %q, want %q", tt.transcript, got, tt.want)
		}
	}
}
