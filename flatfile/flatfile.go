// Package flatfile loads genetic-graph entities from the tab-separated flat
// files that curators publish alongside chado exports: marker placements, QTL
// to marker associations, trait ontology annotations, genomic marker
// positions in GFF, and expression matrices.
//
// All readers share one Converter, so entities mentioned by several files
// resolve to the same instances before the final flush.
package flatfile

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-geneticgraph/go-geneticgraph"
)

// A Converter accumulates entities from flat files into a shared registry.
// Run each file through its reader, then flush the registry to the writer.
//
// A Converter is not safe for concurrent use; a load run reads its files
// sequentially.
type Converter struct {
	Registry *geneticgraph.Registry
	Linker   *geneticgraph.Linker
	Writer   geneticgraph.ItemWriter
}

// NewConverter returns a Converter with a fresh registry, linking and storing
// through the given writer.
func NewConverter(w geneticgraph.ItemWriter) *Converter {
	r := geneticgraph.NewRegistry()
	return &Converter{
		Registry: r,
		Linker:   geneticgraph.NewLinker(r, w),
		Writer:   w,
	}
}

// A RecordError reports a malformed record, pointing at the file and line
// that carried it. Malformed records fail the load: unlike a missing
// cross-reference, a record that cannot be parsed means the file itself is
// broken and silently skipping it would hide the breakage.
type RecordError struct {
	File   string
	Line   int
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%v:%v: %v", e.File, e.Line, e.Reason)
}

func recordError(file string, line int, format string, args ...any) error {
	return &RecordError{File: file, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// TaxonFromFilename extracts the NCBI taxonomy id that curators encode as the
// suffix of a data file's name, e.g. "soybean-qtlmarkers_3847.txt".
func TaxonFromFilename(name string) (string, error) {
	base := path.Base(name)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	i := strings.LastIndex(base, "_")
	if i < 0 || i == len(base)-1 {
		return "", fmt.Errorf("filename %v does not end with a _taxonid suffix", name)
	}
	return base[i+1:], nil
}

// lines iterates the reader line by line, calling fn with the one-based line
// number and the line's text. Blank lines are skipped; comment handling is
// format specific and left to the callers.
func lines(r io.Reader, fn func(n int, text string) error) error {
	scanner := bufio.NewScanner(r)
	// Expression matrices carry one value per sample and easily exceed the
	// default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := fn(n, text); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// fields splits a record into its tab-separated fields, trimming the
// surrounding whitespace curators leave behind.
func fields(text string) []string {
	parts := strings.Split(text, "\t")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
