/*
Package sinktest provides a suite of tests designed to assess entity sinks
(e.g. in-memory, neo4j).

The tests operate on the specific sink via the [geneticgraph.ItemWriter]
interface and verify the stored graph through the Inspector interface, which
each sink's test must implement over its own storage.

Call sinktest.Run in its own test to invoke the test-suite:

	func TestSink(t *testing.T) {
		sink := NewSink(driver, "loads") // Create the sink under test.
		// Implement Inspector over the same storage the sink writes to.
		sinktest.Run(t, sink, inspector{driver: driver, database: "loads"})
	}

The test cases in this suite focus on the sink contract:

  - Keyed entities converge on a single node per natural key.
  - Forward references materialise as placeholders, enriched later.
  - References become edges; immutable leaves are never merged.

So, specific sinks are encouraged to perform additional tests which are
specific to the underlying storage.
*/
package sinktest

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/go-geneticgraph/go-geneticgraph"
)

// An Inspector reads the graph a sink has written, for verification by this
// suite. Implementations query whatever storage the tested sink writes to.
type Inspector interface {
	// Nodes counts the stored nodes carrying the given entity-kind label.
	Nodes(ctx context.Context, label string) (int, error)
	// Edges counts the reference edges from nodes of one label to nodes of
	// another.
	Edges(ctx context.Context, fromLabel, toLabel string) (int, error)
	// Property returns the named business property of the keyed node identified
	// by label and natural key, or nil when the node has no such property.
	Property(ctx context.Context, label, key, property string) (any, error)
}

type testCase struct {
	// Subtest name.
	name string
	// A path leading to the test-case's file and line in the source code.
	location string
	// store executes a single modification on the tested sink.
	store func(ctx context.Context, w geneticgraph.ItemWriter) error
	// A list of checks to run against the stored graph after store returns.
	checks []check
}

// Run executes a sequence of test cases on a sink using the given
// [geneticgraph.ItemWriter] and Inspector. It verifies that the sink correctly
// stores entities and their references.
//
// The testing process requires all cases to execute in a strict sequence
// because the state of the graph at the end of one test is the starting point
// for the next. This sequential execution is crucial in evaluating whether the
// state progresses correctly over a series of stores, akin to the real-world
// use of a sink over a load run.
func Run(t *testing.T, w geneticgraph.ItemWriter, g Inspector) {
	t.Helper()

	// We deliberately use the background context because this test-suite does not
	// check performance. Also, sink implementations should not depend on specific
	// context values. When this assumption changes, this test-suite will have
	// changes accordingly as well.
	ctx := context.Background()

	// All test-cases run in-order, on the same sink, because each case's graph
	// checks depend on the previous stores. That is, a test case cannot run if
	// the previous case had failed.
	for _, c := range newCases() {
		// We encourage developers to read the source code directly, especially when
		// failures are not clear enough.
		t.Logf("Read the source for test-case %v at %v", c.name, c.location)
		if err := c.store(ctx, w); err != nil {
			t.Fatalf("Store(%v) failed: %v", c.name, err)
		}
		for _, check := range c.checks {
			if problem := check(ctx, g); problem != "" {
				t.Errorf("Check graph of %v: %v", c.name, problem)
			}
		}
	}
}

// newCases builds the suite's test cases together with the fixture entities
// they share. The cases are rebuilt for every Run so that the persistence
// state carried by the entities starts fresh for each tested sink.
func newCases() []testCase {
	org := &geneticgraph.Organism{TaxonID: "3847"}
	group := &geneticgraph.LinkageGroup{Name: "A1", Organism: org}
	position := &geneticgraph.LinkageGroupPosition{Position: 12.5, Group: group}
	marker := &geneticgraph.GeneticMarker{Name: "Sat_123", Organism: org}
	marker.Positions = append(marker.Positions, position)

	return []testCase{
		{
			name:     "store-keyed-entity",
			location: locateSource(),
			store: func(ctx context.Context, w geneticgraph.ItemWriter) error {
				return geneticgraph.Store(ctx, w, org)
			},
			checks: []check{
				nodes("Organism", 1),
				property("Organism", "3847", "taxonId", "3847"),
			},
		},
		{
			name:     "same-key-converges-on-one-node",
			location: locateSource(),
			store: func(ctx context.Context, w geneticgraph.ItemWriter) error {
				// A second instance with the same identity, as a repeated load would
				// produce, must not create a second node.
				return geneticgraph.Store(ctx, w, &geneticgraph.Organism{TaxonID: "3847"})
			},
			checks: []check{
				nodes("Organism", 1),
			},
		},
		{
			name:     "forward-reference-creates-placeholder",
			location: locateSource(),
			store: func(ctx context.Context, w geneticgraph.ItemWriter) error {
				// The position references a linkage group that has not been stored yet.
				return geneticgraph.Store(ctx, w, position)
			},
			checks: []check{
				nodes("LinkageGroupPosition", 1),
				nodes("LinkageGroup", 1),
				edges("LinkageGroupPosition", "LinkageGroup", 1),
				// The placeholder carries only the natural key, not the group's
				// attributes.
				property("LinkageGroup", "3847:A1", "name", nil),
			},
		},
		{
			name:     "store-enriches-placeholder",
			location: locateSource(),
			store: func(ctx context.Context, w geneticgraph.ItemWriter) error {
				return geneticgraph.Store(ctx, w, group)
			},
			checks: []check{
				nodes("LinkageGroup", 1),
				property("LinkageGroup", "3847:A1", "name", "A1"),
			},
		},
		{
			name:     "references-become-edges",
			location: locateSource(),
			store: func(ctx context.Context, w geneticgraph.ItemWriter) error {
				return geneticgraph.Store(ctx, w, marker)
			},
			checks: []check{
				nodes("GeneticMarker", 1),
				edges("GeneticMarker", "Organism", 1),
				edges("GeneticMarker", "LinkageGroupPosition", 1),
			},
		},
		{
			name:     "unkeyed-leaves-never-merge",
			location: locateSource(),
			store: func(ctx context.Context, w geneticgraph.ItemWriter) error {
				// An identical placement is a distinct fact; the sink must not collapse
				// it into the previously stored leaf.
				return geneticgraph.Store(ctx, w, &geneticgraph.LinkageGroupPosition{Position: 12.5, Group: group})
			},
			checks: []check{
				nodes("LinkageGroupPosition", 2),
				edges("LinkageGroupPosition", "LinkageGroup", 2),
			},
		},
	}
}

// Call this function to set the location of every test-case in the source
// file. The returned string is used to guide developers of sinks to the
// appropriate test-case.
func locateSource() (path string) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		panic("runtime.Caller failed")
	}
	return fmt.Sprintf("%v:%v", file, line)
}
