package sinktest

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// A check is any function that returns unexpected problems with the graph a
// sink has written.
type check func(ctx context.Context, g Inspector) (problem string)

// Checks that the graph holds exactly the expected number of nodes with the
// given label.
func nodes(label string, want int) check {
	return func(ctx context.Context, g Inspector) string {
		got, err := g.Nodes(ctx, label)
		if err != nil {
			return fmt.Sprintf("Nodes(%v) failed: %v", label, err)
		}
		if got != want {
			return fmt.Sprintf("Nodes(%v) = %v, want %v", label, got, want)
		}
		return ""
	}
}

// Checks that the graph holds exactly the expected number of reference edges
// between nodes of the two labels.
func edges(fromLabel, toLabel string, want int) check {
	return func(ctx context.Context, g Inspector) string {
		got, err := g.Edges(ctx, fromLabel, toLabel)
		if err != nil {
			return fmt.Sprintf("Edges(%v, %v) failed: %v", fromLabel, toLabel, err)
		}
		if got != want {
			return fmt.Sprintf("Edges(%v, %v) = %v, want %v", fromLabel, toLabel, got, want)
		}
		return ""
	}
}

// Checks a single business property of the keyed node identified by label and
// natural key. Pass a nil want to check the property is absent, which is how
// the suite distinguishes a placeholder from an enriched node.
func property(label, key, prop string, want any) check {
	return func(ctx context.Context, g Inspector) string {
		got, err := g.Property(ctx, label, key, prop)
		if err != nil {
			return fmt.Sprintf("Property(%v, %v, %v) failed: %v", label, key, prop, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			return fmt.Sprintf("Property(%v, %v, %v) mismatch (-want +got):\n%v", label, key, prop, diff)
		}
		return ""
	}
}
