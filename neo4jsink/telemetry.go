package neo4jsink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-geneticgraph/go-geneticgraph/neo4jsink")
var meter = otel.Meter("github.com/go-geneticgraph/go-geneticgraph/neo4jsink")

var (
	// placeholderEnrichedCounter counts how many times storing an entity enriched
	// a placeholder node left behind by an earlier forward reference. This
	// counter helps us monitor how often loads rely on the placeholder mechanism.
	placeholderEnrichedCounter metric.Int64Counter
)

func init() {
	// We're initiating the metric instruments on the otel meter. Encounter an error
	// during an instrument's initialisation, triggering a panic. This scenario
	// should not occur, if it does, it is likely related to the attributes applied
	// on the instrument.
	var err error
	placeholderEnrichedCounter, err = meter.Int64Counter(
		"sink_placeholder_enriched_counter",
		metric.WithDescription("how many placeholder nodes created for forward references were enriched by a later store"),
	)
	if err != nil {
		s := fmt.Sprintf("sink: failed to init 'sink_placeholder_enriched_counter' instrument: %v", err)
		panic(s)
	}
}

func countPlaceholderEnriched(ctx context.Context, label string) {
	placeholderEnrichedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity.kind", label),
	))
}
