package geneticgraph

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-geneticgraph/go-geneticgraph")
var meter = otel.Meter("github.com/go-geneticgraph/go-geneticgraph")

const (
	// dropReason is the attribute key used to associate each dropped-record
	// measurement with the reason the Linker dropped it. This enables both a
	// collective view of all drops and a per-reason breakdown when a run drops
	// suspiciously many records.
	dropReason = "reason"
	// entityKind is the attribute key used to associate stored-entity measurements
	// with the kind of entity stored.
	entityKind = "kind"
)

var (
	// droppedRecords measures the number of relationship records the Linker dropped
	// because an endpoint was never registered.
	//
	// Each record is associated with the dropReason.
	droppedRecords metric.Int64Counter
	// storedEntities measures the number of entities submitted to the sink,
	// covering both eager stores and the final flush.
	//
	// Each record is associated with the entityKind.
	storedEntities metric.Int64Counter
	// flushDuration measures the duration of a single Registry flush, including the
	// time it took the sink to persist every deferred entity.
	flushDuration metric.Float64Histogram
	// flushFailures measures the number of flushes that failed mid-way, leaving the
	// sink with a partial load.
	flushFailures metric.Int64Counter
)

func init() {
	var err error
	droppedRecords, err = meter.Int64Counter(
		"load.dropped_records",
		metric.WithDescription("The number of relationship records dropped because an endpoint entity was never registered."),
	)
	if err != nil {
		panic("geneticgraph: failed to init 'load.dropped_records' instrument")
	}

	storedEntities, err = meter.Int64Counter(
		"load.stored_entities",
		metric.WithDescription("The number of entities submitted to the sink, by kind."),
	)
	if err != nil {
		panic("geneticgraph: failed to init 'load.stored_entities' instrument")
	}

	flushDuration, err = meter.Float64Histogram(
		"load.flush.duration",
		metric.WithDescription("The duration of a single registry flush, including sink round-trips for every deferred entity."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("geneticgraph: failed to init 'load.flush.duration' instrument")
	}

	flushFailures, err = meter.Int64Counter(
		"load.flush.failures",
		metric.WithDescription("The number of registry flushes that failed before storing every deferred entity."),
	)
	if err != nil {
		panic("geneticgraph: failed to init 'load.flush.failures' instrument")
	}
}

// countDrop records a single dropped relationship record under the given
// reason.
func countDrop(ctx context.Context, reason string) {
	// According to go.opentelemetry.io/otel/attribute package documentation,
	// attribute.Set should be used instead of attribute.KeyValue directly for
	// performance optimization.
	attrs := attribute.NewSet(attribute.String(dropReason, reason))
	droppedRecords.Add(ctx, 1, metric.WithAttributeSet(attrs))
}

// countStored records n entities of the given kind as submitted to the sink.
func countStored(ctx context.Context, kind string, n int) {
	attrs := attribute.NewSet(attribute.String(entityKind, kind))
	storedEntities.Add(ctx, int64(n), metric.WithAttributeSet(attrs))
}

// measureFlush measures a single Registry flush. If the flush succeeded, we
// record its duration. If it failed, we increment the failure counter.
func measureFlush(ctx context.Context, succeeded bool, d time.Duration) {
	if succeeded {
		// We use floating-point division here for higher precision (instead of the
		// Millisecond method).
		duration := float64(d) / float64(time.Millisecond)
		flushDuration.Record(ctx, duration)
	} else {
		flushFailures.Add(ctx, 1)
	}
}
