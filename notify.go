package geneticgraph

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

// Register the notification message types using gob.Register(). This is
// required to identify the type of the notified event after decoding it using
// gob.
func init() {
	gob.Register(LoadChanged{})
	gob.Register(LoadRequested{})
	gob.Register(KindStored{})
}

// LoadChanged notifies that a load run has finished and the sink now reflects
// a new resolved graph. The message contains the per-kind counts of entities
// stored by the run and the per-reason counts of records it dropped.
type LoadChanged struct {
	// Load names the configured load that ran (e.g. "soybase-chado").
	Load string
	// Stored counts the entities submitted to the sink, by kind.
	Stored map[string]int
	// Dropped counts the relationship records silently dropped, by reason.
	Dropped map[string]int
	// The time, in UTC, the load finished. The information in this message is
	// accurate up to this timestamp, not a moment afterwards.
	Timestamp time.Time
}

// IsEmpty returns true if the load stored nothing, meaning the sink was left
// unchanged.
func (c LoadChanged) IsEmpty() bool {
	for _, n := range c.Stored {
		if n > 0 {
			return false
		}
	}
	return true
}

// LoadRequested asks a loader process to run the named load. It is typically
// published by a scheduler or an operator tool.
type LoadRequested struct {
	Load string
	// The time, in UTC, the request was issued.
	Timestamp time.Time
}

// KindStored notifies about the entities of a single kind stored by a load
// run. A Notifier fans one of these out per kind alongside the LoadChanged
// summary, so downstream consumers interested in a single kind need not
// decode the whole summary.
type KindStored struct {
	Load      string
	Kind      string
	Count     int
	Timestamp time.Time
}

// A Notifier publishes load notifications to a pubsub topic.
type Notifier struct {
	load string
	sink *pubsub.Topic
}

// NewNotifier returns a Notifier publishing notifications about the named
// load to the given topic.
func NewNotifier(load string, sink *pubsub.Topic) *Notifier {
	return &Notifier{load: load, sink: sink}
}

// LoadFinished publishes the LoadChanged summary followed by one KindStored
// message per stored kind. The per-kind messages are published concurrently;
// LoadFinished returns after all of them were accepted by the pubsub service,
// or with the first error encountered.
func (n *Notifier) LoadFinished(ctx context.Context, changed LoadChanged) error {
	ctx, span := tracer.Start(ctx, "Notifier.LoadFinished", trace.WithAttributes(
		attribute.String("load", n.load),
	))
	defer span.End()
	logger := component.Logger(ctx).With(slog.String("load", n.load))

	if changed.IsEmpty() {
		logger.Info("The load stored no entities, notification skipped")
		return nil
	}

	if err := n.send(ctx, changed, nil); err != nil {
		err := fmt.Errorf("send load summary: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for kind, count := range changed.Stored {
		msg := KindStored{
			Load:      n.load,
			Kind:      kind,
			Count:     count,
			Timestamp: changed.Timestamp,
		}
		g.Go(func() error {
			// The kind is included as metadata on the message to enable key-based
			// partitioning on brokers (e.g. Kafka) that preserve per-key ordering.
			// Consumers of a single kind then see its counts in load order.
			return n.send(ctx, msg, map[string]string{"kind": kind})
		})
	}

	// Ensures that any goroutines started by the error group are allowed to finish
	// and that their errors are handled before the function can return, thus
	// maintaining robust error tracking.
	if err := g.Wait(); err != nil {
		return fmt.Errorf("send per-kind notifications: %w", err)
	}
	logger.Info("Load notifications published successfully")

	return nil
}

func (n *Notifier) send(ctx context.Context, event any, metadata map[string]string) error {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(&event); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadata["load"] = n.load
	if err := n.sink.Send(ctx, &pubsub.Message{Body: b.Bytes(), Metadata: metadata}); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// A Loader runs one complete load into the sink and returns its summary.
type Loader func(ctx context.Context) (LoadChanged, error)

// RunOnRequest returns a component.Proc that subscribes to LoadRequested
// messages and runs the given Loader for each one, publishing the resulting
// LoadChanged through the given Notifier.
//
// Requests naming a different load are acknowledged and skipped, which allows
// several loader processes to share a request topic.
func RunOnRequest(source *pubsub.Subscription, n *Notifier, load Loader) component.Proc {
	return func(l *component.L) {
		for l.Continue() {
			msg, err := source.Receive(l.Context())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					// we're shutting down
					return
				}
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			// always ack, even if we fail to decode.
			// otherwise, we might get stuck processing
			// the same failed message
			msg.Ack()

			var event any
			if err := gob.NewDecoder(bytes.NewReader(msg.Body)).Decode(&event); err != nil {
				l.Fatal(fmt.Errorf("decode: %w", err))
			}
			request, ok := event.(LoadRequested)
			if !ok {
				l.Logf("Skipping unexpected %T message on the request subscription", event)
				continue
			}
			if request.Load != n.load {
				continue
			}

			changed, err := load(l.Context())
			if err != nil {
				// A failed load leaves the sink partially written. The run will be repeated
				// from scratch on the next request; resolving is idempotent, so the repeat
				// converges to the same graph.
				l.Fatal(fmt.Errorf("load %v: %w", request.Load, err))
			}
			if err := n.LoadFinished(l.Context(), changed); err != nil {
				l.Fatal(fmt.Errorf("notify: %w", err))
			}
		}
	}
}

// FormatLoad returns a human-readable representation of a load summary. The
// indent string is prepended to each line.
func FormatLoad(changed LoadChanged, indent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, indent+"load %v finished at %v\n", changed.Load, changed.Timestamp.Format(time.RFC3339))
	for _, kind := range sortedKeys(changed.Stored) {
		fmt.Fprintf(&b, indent+"+ %v %v\n", changed.Stored[kind], kind)
	}
	for _, reason := range sortedKeys(changed.Dropped) {
		fmt.Fprintf(&b, indent+"- %v dropped: %v\n", changed.Dropped[reason], reason)
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
