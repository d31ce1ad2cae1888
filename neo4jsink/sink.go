// Package neo4jsink persists resolved genetic-graph entities in a Neo4j graph
// database.
//
// The Sink implements [geneticgraph.ItemWriter]. Keyed entities (those with a
// natural key, see describe.go) are MERGEd by their key, so storing the same
// entity across loads converges on a single node. Immutable leaves (positions,
// ranges, annotations, locations, expression values) are CREATEd and addressed
// by their neo4j element id afterwards.
//
// References between entities become REFERENCES edges. A stored entity may
// reference a keyed entity that has not been stored yet; in that case the sink
// MERGEs a placeholder node carrying only the natural key, which is enriched
// with its full attributes when the referenced entity is eventually stored.
// This is what lets a flush store entity kinds in a fixed order without
// worrying about reference direction.
package neo4jsink

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/danielorbach/go-component"
	"github.com/go-geneticgraph/go-geneticgraph"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// A Sink stores entities in a single Neo4j database.
//
// A Sink is safe for use by a single loading goroutine; it opens a new session
// per stored entity to ensure transactional isolation and to prevent any state
// carryover between different store executions.
type Sink struct {
	driver   neo4j.DriverWithContext // Connection to the neo4j server/cluster.
	database string                  // Target database name that identifies the specific underlying neo4j graph.
}

// NewSink returns a Sink storing entities in the given database. The database
// should have been prepared by BootstrapDatabase. The caller retains ownership
// of the driver and is responsible for closing it.
func NewSink(driver neo4j.DriverWithContext, database string) *Sink {
	return &Sink{driver: driver, database: database}
}

// Store implements [geneticgraph.ItemWriter]. It writes the entity's node and
// all its outgoing edges in a single transaction, which is rolled back should
// any statement fail, so a stored entity is never half-visible.
//
// The function panics in two scenarios:
//
//   - The underlying graph has been corrupted, detected by Cypher statements
//     affecting more rows than the data model permits.
//
//   - A developer changed a Cypher query, but missed some code that relied on
//     that query. This is indicated by errPropertyNotFound or
//     unexpectedPropertyTypeError, causing this function to issue the panic
//     directive.
func (s *Sink) Store(ctx context.Context, e geneticgraph.Entity) (geneticgraph.ItemID, error) {
	node := describe(e)
	ctx, span := tracer.Start(ctx, "Store", trace.WithAttributes(
		attribute.String("neo4j.database", s.database),
		attribute.String("entity.kind", node.Label),
	))
	defer span.End()
	logger := component.Logger(ctx).With("neo4j.database", s.database)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Error("Failed to close session", "error", err, "mode", "write")
		}
	}()

	var id string
	// We use write transactions because the neo4j SDK can provide transaction
	// management features such as retries, error handling, and deadlock resolution.
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stored, enriched, err := storeNode(ctx, tx, node)
		if err != nil {
			return nil, fmt.Errorf("store node: %w", err)
		}
		id = stored
		if enriched {
			countPlaceholderEnriched(ctx, node.Label)
		}
		var edgeErr error
		geneticgraph.VisitReferences(e, func(ref geneticgraph.Entity) bool {
			if edgeErr = storeEdge(ctx, tx, id, ref); edgeErr != nil {
				edgeErr = fmt.Errorf("store edge to %v: %w", geneticgraph.KindOf(ref), edgeErr)
				return false
			}
			return true
		})
		return nil, edgeErr
	})
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "", err
	} else if errors.Is(err, errPropertyNotFound) || errors.As(err, &unexpectedPropertyTypeError{}) {
		logger.Error("A Cypher query was modified without care", "error", err)
		panic(fmt.Errorf("seek developer attention: neo4j cypher query: %w", err))
	} else if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("neo4j execute: %w", err)
	}
	return geneticgraph.ItemID(id), nil
}

// storeNode writes the node itself: a MERGE by natural key for keyed entities,
// a plain CREATE for unkeyed leaves. It returns the node's element id and
// whether the MERGE enriched a placeholder left behind by an earlier forward
// reference.
func storeNode(ctx context.Context, tx neo4j.ManagedTransaction, node rawNode) (id string, enriched bool, err error) {
	if node.Key == "" {
		query := `
			CREATE (s:` + node.Label + `)
			SET s = $props, s._created_at = datetime(), s._last_modified = datetime()
			RETURN elementId(s) AS id
		`
		record, err := runSingle(ctx, tx, query, map[string]any{"props": node.Props})
		if err != nil {
			return "", false, err
		}
		id, err = getRecordProperty[string](record, "id")
		return id, false, err
	}

	query := `
		MERGE (s:` + node.Label + ` {_naturalKey: $key})
		ON CREATE SET s._created_at = datetime()
		WITH s, s._placeholder IS NOT NULL AS enriched
		SET s += $props, s._last_modified = datetime()
		REMOVE s._placeholder
		RETURN elementId(s) AS id, count(s) AS nodes, enriched
	`
	record, err := runSingle(ctx, tx, query, map[string]any{
		"key":   node.Key,
		"props": node.Props,
	})
	if err != nil {
		return "", false, err
	}

	nodes, err := getRecordProperty[int64](record, "nodes")
	if err != nil {
		return "", false, fmt.Errorf("get nodes: %w", err)
	}
	// A single entity is represented by a single node in the underlying graph.
	// Storing it should touch exactly one node (either the key is present in the
	// graph, or it isn't). If the query touches more than a single node, the
	// underlying graph has lost its integrity, so we cannot continue to operate
	// on it.
	if nodes != 1 {
		panicWithCorruptedGraph(ctx, fmt.Sprintf("store-node modified %v nodes instead of 1", nodes))
	}

	id, err = getRecordProperty[string](record, "id")
	if err != nil {
		return "", false, fmt.Errorf("get id: %w", err)
	}
	enriched, err = getRecordProperty[bool](record, "enriched")
	if err != nil {
		return "", false, fmt.Errorf("get enriched: %w", err)
	}
	return id, enriched, nil
}

// storeEdge connects the node identified by fromID to the node representing
// the given referenced entity.
//
// A reference to an already-stored entity matches its node by element id. A
// forward reference to a keyed entity MERGEs a placeholder node by the natural
// key, to be enriched when the referenced entity is stored. A forward
// reference to an unkeyed leaf cannot be represented and indicates a bug in
// the calling load, so the function panics.
func storeEdge(ctx context.Context, tx neo4j.ManagedTransaction, fromID string, ref geneticgraph.Entity) error {
	target := describe(ref)

	var record *neo4j.Record
	var err error
	if stored := ref.StoredID(); !stored.IsZero() {
		query := `
			MATCH (s) WHERE elementId(s) = $from
			MATCH (d) WHERE elementId(d) = $to
			MERGE (s)-[e:REFERENCES]->(d)
			ON CREATE SET e._created_at = datetime()
			SET e._last_modified = datetime()
			RETURN count(e) AS edges
		`
		record, err = runSingle(ctx, tx, query, map[string]any{
			"from": fromID,
			"to":   string(stored),
		})
	} else if target.Key != "" {
		query := `
			MATCH (s) WHERE elementId(s) = $from
			MERGE (d:` + target.Label + ` {_naturalKey: $key})
			ON CREATE SET d._created_at = datetime(), d._placeholder = true
			SET d._last_modified = datetime()
			MERGE (s)-[e:REFERENCES]->(d)
			ON CREATE SET e._created_at = datetime()
			SET e._last_modified = datetime()
			RETURN count(e) AS edges
		`
		record, err = runSingle(ctx, tx, query, map[string]any{
			"from": fromID,
			"key":  target.Key,
		})
	} else {
		// Unkeyed leaves are stored eagerly at creation, before anything links to
		// them. An unstored, unkeyed reference means a load linked a leaf it never
		// stored.
		panic(fmt.Errorf("seek developer attention: neo4jsink: reference to an unstored %v leaf", target.Label))
	}
	if err != nil {
		return err
	}

	edges, err := getRecordProperty[int64](record, "edges")
	if err != nil {
		return fmt.Errorf("get edges: %w", err)
	}
	// A reference between two entities is represented by a single edge in the
	// underlying graph (either it is present, or it isn't). If the query touches
	// more than a single edge, the underlying graph has lost its integrity, so
	// we cannot continue to operate on it.
	if edges != 1 {
		panicWithCorruptedGraph(ctx, fmt.Sprintf("store-edge modified %v edges instead of 1", edges))
	}
	return nil
}

// runSingle runs the given query and returns its single result record.
func runSingle(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (*neo4j.Record, error) {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("run cypher: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("query single result: %w", err)
	}
	return record, nil
}

// We modify the underlying neo4j graph database in a way that prompts us when
// the graph violates some of our basic constraints.
//
// When we suspect the graph has lost its integrity, we may no longer operate on
// it. In which case, we must immediately stop all operations. This is achieved
// with a panic preceded by telemetry signals (traces, metrics, and logs) to
// bring the situation to our immediate attention.
func panicWithCorruptedGraph(ctx context.Context, reason string) {
	component.Logger(ctx).ErrorContext(ctx, "Encountered corrupted neo4j graph that violates the load invariants", "error", reason)
	trace.SpanFromContext(ctx).SetStatus(codes.Error, reason)
	panic(fmt.Errorf("neo4j graph violates load invariants: %v", reason))
}

// An errPropertyNotFound occurs when a property of a query result is missing.
//
// When encountering this error, it most likely occurs when changing a Cypher
// query without modifying the surrounding code properly. Expect a panic
// eventually.
var errPropertyNotFound = errors.New("property not found")

// An unexpectedPropertyTypeError occurs when a property of a query result has
// a runtime type that is different from the expected type. The error message
// contains the effective type of the property at runtime.
//
// When encountering this error, it most likely occurs when changing a Cypher
// query without modifying dependent code properly. Expect a panic eventually.
type unexpectedPropertyTypeError struct {
	Type reflect.Type // Effective type encountered at runtime.
}

func (e unexpectedPropertyTypeError) Error() string {
	return "unexpected property type: " + e.Type.String()
}

// The recordProperty interface defines generic constraints for supported
// values by getRecordProperty.
//
// This is a subset of all types supported by the neo4j package because listing
// all of them would be troublesome. When a new type is necessary, developers
// can simply add it to the list here.
type recordProperty interface {
	int64 | string | bool
}

func getRecordProperty[T recordProperty](record *neo4j.Record, key string) (value T, err error) {
	prop, exists := record.Get(key)
	if !exists {
		return value, errPropertyNotFound
	}
	v, ok := prop.(T)
	if !ok {
		return value, unexpectedPropertyTypeError{Type: reflect.TypeOf(prop)}
	}
	return v, nil
}
