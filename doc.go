// Package geneticgraph provides a library for assembling genetic and genomic
// entities into a consistent graph; The graph is built by digesting records
// from heterogeneous sources (a chado relational database, curated flat files)
// in order to produce a single resolved view of maps, markers, and traits.
//
// Specifically, the package resolves every mention of an entity across sources
// to a single canonical instance (identity resolution), accumulates attributes
// and relationships onto those instances across multiple passes, and finally
// persists the resolved entities to a sink exactly once.
//
// Each entity is identified by a natural key within its kind (e.g. a marker
// name, a chado feature id) and receives an opaque ItemID from the sink when it
// is stored.
//
// This package exposes the Registry (identity maps), the Linker (relationship
// resolution), and the ItemWriter boundary that sinks implement. Source readers
// live in the chado and flatfile subpackages; the neo4jsink subpackage persists
// the resolved graph to Neo4j.
package geneticgraph
