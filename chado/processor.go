// Package chado loads genetic maps, linkage groups, markers, and QTLs from a
// chado Postgres database into a genetic graph sink.
//
// Chado (<https://gmod.org/wiki/Chado>) stores every biological feature in a
// single feature table typed by controlled-vocabulary terms, and expresses
// relationships through auxiliary tables (featurepos, featureloc,
// feature_relationship). The Load function reads those tables pass by pass,
// resolving each foreign key through a geneticgraph.Registry so that the many
// rows mentioning a feature converge on a single entity.
package chado

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/go-geneticgraph/go-geneticgraph"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/go-geneticgraph/go-geneticgraph/chado")
var meter = otel.Meter("github.com/go-geneticgraph/go-geneticgraph/chado")

var (
	// rowsReadCounter counts the chado rows read by each pass of a load. Compare
	// it against the stored and dropped counts of the load summary to spot
	// passes that read far more than they resolve.
	rowsReadCounter metric.Int64Counter
)

func init() {
	// We're initiating the metric instruments on the otel meter. Encounter an error
	// during an instrument's initialisation, triggering a panic. This scenario
	// should not occur, if it does, it is likely related to the attributes applied
	// on the instrument.
	var err error
	rowsReadCounter, err = meter.Int64Counter(
		"chado_rows_read_counter",
		metric.WithDescription("how many chado rows each pass of a load has read"),
	)
	if err != nil {
		s := fmt.Sprintf("chado: failed to init 'chado_rows_read_counter' instrument: %v", err)
		panic(s)
	}
}

// Open connects to the chado database at the given DSN using the pgx driver.
// The caller owns the returned handle and is responsible for closing it.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chado database: %w", err)
	}
	return db, nil
}

// A PubMedSearcher resolves the PubMed id of a publication from its citation
// attributes. Load uses it on a best-effort basis: lookup failures are logged
// and otherwise ignored, because a missing PubMed id must never fail a load.
type PubMedSearcher interface {
	LookupID(ctx context.Context, journal, year, firstAuthor string) (int, error)
}

// Config parameterises a single chado load.
type Config struct {
	// Load names the load in its LoadChanged summary.
	Load string
	// DB is the chado database, usually opened by Open.
	DB *sql.DB
	// Writer receives the resolved entities.
	Writer geneticgraph.ItemWriter
	// Organisms selects which chado organisms to load, mapping their organism_id
	// values to organism identities. Features of organisms outside this map are
	// not loaded.
	Organisms map[int]geneticgraph.OrganismKey
	// PubMed optionally resolves missing PubMed ids for publications. May be
	// nil, in which case publications keep whatever the pub table carries.
	PubMed PubMedSearcher
}

// Load runs one complete load: it registers every feature of interest, reads
// the relationship tables pass by pass, flushes the registry to the writer,
// and returns the load summary. Load implements [geneticgraph.Loader] when
// bound to a Config via a closure.
func Load(ctx context.Context, cfg Config) (changed geneticgraph.LoadChanged, err error) {
	ctx, span := tracer.Start(ctx, "chado.Load", trace.WithAttributes(
		attribute.String("load", cfg.Load),
	))
	defer span.End()

	registry := geneticgraph.NewRegistry()
	p := &processor{
		cfg:      cfg,
		registry: registry,
		linker:   geneticgraph.NewLinker(registry, cfg.Writer),
	}

	passes := []struct {
		name string
		run  func(context.Context) error
	}{
		{"features", p.loadFeatures},
		{"maps", p.loadMaps},
		{"map publications", p.loadMapPublications},
		{"trait publications", p.loadTraitPublications},
		{"positions", p.loadPositions},
		{"spans", p.loadSpans},
		{"associations", p.loadAssociations},
	}
	for _, pass := range passes {
		if err := pass.run(ctx); err != nil {
			err = fmt.Errorf("load %v: %w", pass.name, err)
			span.SetStatus(codes.Error, err.Error())
			return geneticgraph.LoadChanged{}, err
		}
	}

	stored, err := registry.Flush(ctx, cfg.Writer)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return geneticgraph.LoadChanged{}, fmt.Errorf("flush: %w", err)
	}
	return geneticgraph.LoadChanged{
		Load:      cfg.Load,
		Stored:    stored,
		Dropped:   p.linker.Drops().Counts(),
		Timestamp: time.Now().UTC(),
	}, nil
}

type processor struct {
	cfg      Config
	registry *geneticgraph.Registry
	linker   *geneticgraph.Linker
}

// Registry keys for chado entities are their table primary keys, rendered as
// decimal strings. Feature, featuremap, and pub ids live in separate per-kind
// registry maps, so the plain rendering cannot collide across kinds.
func featureKey(id int) string { return strconv.Itoa(id) }
func mapKey(id int) string     { return strconv.Itoa(id) }
func pubKey(id int) string     { return strconv.Itoa(id) }

// The feature types of interest, as named by the sequence ontology terms chado
// types features with.
var featureTypes = []string{"linkage_group", "genetic_marker", "QTL"}

// loadFeatures registers every linkage group, genetic marker, and QTL of the
// configured organisms, keyed by feature_id. Later passes resolve relationship
// rows against these registrations; a foreign key pointing outside this set is
// silently dropped by the linker.
func (p *processor) loadFeatures(ctx context.Context) error {
	const query = `
		SELECT f.feature_id, f.name
		FROM feature f
		JOIN cvterm t ON t.cvterm_id = f.type_id
		JOIN cv ON cv.cv_id = t.cv_id
		WHERE f.organism_id = $1 AND cv.name = 'sequence' AND t.name = $2
	`
	var count int64
	for orgID, key := range p.cfg.Organisms {
		organism := p.registry.Organism(key)
		for _, kind := range featureTypes {
			n, err := p.scanFeatures(ctx, query, orgID, kind, organism)
			if err != nil {
				return fmt.Errorf("organism %v: %v features: %w", orgID, kind, err)
			}
			count += n
		}
	}
	p.countRows(ctx, "features", count)
	component.Logger(ctx).Info("Registered chado features", "count", count)
	return nil
}

func (p *processor) scanFeatures(ctx context.Context, query string, orgID int, kind string, organism *geneticgraph.Organism) (int64, error) {
	rows, err := p.cfg.DB.QueryContext(ctx, query, orgID, kind)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id int
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return count, fmt.Errorf("scan: %w", err)
		}
		switch kind {
		case "linkage_group":
			g := p.registry.LinkageGroup(featureKey(id))
			g.Name = name.String
			g.Organism = organism
		case "genetic_marker":
			m := p.registry.GeneticMarker(featureKey(id))
			m.Name = name.String
			m.Organism = organism
		case "QTL":
			q := p.registry.QTL(featureKey(id))
			q.Name = name.String
			q.Organism = organism
		}
		count++
	}
	return count, rows.Err()
}

// loadMaps registers every genetic map of the configured organisms, keyed by
// featuremap_id. Chado maps do not reference an organism directly; a map
// belongs to an organism through the linkage groups positioned on it, so the
// query walks featuremap to the organism of its map features.
func (p *processor) loadMaps(ctx context.Context) error {
	const query = `
		SELECT DISTINCT fm.featuremap_id, fm.name, fm.description
		FROM featuremap fm
		JOIN featurepos fp ON fp.featuremap_id = fm.featuremap_id
		JOIN feature f ON f.feature_id = fp.map_feature_id
		WHERE f.organism_id = $1
	`
	var count int64
	for orgID, key := range p.cfg.Organisms {
		organism := p.registry.Organism(key)
		n, err := p.scanMaps(ctx, query, orgID, organism)
		if err != nil {
			return fmt.Errorf("organism %v maps: %w", orgID, err)
		}
		count += n
	}
	p.countRows(ctx, "maps", count)
	component.Logger(ctx).Info("Registered chado genetic maps", "count", count)
	return nil
}

func (p *processor) scanMaps(ctx context.Context, query string, orgID int, organism *geneticgraph.Organism) (int64, error) {
	rows, err := p.cfg.DB.QueryContext(ctx, query, orgID)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id int
		var name, description sql.NullString
		if err := rows.Scan(&id, &name, &description); err != nil {
			return count, fmt.Errorf("scan: %w", err)
		}
		p.registerMap(id, name.String, description.String, organism)
		count++
	}
	return count, rows.Err()
}

// registerMap resolves one featuremap row onto its canonical GeneticMap. Map
// units are invariably centimorgans in these databases.
func (p *processor) registerMap(id int, name, description string, organism *geneticgraph.Organism) *geneticgraph.GeneticMap {
	gm := p.registry.GeneticMap(mapKey(id))
	gm.Name = name
	gm.Description = description
	gm.Unit = "cM"
	gm.Organism = organism
	return gm
}

const pubColumns = `p.pub_id, p.title, p.volume, p.series_name, p.issue, p.pyear, p.pages, p.uniquename`

func scanPub(rows *sql.Rows, extra ...any) (pubID int, row PubRow, err error) {
	var title, volume, series, issue, year, pages, uniquename sql.NullString
	dest := append(extra, &pubID, &title, &volume, &series, &issue, &year, &pages, &uniquename)
	if err := rows.Scan(dest...); err != nil {
		return 0, PubRow{}, err
	}
	return pubID, PubRow{
		Title:      title.String,
		Volume:     volume.String,
		SeriesName: series.String,
		Issue:      issue.String,
		Year:       year.String,
		Pages:      pages.String,
		Uniquename: uniquename.String,
	}, nil
}

// loadMapPublications cites each genetic map's publications, as declared by
// the featuremap_pub table.
func (p *processor) loadMapPublications(ctx context.Context) error {
	rows, err := p.cfg.DB.QueryContext(ctx, `
		SELECT fp.featuremap_id, `+pubColumns+`
		FROM featuremap_pub fp
		JOIN pub p ON p.pub_id = fp.pub_id
	`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var featureMapID int
		pubID, row, err := scanPub(rows, &featureMapID)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		pub := p.registry.Publication(pubKey(pubID))
		ApplyPub(pub, row)
		p.lookupPubMed(ctx, pub)
		p.linker.Cite(pub, p.registry.GeneticMap(mapKey(featureMapID)))
		count++
	}
	p.countRows(ctx, "map publications", count)
	component.Logger(ctx).Info("Cited genetic map publications", "count", count)
	return rows.Err()
}

// loadTraitPublications cites each QTL's publications, as declared by the
// feature_cvterm table. Rows whose feature is not a registered QTL carry
// annotations of kinds this load does not cover and are skipped.
func (p *processor) loadTraitPublications(ctx context.Context) error {
	rows, err := p.cfg.DB.QueryContext(ctx, `
		SELECT fc.feature_id, `+pubColumns+`
		FROM feature_cvterm fc
		JOIN pub p ON p.pub_id = fc.pub_id
	`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var featureID int
		pubID, row, err := scanPub(rows, &featureID)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		q, ok := p.registry.FindQTL(featureKey(featureID))
		if !ok {
			continue
		}
		pub := p.registry.Publication(pubKey(pubID))
		ApplyPub(pub, row)
		p.lookupPubMed(ctx, pub)
		p.linker.Cite(pub, q)
		count++
	}
	p.countRows(ctx, "trait publications", count)
	component.Logger(ctx).Info("Cited QTL publications", "count", count)
	return rows.Err()
}

// lookupPubMed resolves the publication's PubMed id through the configured
// searcher. Failures are logged and otherwise ignored; a load must not depend
// on a remote service.
func (p *processor) lookupPubMed(ctx context.Context, pub *geneticgraph.Publication) {
	if pub.PubMedID != 0 || p.cfg.PubMed == nil {
		return
	}
	id, err := p.cfg.PubMed.LookupID(ctx, pub.Journal, pub.Year, pub.FirstAuthor)
	if err != nil {
		component.Logger(ctx).Debug("PubMed lookup failed", "error", err, "title", pub.Title)
		return
	}
	pub.PubMedID = id
}

// loadPositions reads the featurepos table: marker rows place markers on
// linkage groups, and self rows with a positive position carry linkage group
// lengths.
func (p *processor) loadPositions(ctx context.Context) error {
	rows, err := p.cfg.DB.QueryContext(ctx, `
		SELECT featuremap_id, feature_id, map_feature_id, mappos
		FROM featurepos
	`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var row FeaturePosRow
		if err := rows.Scan(&row.FeatureMapID, &row.FeatureID, &row.MapFeatureID, &row.Position); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		gm := p.registry.GeneticMap(mapKey(row.FeatureMapID))
		switch {
		case row.IsMarkerPlacement():
			if err := p.linker.PlaceMarker(ctx, gm, featureKey(row.FeatureID), featureKey(row.MapFeatureID), row.Position); err != nil {
				return err
			}
		case row.IsGroupLength():
			p.linker.MeasureGroup(ctx, gm, featureKey(row.FeatureID), row.Position)
		}
		count++
	}
	p.countRows(ctx, "positions", count)
	component.Logger(ctx).Info("Resolved featurepos rows", "count", count)
	return rows.Err()
}

// loadSpans reads the featureloc rows of QTL features, which span QTLs over
// linkage group intervals. Chado stores the coordinates as integers holding
// centimorgans times one hundred.
func (p *processor) loadSpans(ctx context.Context) error {
	rows, err := p.cfg.DB.QueryContext(ctx, `
		SELECT l.feature_id, l.srcfeature_id, l.fmin, l.fmax
		FROM featureloc l
		JOIN feature f ON f.feature_id = l.feature_id
		JOIN cvterm t ON t.cvterm_id = f.type_id
		WHERE t.name = 'QTL'
	`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var featureID, srcFeatureID, fmin, fmax int
		if err := rows.Scan(&featureID, &srcFeatureID, &fmin, &fmax); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := p.linker.SpanQTL(ctx, featureKey(featureID), featureKey(srcFeatureID), fmin, fmax); err != nil {
			return err
		}
		count++
	}
	p.countRows(ctx, "spans", count)
	component.Logger(ctx).Info("Resolved featureloc rows", "count", count)
	return rows.Err()
}

// loadAssociations reads the feature_relationship rows that associate markers
// to QTLs (nearest marker, flanking low, flanking high). The table carries
// relationships between features of every kind; rows are scoped by their
// subject being a registered QTL rather than by relationship type, because
// chado installations disagree on the type vocabulary.
func (p *processor) loadAssociations(ctx context.Context) error {
	rows, err := p.cfg.DB.QueryContext(ctx, `
		SELECT r.subject_id, r.object_id
		FROM feature_relationship r
	`)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var subjectID, objectID int
		if err := rows.Scan(&subjectID, &objectID); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if p.associateMarker(ctx, subjectID, objectID) {
			count++
		}
	}
	p.countRows(ctx, "associations", count)
	component.Logger(ctx).Info("Resolved feature_relationship rows", "count", count)
	return rows.Err()
}

// associateMarker resolves one feature_relationship row. Rows whose subject is
// not a registered QTL relate features this load does not cover and are
// skipped; rows with a QTL subject but an unregistered object go through the
// linker, which tallies the drop.
func (p *processor) associateMarker(ctx context.Context, subjectID, objectID int) bool {
	if _, ok := p.registry.FindQTL(featureKey(subjectID)); !ok {
		return false
	}
	p.linker.AssociateMarker(ctx, featureKey(subjectID), featureKey(objectID))
	return true
}

func (p *processor) countRows(ctx context.Context, pass string, n int64) {
	rowsReadCounter.Add(ctx, n, metric.WithAttributes(
		attribute.String("pass", pass),
	))
}
