package chado

import (
	"strings"

	"github.com/go-geneticgraph/go-geneticgraph"
)

// A PubRow carries the columns of a chado pub row that map onto a
// geneticgraph.Publication.
type PubRow struct {
	Title      string
	Volume     string
	SeriesName string // the journal
	Issue      string
	Year       string
	Pages      string
	Uniquename string // citation text, e.g. "Specht et al., 2001"
}

// ApplyPub copies the row's attributes onto the publication. Chado exports
// mark missing values with empty strings or the literal "NULL"; both are
// skipped so that attributes set by an earlier row survive.
func ApplyPub(p *geneticgraph.Publication, row PubRow) {
	set := func(dst *string, v string) {
		if v != "" && v != "NULL" {
			*dst = v
		}
	}
	set(&p.Title, row.Title)
	set(&p.Volume, row.Volume)
	set(&p.Journal, row.SeriesName)
	set(&p.Issue, row.Issue)
	set(&p.Year, row.Year)
	set(&p.Pages, row.Pages)
	if author := FirstAuthor(row.Uniquename); author != "" {
		p.FirstAuthor = author
	}
}

// FirstAuthor extracts the first author from a chado pub uniquename. The
// uniquename is a citation like "Specht et al., 2001" or "Specht, Chase,
// 2001": everything before "et al" when present, the first comma-separated
// part otherwise.
func FirstAuthor(uniquename string) string {
	if name, _, found := strings.Cut(uniquename, "et al"); found {
		return strings.TrimSpace(name)
	}
	name, _, _ := strings.Cut(uniquename, ",")
	return strings.TrimSpace(name)
}

// A FeaturePosRow is one row of the chado featurepos table. A row positions
// the feature on a linkage group of a genetic map; a row positioning a
// linkage group on itself carries the group's length instead.
type FeaturePosRow struct {
	FeatureMapID int
	FeatureID    int
	MapFeatureID int
	Position     float64
}

// IsGroupLength reports whether the row is a linkage group positioned on
// itself with a measured length. Self rows with a zero position carry no
// information and are skipped entirely.
func (r FeaturePosRow) IsGroupLength() bool {
	return r.FeatureID == r.MapFeatureID && r.Position > 0
}

// IsMarkerPlacement reports whether the row places a marker on a linkage
// group.
func (r FeaturePosRow) IsMarkerPlacement() bool {
	return r.FeatureID != r.MapFeatureID
}
