package geneticgraph

import (
	"fmt"
	"strings"
)

// An ItemID is the opaque identifier a sink assigns to an entity when the
// entity is first stored. Its contents are meaningful only to the sink that
// issued it; this package treats it as a token whose sole observable property
// is that a stored entity has a non-zero one.
type ItemID string

// IsZero reports whether the identifier is unset, meaning the entity has not
// been stored.
func (id ItemID) IsZero() bool { return id == "" }

func (id ItemID) String() string {
	if id.IsZero() {
		return "item(unstored)"
	}
	return "item(" + string(id) + ")"
}

// An OrganismKey identifies an organism within the registry. Two organisms are
// the same entity exactly when both their taxonomy identifier and variety
// match; an empty Variety means the key is scoped to the species alone.
type OrganismKey struct {
	TaxonID string
	Variety string
}

// String renders the key the way curated files spell it: "3847" for a bare
// taxon, "3847_Williams82" when a variety narrows it.
func (k OrganismKey) String() string {
	if k.Variety == "" {
		return k.TaxonID
	}
	return k.TaxonID + "_" + k.Variety
}

// ParseOrganismKey is the inverse of OrganismKey.String. The taxon part must
// be non-empty.
func ParseOrganismKey(s string) (OrganismKey, error) {
	taxon, variety, _ := strings.Cut(s, "_")
	if taxon == "" {
		return OrganismKey{}, fmt.Errorf("organism key %q: missing taxon identifier", s)
	}
	return OrganismKey{TaxonID: taxon, Variety: variety}, nil
}

// MarshalText implements [encoding.TextMarshaler] so organism keys can appear
// in wire messages and node properties.
func (k OrganismKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *OrganismKey) UnmarshalText(text []byte) error {
	parsed, err := ParseOrganismKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
