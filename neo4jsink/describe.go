package neo4jsink

import (
	"fmt"
	"strconv"

	"github.com/go-geneticgraph/go-geneticgraph"
)

// A rawNode describes a geneticgraph.Entity as a node in the neo4j graph.
type rawNode struct {
	// The label of the node is the entity's kind name, as returned by
	// geneticgraph.KindOf.
	Label string
	// Key is the natural key that uniquely identifies the node among all nodes
	// with the same label. An empty Key marks an unkeyed node: an immutable leaf
	// that is created once and addressed by its element id afterwards.
	//
	// The key is stored in the _naturalKey property, which starts with an
	// underscore because it is metadata of this package, not a business
	// attribute.
	Key string
	// The properties of the node bearing business value. References to other
	// entities are not properties; they become edges.
	Props map[string]any
}

func describe(e geneticgraph.Entity) rawNode {
	return rawNode{
		Label: geneticgraph.KindOf(e),
		Key:   naturalKey(e),
		Props: properties(e),
	}
}

// naturalKey renders the identifying attributes of the given entity into a
// single string, or returns the empty string for unkeyed entity kinds.
//
// Named entities are scoped by their organism (when set) because marker and
// trait names recur across species. Publications are identified by their
// PubMed id when known, falling back to the title; a publication with neither
// is stored unkeyed.
func naturalKey(e geneticgraph.Entity) string {
	switch x := e.(type) {
	case *geneticgraph.Organism:
		return geneticgraph.OrganismKey{TaxonID: x.TaxonID, Variety: x.Variety}.String()
	case *geneticgraph.GeneticMap:
		return scopedKey(x.Name, x.Organism)
	case *geneticgraph.LinkageGroup:
		return scopedKey(x.Name, x.Organism)
	case *geneticgraph.GeneticMarker:
		return scopedKey(x.Name, x.Organism)
	case *geneticgraph.QTL:
		return scopedKey(x.Name, x.Organism)
	case *geneticgraph.Chromosome:
		return scopedKey(x.Name, x.Organism)
	case *geneticgraph.Gene:
		return scopedKey(x.Name, x.Organism)
	case *geneticgraph.Publication:
		if x.PubMedID != 0 {
			return "pmid:" + strconv.Itoa(x.PubMedID)
		}
		return x.Title
	case *geneticgraph.OntologyTerm:
		return x.Identifier
	case *geneticgraph.ExpressionSource:
		return x.Name
	case *geneticgraph.ExpressionSample:
		if x.Source == nil || x.Source.Name == "" {
			return ""
		}
		return x.Source.Name + "#" + strconv.Itoa(x.Num)
	default:
		// Positions, ranges, annotations, locations, and expression values are
		// immutable leaves without identity of their own.
		return ""
	}
}

// scopedKey prefixes the given name with the organism's identity, so that
// entities with the same name under different organisms map to distinct nodes.
func scopedKey(name string, org *geneticgraph.Organism) string {
	if name == "" {
		return ""
	}
	if org == nil {
		return name
	}
	return geneticgraph.OrganismKey{TaxonID: org.TaxonID, Variety: org.Variety}.String() + ":" + name
}

// properties returns the business attributes of the given entity as node
// properties. The persistence metadata of this package (the natural key and
// the timestamps) is handled by the Cypher queries, not here.
func properties(e geneticgraph.Entity) map[string]any {
	switch x := e.(type) {
	case *geneticgraph.Organism:
		return map[string]any{"taxonId": x.TaxonID, "variety": x.Variety}
	case *geneticgraph.GeneticMap:
		return map[string]any{"name": x.Name, "description": x.Description, "unit": x.Unit}
	case *geneticgraph.LinkageGroup:
		return map[string]any{"name": x.Name, "length": x.Length}
	case *geneticgraph.GeneticMarker:
		return map[string]any{"name": x.Name, "type": x.Type}
	case *geneticgraph.QTL:
		return map[string]any{"name": x.Name}
	case *geneticgraph.Publication:
		return map[string]any{
			"title":       x.Title,
			"firstAuthor": x.FirstAuthor,
			"journal":     x.Journal,
			"issue":       x.Issue,
			"year":        x.Year,
			"volume":      x.Volume,
			"pages":       x.Pages,
			"pubMedId":    x.PubMedID,
		}
	case *geneticgraph.OntologyTerm:
		return map[string]any{"identifier": x.Identifier, "type": x.Type}
	case *geneticgraph.OntologyAnnotation:
		return map[string]any{}
	case *geneticgraph.LinkageGroupPosition:
		return map[string]any{"position": x.Position}
	case *geneticgraph.LinkageGroupRange:
		return map[string]any{"begin": x.Begin, "end": x.End, "length": x.Length}
	case *geneticgraph.Chromosome:
		return map[string]any{"name": x.Name}
	case *geneticgraph.Location:
		return map[string]any{"start": x.Start, "end": x.End, "length": x.Length}
	case *geneticgraph.Gene:
		return map[string]any{"name": x.Name}
	case *geneticgraph.ExpressionSource:
		return map[string]any{
			"name":        x.Name,
			"description": x.Description,
			"unit":        x.Unit,
			"bioProject":  x.BioProject,
			"sra":         x.SRA,
			"geo":         x.GEO,
			"url":         x.URL,
		}
	case *geneticgraph.ExpressionSample:
		return map[string]any{"num": x.Num, "name": x.Name, "description": x.Description}
	case *geneticgraph.ExpressionValue:
		return map[string]any{"value": x.Value}
	default:
		// geneticgraph.Entity is a sealed interface, so an unknown dynamic type
		// means a new entity kind was added without extending this switch.
		panic(fmt.Sprintf("seek developer attention: neo4jsink: unsupported entity type %T", e))
	}
}

// KnownLabels returns the labels of all entity kinds this package can store.
func KnownLabels() []string {
	return []string{
		"Organism",
		"GeneticMap",
		"LinkageGroup",
		"GeneticMarker",
		"QTL",
		"Publication",
		"OntologyTerm",
		"OntologyAnnotation",
		"LinkageGroupPosition",
		"LinkageGroupRange",
		"Chromosome",
		"Location",
		"Gene",
		"ExpressionSource",
		"ExpressionSample",
		"ExpressionValue",
	}
}

// constrainedLabels returns the labels whose nodes always carry a natural key,
// and which are therefore protected by a node-key constraint.
//
// Publication and ExpressionSample are excluded: their keys depend on optional
// attributes, so a correct load may legitimately store them unkeyed.
func constrainedLabels() []string {
	return []string{
		"Organism",
		"GeneticMap",
		"LinkageGroup",
		"GeneticMarker",
		"QTL",
		"OntologyTerm",
		"Chromosome",
		"Gene",
		"ExpressionSource",
	}
}
