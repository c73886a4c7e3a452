package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

// =============================================================================
// Graph - Analysis Output
// =============================================================================

// Graph is the interchange format between the code analysis that produces a
// graph and the layout engine that consumes it.
//
// Positions are optional. A graph written after a layout carries them so it
// can be rendered or laid out again from where it stopped.
type Graph struct {
	MainRelation string     `json:"mainRelation,omitempty"`
	Relations    []Relation `json:"relations,omitempty"`
	Nodes        []Node     `json:"nodes"`
	Edges        []Edge     `json:"edges"`
}

// Relation declares an edge type.
type Relation struct {
	Name       string  `json:"name"`
	Transitive bool    `json:"transitive,omitempty"`
	Weight     float64 `json:"weight,omitempty"` // defaults to 1
}

// Node is a code entity.
type Node struct {
	ID        string  `json:"id"`
	Label     string  `json:"label,omitempty"` // defaults to ID
	Kind      string  `json:"kind,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Fixed     bool    `json:"fixed,omitempty"`
	Hidden    bool    `json:"hidden,omitempty"`
	Collapsed bool    `json:"collapsed,omitempty"`
}

// Edge is a directed, typed relationship.
type Edge struct {
	Relation string  `json:"relation"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Weight   float64 `json:"weight,omitempty"` // defaults to the relation weight
}

// =============================================================================
// Model Conversion
// =============================================================================

// FromModel converts a model to its serialization format. Nodes keep the
// model's insertion order, which the layout relies on for determinism.
func FromModel(g *multigraph.Multigraph) Graph {
	out := Graph{MainRelation: g.MainRelation()}
	for _, r := range g.Relations() {
		out.Relations = append(out.Relations, Relation{Name: r.Name, Transitive: r.Transitive, Weight: r.Weight})
	}
	nodes := g.Nodes()
	out.Nodes = make([]Node, len(nodes))
	for i, n := range nodes {
		label := n.Label
		if label == n.ID {
			label = ""
		}
		out.Nodes[i] = Node{
			ID: n.ID, Label: label, Kind: n.Kind,
			X: n.X, Y: n.Y, Size: n.Size,
			Fixed: n.Fixed, Hidden: n.Hidden, Collapsed: n.Collapsed,
		}
	}
	edges := g.Edges()
	out.Edges = make([]Edge, len(edges))
	for i, e := range edges {
		out.Edges[i] = Edge{Relation: e.Relation, From: e.Src, To: e.Dst, Weight: e.Weight}
	}
	return out
}

// ToModel builds a model from its serialization format. Relations are
// registered first; edges may also name relations that were not declared.
// Any inconsistency is an INVALID_INPUT error naming the offending element.
func ToModel(data Graph) (*multigraph.Multigraph, error) {
	g := multigraph.New()
	for _, r := range data.Relations {
		if err := g.AddRelation(multigraph.Relation{Name: r.Name, Transitive: r.Transitive, Weight: r.Weight}); err != nil {
			return nil, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "relation %q", r.Name)
		}
	}
	for _, n := range data.Nodes {
		err := g.AddNode(multigraph.Node{
			ID: n.ID, Label: n.Label, Kind: n.Kind,
			X: n.X, Y: n.Y, Size: n.Size,
			Fixed: n.Fixed, Hidden: n.Hidden, Collapsed: n.Collapsed,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, e := range data.Edges {
		err := g.AddEdge(multigraph.Edge{Relation: e.Relation, Src: e.From, Dst: e.To, Weight: e.Weight})
		if err != nil {
			return nil, herrors.Wrap(herrors.ErrCodeInvalidInput, err, "edge %s:%s->%s", e.Relation, e.From, e.To)
		}
	}

	main := data.MainRelation
	if main == "" && len(data.Relations) > 0 {
		main = data.Relations[0].Name
	}
	if main != "" {
		if _, ok := g.Relation(main); !ok {
			return nil, herrors.Wrap(herrors.ErrCodeRelationNotFound, multigraph.ErrRelationNotFound, "main relation %q", main)
		}
		g.SetMainRelation(main)
	}
	return g, nil
}

// Canonical returns a position-independent encoding of the graph's
// structure: sorted relations, nodes and edges without coordinates or
// visibility. Two graphs with equal canonical forms converge to the same
// layout, which makes the hash of this encoding a cache key.
func Canonical(data Graph) []byte {
	type node struct {
		ID    string  `json:"id"`
		Size  float64 `json:"size,omitempty"`
		Fixed bool    `json:"fixed,omitempty"`
	}
	rels := slices.Clone(data.Relations)
	slices.SortFunc(rels, func(a, b Relation) int { return strings.Compare(a.Name, b.Name) })

	nodes := make([]node, len(data.Nodes))
	for i, n := range data.Nodes {
		nodes[i] = node{ID: n.ID, Size: n.Size, Fixed: n.Fixed}
	}
	slices.SortFunc(nodes, func(a, b node) int { return strings.Compare(a.ID, b.ID) })

	edges := slices.Clone(data.Edges)
	slices.SortFunc(edges, func(a, b Edge) int {
		return strings.Compare(edgeString(a), edgeString(b))
	})

	out, _ := json.Marshal(struct {
		Relations []Relation `json:"r"`
		Nodes     []node     `json:"n"`
		Edges     []Edge     `json:"e"`
	}{rels, nodes, edges})
	return out
}

func edgeString(e Edge) string {
	return fmt.Sprintf("%s:%s->%s", e.Relation, e.From, e.To)
}

// =============================================================================
// Positions
// =============================================================================

// Position is a point in layout space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positions maps node ids to layout positions.
type Positions map[string]Position

// ExtractPositions returns the positions of every node in g.
func ExtractPositions(g *multigraph.Multigraph) Positions {
	nodes := g.Nodes()
	out := make(Positions, len(nodes))
	for _, n := range nodes {
		out[n.ID] = Position{X: n.X, Y: n.Y}
	}
	return out
}

// ApplyPositions seeds g with p and returns how many nodes were placed.
// Fixed nodes keep their position, and ids unknown to g are ignored.
func ApplyPositions(g *multigraph.Multigraph, p Positions) int {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	placed := 0
	g.UpdatePositions(ids, func(_ int, n *multigraph.Node) {
		if n.Fixed {
			return
		}
		pos := p[n.ID]
		n.X, n.Y = pos.X, pos.Y
		placed++
	})
	return placed
}
