package multigraph

import (
	"errors"
	"slices"
	"sync"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/event"
)

var (
	// ErrInvalidNodeID is returned by [Multigraph.AddNode] when the node ID is
	// empty or contains characters that cannot be logged or rendered.
	ErrInvalidNodeID = errors.New("invalid node ID")

	// ErrDuplicateNodeID is returned by [Multigraph.AddNode] when a node with
	// the same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrNodeNotFound is returned by every operation that names a node the
	// model does not contain. It is wrapped in a NODE_NOT_FOUND coded error.
	ErrNodeNotFound = errors.New("node not found")

	// ErrUnknownSourceNode is returned by [Multigraph.AddEdge] when Src does
	// not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Multigraph.AddEdge] when Dst does
	// not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrDuplicateEdge is returned by [Multigraph.AddEdge] when an edge with
	// the same relation, source and destination already exists.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrEdgeNotFound is returned by [Multigraph.RemoveEdge] for unknown keys.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrRelationNotFound is returned when an operation names a relation that
	// was never registered.
	ErrRelationNotFound = errors.New("relation not found")

	// ErrDuplicateRelation is returned by [Multigraph.AddRelation] when the
	// relation is already registered.
	ErrDuplicateRelation = errors.New("duplicate relation")

	// ErrNotTransitive is returned by [Multigraph.SynthesizeTransitiveClosure]
	// for relations that are not flagged transitive.
	ErrNotTransitive = errors.New("relation is not transitive")
)

// DefaultWeight is the edge weight used when neither the edge nor its
// relation specifies one.
const DefaultWeight = 1.0

// Relation is a named edge category.
type Relation struct {
	Name       string
	Transitive bool    // closure may be synthesized when pruning
	Weight     float64 // default weight for edges that carry none; 0 means DefaultWeight
}

// Node is a code entity. Only X, Y, Hidden and Collapsed change during
// interactive use; the rest is set by the analysis collaborator.
type Node struct {
	ID    string
	Kind  string // entity kind such as "namespace", "type" or "method"
	Label string // display label, defaults to ID

	X, Y float64
	Size float64 // visual radius, defaults to 1

	Fixed     bool // pinned by the user; layout never moves it
	Hidden    bool // excluded from the visible subset
	Collapsed bool // descendants along the main relation are hidden
}

// EdgeKey identifies an edge. At most one edge exists per key.
type EdgeKey struct {
	Relation string
	Src      string
	Dst      string
}

// String returns "relation:src->dst".
func (k EdgeKey) String() string {
	return k.Relation + ":" + k.Src + "->" + k.Dst
}

// Edge is a directed, relation-tagged connection between two nodes.
type Edge struct {
	Relation string
	Src      string
	Dst      string
	Weight   float64 // 0 means the relation's default weight

	// Synthetic marks shortcut edges added by transitive closure.
	Synthetic bool
}

// Key returns the edge's identity.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Relation: e.Relation, Src: e.Src, Dst: e.Dst}
}

// Multigraph is the canonical graph model. Use [New] to create one.
type Multigraph struct {
	mu sync.RWMutex

	nodes map[string]*Node
	order []string // node insertion order

	relations map[string]*Relation
	relOrder  []string

	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
	out       map[string][]EdgeKey
	in        map[string][]EdgeKey

	mainRelation string

	changes event.Signal[Change]
}

// New creates an empty model.
func New() *Multigraph {
	return &Multigraph{
		nodes:     make(map[string]*Node),
		relations: make(map[string]*Relation),
		edges:     make(map[EdgeKey]*Edge),
		out:       make(map[string][]EdgeKey),
		in:        make(map[string][]EdgeKey),
	}
}

// OnChange subscribes fn to model changes. Handlers run after the mutation
// completes, with no model lock held.
func (g *Multigraph) OnChange(fn func(Change)) (unsubscribe func()) {
	return g.changes.Subscribe(fn)
}

func (g *Multigraph) notify(c Change) {
	g.changes.Emit(c)
}

// SetMainRelation sets the relation used by [Multigraph.ToggleNode] and by
// operations called with an empty relation name.
func (g *Multigraph) SetMainRelation(name string) {
	g.mu.Lock()
	g.mainRelation = name
	g.mu.Unlock()
}

// MainRelation returns the configured main relation.
func (g *Multigraph) MainRelation() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mainRelation
}

// AddRelation registers a relation.
func (g *Multigraph) AddRelation(r Relation) error {
	if err := herrors.ValidateRelationName(r.Name); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.relations[r.Name]; ok {
		return herrors.Wrap(herrors.ErrCodeInvalidInput, ErrDuplicateRelation, "relation %q", r.Name)
	}
	g.addRelationLocked(r)
	return nil
}

func (g *Multigraph) addRelationLocked(r Relation) *Relation {
	if r.Weight <= 0 {
		r.Weight = DefaultWeight
	}
	rel := r
	g.relations[r.Name] = &rel
	g.relOrder = append(g.relOrder, r.Name)
	return &rel
}

// Relation returns the named relation.
func (g *Multigraph) Relation(name string) (Relation, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.relations[name]
	if !ok {
		return Relation{}, false
	}
	return *r, true
}

// Relations returns all relations in registration order.
func (g *Multigraph) Relations() []Relation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Relation, 0, len(g.relOrder))
	for _, name := range g.relOrder {
		out = append(out, *g.relations[name])
	}
	return out
}

// AddNode inserts a node. Size defaults to 1 and Label to ID.
func (g *Multigraph) AddNode(n Node) error {
	if err := herrors.ValidateEntityID(n.ID); err != nil {
		return herrors.Wrap(herrors.ErrCodeInvalidInput, ErrInvalidNodeID, "%s", herrors.UserMessage(err))
	}
	if n.Size <= 0 {
		n.Size = 1
	}
	if n.Label == "" {
		n.Label = n.ID
	}

	g.mu.Lock()
	if _, ok := g.nodes[n.ID]; ok {
		g.mu.Unlock()
		return herrors.Wrap(herrors.ErrCodeInvalidInput, ErrDuplicateNodeID, "node %q", n.ID)
	}
	node := n
	g.nodes[n.ID] = &node
	g.order = append(g.order, n.ID)
	g.mu.Unlock()

	g.notify(Change{Kind: NodesAdded, Nodes: []string{n.ID}, Visible: !n.Hidden})
	return nil
}

// AddEdge inserts an edge. Unknown relations are registered on the fly as
// non-transitive with the default weight.
func (g *Multigraph) AddEdge(e Edge) error {
	if err := herrors.ValidateRelationName(e.Relation); err != nil {
		return err
	}

	g.mu.Lock()
	src, ok := g.nodes[e.Src]
	if !ok {
		g.mu.Unlock()
		return herrors.Wrap(herrors.ErrCodeNodeNotFound, ErrUnknownSourceNode, "edge %s", e.Key())
	}
	dst, ok := g.nodes[e.Dst]
	if !ok {
		g.mu.Unlock()
		return herrors.Wrap(herrors.ErrCodeNodeNotFound, ErrUnknownTargetNode, "edge %s", e.Key())
	}
	if _, ok := g.edges[e.Key()]; ok {
		g.mu.Unlock()
		return herrors.Wrap(herrors.ErrCodeInvalidInput, ErrDuplicateEdge, "edge %s", e.Key())
	}
	g.addEdgeLocked(e)
	visible := !src.Hidden && !dst.Hidden
	g.mu.Unlock()

	g.notify(Change{Kind: EdgesAdded, Edges: []EdgeKey{e.Key()}, Visible: visible})
	return nil
}

func (g *Multigraph) addEdgeLocked(e Edge) {
	rel, ok := g.relations[e.Relation]
	if !ok {
		rel = g.addRelationLocked(Relation{Name: e.Relation})
	}
	if e.Weight <= 0 {
		e.Weight = rel.Weight
	}
	k := e.Key()
	edge := e
	g.edges[k] = &edge
	g.edgeOrder = append(g.edgeOrder, k)
	g.out[e.Src] = append(g.out[e.Src], k)
	g.in[e.Dst] = append(g.in[e.Dst], k)
}

// RemoveNode deletes a node together with its incident edges.
func (g *Multigraph) RemoveNode(id string) error {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return nodeNotFound(id)
	}
	visible := !n.Hidden
	edges := g.removeNodesLocked(map[string]bool{id: true})
	g.mu.Unlock()

	g.notify(Change{Kind: NodesRemoved, Nodes: []string{id}, Edges: edges, Visible: visible})
	return nil
}

// removeNodesLocked deletes every node in ids and all incident edges in a
// single pass and returns the removed edge keys.
func (g *Multigraph) removeNodesLocked(ids map[string]bool) []EdgeKey {
	if len(ids) == 0 {
		return nil
	}
	var removed []EdgeKey
	edgeOrder := g.edgeOrder[:0]
	for _, k := range g.edgeOrder {
		if ids[k.Src] || ids[k.Dst] {
			removed = append(removed, k)
			delete(g.edges, k)
			continue
		}
		edgeOrder = append(edgeOrder, k)
	}
	g.edgeOrder = edgeOrder

	touched := make(map[string]bool)
	for _, k := range removed {
		touched[k.Src] = true
		touched[k.Dst] = true
	}
	for id := range touched {
		if ids[id] {
			continue
		}
		g.out[id] = slices.DeleteFunc(g.out[id], func(k EdgeKey) bool { return ids[k.Dst] })
		g.in[id] = slices.DeleteFunc(g.in[id], func(k EdgeKey) bool { return ids[k.Src] })
	}

	g.order = slices.DeleteFunc(g.order, func(id string) bool { return ids[id] })
	for id := range ids {
		delete(g.nodes, id)
		delete(g.out, id)
		delete(g.in, id)
	}
	return removed
}

// RemoveEdge deletes one edge.
func (g *Multigraph) RemoveEdge(k EdgeKey) error {
	g.mu.Lock()
	if _, ok := g.edges[k]; !ok {
		g.mu.Unlock()
		return herrors.Wrap(herrors.ErrCodeNotFound, ErrEdgeNotFound, "edge %s", k)
	}
	delete(g.edges, k)
	g.edgeOrder = slices.DeleteFunc(g.edgeOrder, func(o EdgeKey) bool { return o == k })
	g.out[k.Src] = slices.DeleteFunc(g.out[k.Src], func(o EdgeKey) bool { return o == k })
	g.in[k.Dst] = slices.DeleteFunc(g.in[k.Dst], func(o EdgeKey) bool { return o == k })
	visible := !g.nodes[k.Src].Hidden && !g.nodes[k.Dst].Hidden
	g.mu.Unlock()

	g.notify(Change{Kind: EdgesRemoved, Edges: []EdgeKey{k}, Visible: visible})
	return nil
}

// SetFixed pins or unpins a node.
func (g *Multigraph) SetFixed(id string, fixed bool) error {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return nodeNotFound(id)
	}
	changed := n.Fixed != fixed
	n.Fixed = fixed
	g.mu.Unlock()

	if changed {
		g.notify(Change{Kind: FixedChanged, Nodes: []string{id}})
	}
	return nil
}

// SetPosition moves a node. It is how a user drags a node; combined with
// [Multigraph.SetFixed] the position survives a running layout.
func (g *Multigraph) SetPosition(id string, x, y float64) error {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return nodeNotFound(id)
	}
	n.X, n.Y = x, y
	g.mu.Unlock()

	g.notify(Change{Kind: PositionsChanged, Nodes: []string{id}})
	return nil
}

// Node returns a copy of the node with the given ID.
func (g *Multigraph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Multigraph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edge returns a copy of the edge with the given key.
func (g *Multigraph) Edge(k EdgeKey) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[k]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Edges returns copies of all edges in insertion order.
func (g *Multigraph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, *g.edges[k])
	}
	return out
}

// NodeCount returns the number of nodes, hidden ones included.
func (g *Multigraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges across all relations.
func (g *Multigraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// resolveRelation maps "" to the main relation. An empty result means
// every relation.
func (g *Multigraph) resolveRelation(name string) string {
	if name == "" {
		return g.mainRelation
	}
	return name
}

func nodeNotFound(id string) error {
	return herrors.Wrap(herrors.ErrCodeNodeNotFound, ErrNodeNotFound, "node %q", id)
}
