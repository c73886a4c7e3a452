package multigraph

// ViewNode is a visible node as seen by the layout engine.
type ViewNode struct {
	Node
	Mass float64 // 1 + weighted degree within the view
}

// View is a consistent copy of the visible subset.
type View struct {
	Nodes []ViewNode
	Edges []Edge
}

// Visible copies the visible subset: visible nodes in insertion order, and
// edges whose endpoints are both visible. relations restricts the edges;
// nil or empty keeps every relation. Self loops are dropped.
func (g *Multigraph) Visible(relations []string) View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var allow map[string]bool
	if len(relations) > 0 {
		allow = toSet(relations)
	}

	v := View{Nodes: make([]ViewNode, 0, len(g.order))}
	index := make(map[string]int, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Hidden {
			continue
		}
		index[id] = len(v.Nodes)
		v.Nodes = append(v.Nodes, ViewNode{Node: *n, Mass: 1})
	}
	for _, k := range g.edgeOrder {
		if allow != nil && !allow[k.Relation] {
			continue
		}
		if k.Src == k.Dst {
			continue
		}
		si, ok := index[k.Src]
		if !ok {
			continue
		}
		di, ok := index[k.Dst]
		if !ok {
			continue
		}
		e := *g.edges[k]
		v.Edges = append(v.Edges, e)
		v.Nodes[si].Mass += e.Weight
		v.Nodes[di].Mass += e.Weight
	}
	return v
}

// UpdatePositions calls fn for every listed node under the model's write
// lock. IDs that no longer exist are skipped. fn may change only X and Y,
// and must not call back into the model.
func (g *Multigraph) UpdatePositions(ids []string, fn func(i int, n *Node)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, id := range ids {
		if n, ok := g.nodes[id]; ok {
			fn(i, n)
		}
	}
}

// NodeState is the renderer's view of a node.
type NodeState struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Visible bool    `json:"visible"`
	Fixed   bool    `json:"fixed,omitempty"`
}

// EdgeState is the renderer's view of an edge.
type EdgeState struct {
	Relation string `json:"relation"`
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Visible  bool   `json:"visible"`
}

// Snapshot is a read-only copy for rendering, keyed by node ID and by
// [EdgeKey.String].
type Snapshot struct {
	Nodes map[string]NodeState `json:"nodes"`
	Edges map[string]EdgeState `json:"edges"`
}

// Snapshot copies positions and visibility of the whole model.
func (g *Multigraph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Snapshot{
		Nodes: make(map[string]NodeState, len(g.nodes)),
		Edges: make(map[string]EdgeState, len(g.edges)),
	}
	for id, n := range g.nodes {
		s.Nodes[id] = NodeState{X: n.X, Y: n.Y, Size: n.Size, Visible: !n.Hidden, Fixed: n.Fixed}
	}
	for k := range g.edges {
		s.Edges[k.String()] = EdgeState{
			Relation: k.Relation,
			Src:      k.Src,
			Dst:      k.Dst,
			Visible:  !g.nodes[k.Src].Hidden && !g.nodes[k.Dst].Hidden,
		}
	}
	return s
}
