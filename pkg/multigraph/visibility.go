package multigraph

// ExpandOptions configures [Multigraph.ExpandNode].
type ExpandOptions struct {
	// Shallow reveals only the immediate children. Children that still have
	// hidden descendants are marked collapsed.
	Shallow bool

	// Relation defaults to the main relation.
	Relation string
}

// CutOptions configures [Multigraph.Cut].
type CutOptions struct {
	// IsTransitive removes everything reachable from the node as well.
	IsTransitive bool

	// Relation restricts the reachable set; defaults to the main relation.
	Relation string
}

// CollapseNode hides every strict descendant of id along relation and marks
// id collapsed. Collapsing twice is the same as collapsing once.
func (g *Multigraph) CollapseNode(id, relation string) error {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return nodeNotFound(id)
	}
	relation = g.resolveRelation(relation)

	var hidden []string
	for _, d := range g.bfsLocked(id, relation)[1:] {
		dn := g.nodes[d]
		if !dn.Hidden {
			dn.Hidden = true
			hidden = append(hidden, d)
		}
	}
	n.Collapsed = true
	g.mu.Unlock()

	g.notify(Change{Kind: VisibilityChanged, Nodes: hidden, Visible: len(hidden) > 0})
	return nil
}

// ExpandNode reveals the descendants of id along a relation and clears its
// collapsed flag.
func (g *Multigraph) ExpandNode(id string, opts ExpandOptions) error {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return nodeNotFound(id)
	}
	relation := g.resolveRelation(opts.Relation)

	var shown []string
	reveal := func(c *Node) {
		if c.Hidden {
			c.Hidden = false
			shown = append(shown, c.ID)
		}
	}

	if opts.Shallow {
		for _, c := range g.children(id, relation) {
			if c == id {
				continue
			}
			cn := g.nodes[c]
			reveal(cn)
			cn.Collapsed = g.hasHiddenChildLocked(c, relation)
		}
	} else {
		for _, d := range g.bfsLocked(id, relation)[1:] {
			dn := g.nodes[d]
			reveal(dn)
			dn.Collapsed = false
		}
	}
	n.Collapsed = false
	g.mu.Unlock()

	g.notify(Change{Kind: VisibilityChanged, Nodes: shown, Visible: len(shown) > 0})
	return nil
}

func (g *Multigraph) hasHiddenChildLocked(id, relation string) bool {
	for _, c := range g.children(id, relation) {
		if c != id && g.nodes[c].Hidden {
			return true
		}
	}
	return false
}

// ToggleNode expands id fully if it is collapsed and collapses it otherwise,
// along the main relation.
func (g *Multigraph) ToggleNode(id string) error {
	n, ok := g.Node(id)
	if !ok {
		return nodeNotFound(id)
	}
	if n.Collapsed {
		return g.ExpandNode(id, ExpandOptions{})
	}
	return g.CollapseNode(id, "")
}

// Cut removes id, or with IsTransitive id and everything reachable from it,
// and returns the removed node IDs.
func (g *Multigraph) Cut(id string, opts CutOptions) ([]string, error) {
	g.mu.Lock()
	if _, ok := g.nodes[id]; !ok {
		g.mu.Unlock()
		return nil, nodeNotFound(id)
	}

	removed := []string{id}
	if opts.IsTransitive {
		removed = g.bfsLocked(id, g.resolveRelation(opts.Relation))
	}
	set := make(map[string]bool, len(removed))
	visible := false
	for _, r := range removed {
		set[r] = true
		if !g.nodes[r].Hidden {
			visible = true
		}
	}
	edges := g.removeNodesLocked(set)
	g.mu.Unlock()

	g.notify(Change{Kind: NodesRemoved, Nodes: removed, Edges: edges, Visible: visible})
	return removed, nil
}
