package multigraph

// BFSOptions configures [Multigraph.BFS].
type BFSOptions struct {
	// Relation restricts traversal to one relation. Empty follows every
	// relation.
	Relation string

	// MaxDepth bounds the depth of visited nodes; the start node has depth 0.
	// Zero means unbounded. To visit the start node alone, return false from
	// Visit at depth 0.
	MaxDepth int

	// Visit is called once per visited node in BFS order. Returning false
	// keeps the node visited but stops descent through it. It runs without
	// the model lock held and may read or modify the model.
	Visit func(n Node, depth int) bool
}

// BFS walks outgoing edges breadth-first from start and returns the visited
// node IDs in visit order, start first. Each node is visited at most once and
// visibility is ignored.
//
// The model is read one node at a time, so changes made by Visit are seen by
// the rest of the walk: nodes removed before they are reached are skipped
// and edges are followed as they are when the walk descends.
func (g *Multigraph) BFS(start string, opts BFSOptions) ([]string, error) {
	g.mu.RLock()
	_, ok := g.nodes[start]
	g.mu.RUnlock()
	if !ok {
		return nil, nodeNotFound(start)
	}

	type item struct {
		id    string
		depth int
	}
	visited := map[string]bool{start: true}
	order := []string{}
	queue := []item{{start, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		g.mu.RLock()
		n, ok := g.nodes[cur.id]
		var node Node
		if ok {
			node = *n
		}
		g.mu.RUnlock()
		if !ok {
			continue
		}
		order = append(order, cur.id)

		if opts.Visit != nil && !opts.Visit(node, cur.depth) {
			continue
		}
		if opts.MaxDepth > 0 && cur.depth >= opts.MaxDepth {
			continue
		}

		g.mu.RLock()
		next := g.children(cur.id, opts.Relation)
		g.mu.RUnlock()
		for _, id := range next {
			if !visited[id] {
				visited[id] = true
				queue = append(queue, item{id, cur.depth + 1})
			}
		}
	}
	return order, nil
}

// bfsLocked returns every node reachable from start over the raw
// adjacency, start first. relation "" follows every edge.
func (g *Multigraph) bfsLocked(start, relation string) []string {
	visited := map[string]bool{start: true}
	order := []string{start}
	for i := 0; i < len(order); i++ {
		for _, k := range g.out[order[i]] {
			if relation != "" && k.Relation != relation {
				continue
			}
			if !visited[k.Dst] {
				visited[k.Dst] = true
				order = append(order, k.Dst)
			}
		}
	}
	return order
}

// children returns the distinct destinations of id's outgoing relation edges.
func (g *Multigraph) children(id, relation string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range g.out[id] {
		if relation != "" && k.Relation != relation {
			continue
		}
		if !seen[k.Dst] {
			seen[k.Dst] = true
			out = append(out, k.Dst)
		}
	}
	return out
}

// FindRoots returns the visible nodes that have no incoming edge of the given
// relation from another visible node, in insertion order. An unknown
// relation has no edges, so every visible node is a root.
func (g *Multigraph) FindRoots(relation string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roots := []string{}
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Hidden {
			continue
		}
		root := true
		for _, k := range g.in[id] {
			if k.Relation != relation || k.Src == id {
				continue
			}
			if !g.nodes[k.Src].Hidden {
				root = false
				break
			}
		}
		if root {
			roots = append(roots, id)
		}
	}
	return roots
}
