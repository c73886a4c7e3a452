package multigraph

import (
	herrors "github.com/cafour/helveg-sub001/pkg/errors"
)

// ClosureResult reports what [Multigraph.SynthesizeTransitiveClosure] did.
type ClosureResult struct {
	Added   []EdgeKey // synthetic edges
	Removed []string  // excluded nodes that were reachable from included ones
}

// SynthesizeTransitiveClosure keeps the included nodes connected along a
// transitive relation once the excluded nodes are gone. For every included
// node N it walks the relation through excluded nodes, stopping at included
// ones; each included node M reached this way gets a synthetic edge N->M
// unless a direct edge already exists. Excluded nodes reached during the walk
// are removed. IDs in included that are not in the model are ignored.
//
// Running it a second time with the same set changes nothing.
func (g *Multigraph) SynthesizeTransitiveClosure(relation string, included []string) (ClosureResult, error) {
	g.mu.Lock()
	res, err := g.closureLocked(relation, toSet(included))
	if err != nil {
		g.mu.Unlock()
		return ClosureResult{}, err
	}
	edges := g.removeNodesLocked(toSet(res.Removed))
	g.mu.Unlock()

	if len(res.Added) > 0 || len(res.Removed) > 0 {
		g.notify(Change{
			Kind:    Rewired,
			Nodes:   res.Removed,
			Edges:   append(res.Added, edges...),
			Visible: true,
		})
	}
	return res, nil
}

func (g *Multigraph) closureLocked(relation string, included map[string]bool) (ClosureResult, error) {
	rel, ok := g.relations[relation]
	if !ok {
		return ClosureResult{}, herrors.Wrap(herrors.ErrCodeRelationNotFound, ErrRelationNotFound, "relation %q", relation)
	}
	if !rel.Transitive {
		return ClosureResult{}, herrors.Wrap(herrors.ErrCodeNotTransitive, ErrNotTransitive, "relation %q", relation)
	}

	var res ClosureResult
	dropped := make(map[string]bool)
	var shortcuts []EdgeKey
	for _, src := range g.order {
		if !included[src] {
			continue
		}
		visited := map[string]bool{src: true}
		queue := []string{src}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, k := range g.out[cur] {
				if k.Relation != relation || visited[k.Dst] {
					continue
				}
				visited[k.Dst] = true
				if included[k.Dst] {
					if cur != src {
						shortcuts = append(shortcuts, EdgeKey{Relation: relation, Src: src, Dst: k.Dst})
					}
					continue
				}
				if !dropped[k.Dst] {
					dropped[k.Dst] = true
					res.Removed = append(res.Removed, k.Dst)
				}
				queue = append(queue, k.Dst)
			}
		}
	}

	// Edges are added after every walk so that shortcuts never feed back
	// into later traversals.
	for _, k := range shortcuts {
		if _, ok := g.edges[k]; ok {
			continue
		}
		g.addEdgeLocked(Edge{Relation: k.Relation, Src: k.Src, Dst: k.Dst, Weight: rel.Weight, Synthetic: true})
		res.Added = append(res.Added, k)
	}
	return res, nil
}

// Prune reduces the model to the included nodes. Transitive relations are
// closed first, so reachability along them survives the removal of
// intermediate nodes.
func (g *Multigraph) Prune(included []string) (ClosureResult, error) {
	set := toSet(included)

	g.mu.Lock()
	var total ClosureResult
	for _, name := range g.relOrder {
		if !g.relations[name].Transitive {
			continue
		}
		res, err := g.closureLocked(name, set)
		if err != nil {
			g.mu.Unlock()
			return ClosureResult{}, err
		}
		total.Added = append(total.Added, res.Added...)
	}

	remove := make(map[string]bool)
	for _, id := range g.order {
		if !set[id] {
			remove[id] = true
			total.Removed = append(total.Removed, id)
		}
	}
	edges := g.removeNodesLocked(remove)
	g.mu.Unlock()

	if len(total.Added) > 0 || len(total.Removed) > 0 {
		g.notify(Change{
			Kind:    Rewired,
			Nodes:   total.Removed,
			Edges:   append(total.Added, edges...),
			Visible: true,
		})
	}
	return total, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
