package layout

import (
	"math"
	"math/rand/v2"

	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

// Pack serializes a view into iterator buffers. ids[i] is the node stored in
// record i; edge endpoints are indices into ids.
func Pack(v multigraph.View) (nodes, edges []float64, ids []string) {
	ids = make([]string, len(v.Nodes))
	index := make(map[string]int, len(v.Nodes))
	nodes = forceatlas2.NewNodeBuffer(len(v.Nodes))
	for i, n := range v.Nodes {
		ids[i] = n.ID
		index[n.ID] = i
		forceatlas2.SetNode(nodes, i, n.X, n.Y, n.Mass, n.Size, n.Fixed)
	}

	edges = forceatlas2.NewEdgeBuffer(len(v.Edges))
	for j, e := range v.Edges {
		forceatlas2.SetEdge(edges, j, index[e.Src], index[e.Dst], e.Weight)
	}
	return nodes, edges, ids
}

// Unpack writes buffer positions back into the model. Fixed nodes keep their
// model position and the buffer is corrected to match it.
func Unpack(g *multigraph.Multigraph, ids []string, nodes []float64) {
	g.UpdatePositions(ids, func(i int, n *multigraph.Node) {
		if n.Fixed {
			forceatlas2.SetPosition(nodes, i, n.X, n.Y)
			return
		}
		n.X, n.Y = forceatlas2.Position(nodes, i)
	})
}

// Scatter places every node still sitting at the origin on a random point
// of a disc whose area grows with the node count. Coincident nodes feel no
// forces, so graphs loaded without positions must be scattered once before
// the first run. The same seed gives the same placement.
func Scatter(g *multigraph.Multigraph, seed uint64) int {
	radius := 10 * math.Sqrt(float64(max(g.NodeCount(), 1)))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var ids []string
	for _, n := range g.Nodes() {
		if n.X == 0 && n.Y == 0 && !n.Fixed {
			ids = append(ids, n.ID)
		}
	}
	g.UpdatePositions(ids, func(_ int, n *multigraph.Node) {
		r := radius * math.Sqrt(rng.Float64())
		a := 2 * math.Pi * rng.Float64()
		n.X, n.Y = r*math.Cos(a), r*math.Sin(a)
	})
	return len(ids)
}
