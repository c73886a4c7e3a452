// Package forceatlas2 implements the ForceAtlas2 force-directed layout
// step over flat float64 buffers.
//
// The iterator knows nothing about graphs, channels or goroutines. It takes a
// node buffer and an edge buffer laid out as fixed-size records and advances
// the simulation by one step in place:
//
//	nodes := forceatlas2.NewNodeBuffer(2)
//	forceatlas2.SetNode(nodes, 0, 0, 0, 2, 1, false)
//	forceatlas2.SetNode(nodes, 1, 10, 0, 2, 1, false)
//	edges := forceatlas2.NewEdgeBuffer(1)
//	forceatlas2.SetEdge(edges, 0, 0, 1, 1)
//
//	s := forceatlas2.DefaultSettings()
//	for i := 0; i < 100; i++ {
//		meta := forceatlas2.Iterate(s, nodes, edges)
//		if meta.AverageTraction() < s.AutoStopAverageTraction {
//			break
//		}
//	}
//
// # Buffer Layout
//
// Each node occupies [PPN] values: position, current and previous force,
// mass, convergence, size and a fixed flag. Each edge occupies [PPE] values:
// source index, target index and weight. [CheckBuffers] validates both before
// they are handed to [Iterate].
//
// # Forces
//
// One step computes repulsion between every pair of nodes (exactly, or
// approximated by a Barnes-Hut quadtree when [Settings.BarnesHutOptimize] is
// set), gravity toward the origin, and attraction along edges. It then moves
// every non-fixed node with an adaptive speed derived from its swinging (how
// much the force direction changed) and traction (how consistent it stayed).
// The summed swinging and traction are returned as [Metadata] and drive
// auto-stop.
package forceatlas2
