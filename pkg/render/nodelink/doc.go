// Package nodelink draws a laid-out graph as a node-link diagram.
//
// [ToDOT] emits Graphviz DOT in which every visible node is pinned at its
// layout position (pos="x,y!"), edges are coloured by relation and synthetic
// closure edges are dashed. [RenderSVG] runs the neato engine in-process via
// [github.com/goccy/go-graphviz], so the picture shows the force-directed
// layout rather than a Graphviz one.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Scale: 10, Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
