// Package pkg provides the core libraries for Helveg code graph layout.
//
// # Overview
//
// Helveg lays out typed code graphs (namespaces declaring types declaring
// methods, types inheriting from types, methods calling methods) with a
// continuous ForceAtlas2 simulation, and lets users fold, cut and prune the
// graph while the layout keeps running. The pkg directory is organized into
// three main areas:
//
//  1. Model: [multigraph] and its serialized form in [graph]
//  2. Layout: [forceatlas2], [layout] with its [layout/worker] and
//     [layout/protocol]
//  3. Infrastructure: [pipeline], [cache], [config], [observability],
//     [render/nodelink]
//
// # Architecture
//
// The typical data flow:
//
//	graph.json
//	     ↓
//	[graph] package (decode into a multigraph.Multigraph)
//	     ↓
//	[multigraph] package (prune, collapse, expand, cut)
//	     ↓
//	[layout] package (supervisor + background worker running ForceAtlas2)
//	     ↓
//	[render/nodelink] package (DOT / SVG) or graph.json with positions
//
// # Quick Start
//
//	_, g, _ := graph.ReadGraphFile("graph.json")
//	layout.Scatter(g, 42)
//
//	sup, _ := layout.NewSupervisor(g, layout.Options{})
//	defer sup.Kill()
//
//	sup.OnStopped(func(e layout.StoppedEvent) { fmt.Println(e.Reason) })
//	sup.Start(ctx, layout.Continuous)
//
// # Main Packages
//
// [multigraph] - The canonical graph model: nodes, relation-tagged edges,
// visibility, transitive-closure synthesis and change notifications.
//
// [forceatlas2] - The physics: flat node and edge buffers, Barnes-Hut
// quadtree, one-step iteration and its metadata.
//
// [layout] - The supervisor that owns one background worker at a time,
// restarts it on structural changes and writes positions back to the model.
//
// [pipeline] - Load → prune → seed → layout → persist → render, shared by
// every CLI command.
//
// [cache] - Position snapshots keyed by graph hash, on disk or in Redis.
//
// [observability] - Hook registry with a Prometheus implementation.
//
// # Testing
//
//	go test ./pkg/...
//	HELVEG_REDIS_ADDR=localhost:6379 go test ./pkg/cache/...
//
// [multigraph]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/multigraph
// [graph]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/graph
// [forceatlas2]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/forceatlas2
// [layout]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/layout
// [layout/worker]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/layout/worker
// [layout/protocol]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/layout/protocol
// [pipeline]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/cache
// [config]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/config
// [observability]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/observability
// [render/nodelink]: https://pkg.go.dev/github.com/cafour/helveg-sub001/pkg/render/nodelink
package pkg
