// Package graph provides the JSON interchange format of helveg graphs.
//
// A code analysis emits a [Graph]: typed relations, the nodes they connect
// and the edges between them. [ToModel] turns it into a
// [multigraph.Multigraph]; [FromModel] goes the other way, so a graph can be
// written back out with the positions a layout produced.
//
//	{
//	  "mainRelation": "declares",
//	  "relations": [{"name": "declares", "transitive": true}],
//	  "nodes": [{"id": "App"}, {"id": "App.Run", "kind": "method"}],
//	  "edges": [{"relation": "declares", "from": "App", "to": "App.Run"}]
//	}
//
// Common operations:
//
//	data, g, _ := graph.ReadGraphFile("graph.json") // File → model
//	graph.WriteGraphFile(g, "laid-out.json")         // model → File
//	key := cache.Hash(graph.Canonical(data))         // structure → cache key
//
// # Positions
//
// [Positions] is the compact form stored in the position cache: node id to
// coordinates. [ApplyPositions] seeds a model from it without touching fixed
// nodes, whose coordinates stay authoritative.
package graph
