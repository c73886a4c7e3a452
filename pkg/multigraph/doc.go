// Package multigraph provides the canonical graph model behind helveg's
// interactive layout: a string-keyed multigraph of code entities whose
// visibility is shaped by collapse, expand, cut and pruning operations.
//
// # Overview
//
// The analysis collaborator hands helveg a multigraph: nodes are code entities
// (namespaces, types, members, files) and edges are grouped into named
// [Relation]s such as "declares", "inheritsFrom" or "references". Several
// relations may connect the same pair of nodes; within one relation an edge is
// identified by its [EdgeKey] (relation, source, destination) and is unique.
//
// Only the position and visibility flags of a [Node] are ever written by the
// layout engine. Structure changes come from the user operations in this
// package or from an external refresh.
//
// # Basic Usage
//
//	g := multigraph.New()
//	g.AddRelation(multigraph.Relation{Name: "declares", Transitive: true})
//	g.AddNode(multigraph.Node{ID: "App"})
//	g.AddNode(multigraph.Node{ID: "App.Main"})
//	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "App", Dst: "App.Main"})
//	g.SetMainRelation("declares")
//
//	roots := g.FindRoots("declares") // ["App"]
//	g.ToggleNode("App")             // hides App.Main
//
// # Visibility
//
// Hidden nodes are absent from everything the layout engine sees: [Multigraph.Visible]
// returns only visible nodes and the edges whose endpoints are both visible.
// Collapsing a node hides its strict descendants along a relation and marks it
// collapsed; expanding reverses that, either one level deep or for the full
// subtree.
//
// # Transitive Relations
//
// A relation flagged transitive keeps a pruned view connected: when
// intermediate nodes are excluded, [Multigraph.SynthesizeTransitiveClosure]
// adds synthetic shortcut edges between the remaining included nodes and drops
// the excluded intermediates.
//
// # Change Notifications
//
// Every mutation emits a [Change] after the model lock is released. The layout
// supervisor subscribes with [Multigraph.OnChange] and restarts its background
// context whenever the visible subset changes.
//
// # Concurrency
//
// A Multigraph is safe for concurrent use. Reads take a shared lock, mutations
// an exclusive one, and change handlers run without any lock held.
package multigraph
