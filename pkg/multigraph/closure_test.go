package multigraph

import (
	"errors"
	"slices"
	"testing"
)

func chain(t *testing.T, transitive bool) *Multigraph {
	t.Helper()
	g := New()
	if err := g.AddRelation(Relation{Name: "declares", Transitive: transitive}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(Node{ID: id})
	}
	g.AddEdge(Edge{Relation: "declares", Src: "a", Dst: "b"})
	g.AddEdge(Edge{Relation: "declares", Src: "b", Dst: "c"})
	return g
}

func TestSynthesizeTransitiveClosureSkipsExcludedMiddle(t *testing.T) {
	g := chain(t, true)

	res, err := g.SynthesizeTransitiveClosure("declares", []string{"a", "c"})
	if err != nil {
		t.Fatal(err)
	}

	want := EdgeKey{Relation: "declares", Src: "a", Dst: "c"}
	if !slices.Equal(res.Added, []EdgeKey{want}) {
		t.Errorf("Added = %v, want [%v]", res.Added, want)
	}
	if !slices.Equal(res.Removed, []string{"b"}) {
		t.Errorf("Removed = %v, want [b]", res.Removed)
	}

	e, ok := g.Edge(want)
	if !ok || !e.Synthetic {
		t.Errorf("edge %v = %+v, %v; want synthetic", want, e, ok)
	}

	v := g.Visible(nil)
	for _, n := range v.Nodes {
		if n.ID == "b" {
			t.Error("b is still visible")
		}
	}
	if len(v.Edges) != 1 {
		t.Errorf("visible edges = %d, want 1", len(v.Edges))
	}
}

func TestSynthesizeTransitiveClosureIdempotent(t *testing.T) {
	g := chain(t, true)
	g.SynthesizeTransitiveClosure("declares", []string{"a", "c"})
	edges := g.Edges()

	res, err := g.SynthesizeTransitiveClosure("declares", []string{"a", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Added) != 0 || len(res.Removed) != 0 {
		t.Errorf("second run = %+v, want no changes", res)
	}
	if !slices.Equal(edges, g.Edges()) {
		t.Errorf("edges changed: %v -> %v", edges, g.Edges())
	}
}

func TestSynthesizeTransitiveClosureKeepsDirectEdges(t *testing.T) {
	g := chain(t, true)
	g.AddEdge(Edge{Relation: "declares", Src: "a", Dst: "c", Weight: 5})

	res, err := g.SynthesizeTransitiveClosure("declares", []string{"a", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Added) != 0 {
		t.Errorf("Added = %v, want none", res.Added)
	}
	e, _ := g.Edge(EdgeKey{Relation: "declares", Src: "a", Dst: "c"})
	if e.Synthetic || e.Weight != 5 {
		t.Errorf("direct edge replaced: %+v", e)
	}
}

func TestSynthesizeTransitiveClosureStopsAtIncluded(t *testing.T) {
	g := New()
	g.AddRelation(Relation{Name: "declares", Transitive: true})
	for _, id := range []string{"a", "x", "b", "y", "c"} {
		g.AddNode(Node{ID: id})
	}
	g.AddEdge(Edge{Relation: "declares", Src: "a", Dst: "x"})
	g.AddEdge(Edge{Relation: "declares", Src: "x", Dst: "b"})
	g.AddEdge(Edge{Relation: "declares", Src: "b", Dst: "y"})
	g.AddEdge(Edge{Relation: "declares", Src: "y", Dst: "c"})

	res, err := g.SynthesizeTransitiveClosure("declares", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	want := []EdgeKey{
		{Relation: "declares", Src: "a", Dst: "b"},
		{Relation: "declares", Src: "b", Dst: "c"},
	}
	if !slices.Equal(res.Added, want) {
		t.Errorf("Added = %v, want %v", res.Added, want)
	}
	if _, ok := g.Edge(EdgeKey{Relation: "declares", Src: "a", Dst: "c"}); ok {
		t.Error("walk passed through included node b")
	}
}

func TestSynthesizeTransitiveClosureErrors(t *testing.T) {
	if _, err := chain(t, false).SynthesizeTransitiveClosure("declares", []string{"a"}); !errors.Is(err, ErrNotTransitive) {
		t.Errorf("non-transitive = %v, want %v", err, ErrNotTransitive)
	}
	if _, err := chain(t, true).SynthesizeTransitiveClosure("nope", []string{"a"}); !errors.Is(err, ErrRelationNotFound) {
		t.Errorf("unknown relation = %v, want %v", err, ErrRelationNotFound)
	}
}

func TestPrune(t *testing.T) {
	g := chain(t, true)
	g.AddNode(Node{ID: "island"})
	g.AddEdge(Edge{Relation: "references", Src: "b", Dst: "island"})

	var changes []Change
	g.OnChange(func(c Change) { changes = append(changes, c) })

	if _, err := g.Prune([]string{"a", "c"}); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	if !slices.Equal(ids, []string{"a", "c"}) {
		t.Errorf("nodes = %v, want [a c]", ids)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if len(changes) != 1 || changes[0].Kind != Rewired {
		t.Errorf("changes = %v, want one rewired", changes)
	}
}
