package nodelink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

func sample(t *testing.T) *multigraph.Multigraph {
	t.Helper()
	g := multigraph.New()
	g.AddRelation(multigraph.Relation{Name: "declares", Transitive: true})
	g.AddRelation(multigraph.Relation{Name: "references"})
	g.AddNode(multigraph.Node{ID: "a", Label: "Alpha", X: 1.5, Y: -2})
	g.AddNode(multigraph.Node{ID: "b", X: 3, Y: 4, Fixed: true})
	g.AddNode(multigraph.Node{ID: "c", Hidden: true})
	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "a", Dst: "b"})
	g.AddEdge(multigraph.Edge{Relation: "references", Src: "b", Dst: "a"})
	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "a", Dst: "c"})
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(t), Options{Scale: 10, Labels: true})

	wants := []string{
		`"a" [label="Alpha", pos="15.00,-20.00!", width=0.10];`,
		`"b" [label="b", pos="30.00,40.00!", width=0.10, peripheries=2];`,
		`"a" -> "b" [color="#4e79a7"];`,
		`"b" -> "a" [color="#f28e2b"];`,
	}
	for _, want := range wants {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"c"`) {
		t.Error("hidden node was drawn")
	}
}

func TestToDOTOptions(t *testing.T) {
	dot := ToDOT(sample(t), Options{Relations: []string{"declares"}})
	if strings.Contains(dot, `"b" -> "a"`) {
		t.Error("filtered relation was drawn")
	}
	if !strings.Contains(dot, `pos="1.50,-2.00!"`) {
		t.Errorf("zero scale should mean 1:\n%s", dot)
	}
	if !strings.Contains(dot, `label=""`) {
		t.Error("labels drawn without Options.Labels")
	}
}

func TestToDOTSyntheticAndCollapsed(t *testing.T) {
	g := multigraph.New()
	g.AddRelation(multigraph.Relation{Name: "declares", Transitive: true})
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(multigraph.Node{ID: id})
	}
	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "a", Dst: "b"})
	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "b", Dst: "c"})
	if _, err := g.SynthesizeTransitiveClosure("declares", []string{"a", "c"}); err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(g, Options{})
	if !strings.Contains(dot, `"a" -> "c" [color="#4e79a7", style=dashed];`) {
		t.Errorf("synthetic edge not dashed:\n%s", dot)
	}

	g.CollapseNode("a", "declares")
	if dot := ToDOT(g, Options{}); !strings.Contains(dot, "fillcolor=lightgrey") {
		t.Errorf("collapsed node not grey:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := normalizeViewBox(in)
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if string(out) != want {
		t.Errorf("normalizeViewBox() = %s, want %s", out, want)
	}

	plain := []byte("<svg><g/></svg>")
	if !bytes.Equal(normalizeViewBox(plain), plain) {
		t.Error("svg without viewBox was modified")
	}
}
