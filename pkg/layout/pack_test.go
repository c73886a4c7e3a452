package layout

import (
	"slices"
	"testing"

	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

func TestPack(t *testing.T) {
	g := multigraph.New()
	g.AddNode(multigraph.Node{ID: "a", X: 1, Y: 2})
	g.AddNode(multigraph.Node{ID: "hidden", Hidden: true})
	g.AddNode(multigraph.Node{ID: "b", X: 3, Y: 4, Size: 2, Fixed: true})
	g.AddNode(multigraph.Node{ID: "c", X: 5, Y: 6})
	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "a", Dst: "c", Weight: 2})
	g.AddEdge(multigraph.Edge{Relation: "declares", Src: "a", Dst: "hidden"})
	g.AddEdge(multigraph.Edge{Relation: "references", Src: "c", Dst: "b"})

	nodes, edges, ids := Pack(g.Visible(nil))

	if !slices.Equal(ids, []string{"a", "b", "c"}) {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
	if len(nodes) != 3*forceatlas2.PPN {
		t.Errorf("len(nodes) = %d, want %d", len(nodes), 3*forceatlas2.PPN)
	}
	if len(edges) != 2*forceatlas2.PPE {
		t.Fatalf("len(edges) = %d, want %d", len(edges), 2*forceatlas2.PPE)
	}
	if err := forceatlas2.CheckBuffers(nodes, edges); err != nil {
		t.Fatalf("CheckBuffers() = %v", err)
	}

	// a->c is edge 0 with endpoints 0 and 2.
	if edges[forceatlas2.EdgeSource] != 0 || edges[forceatlas2.EdgeTarget] != 2 || edges[forceatlas2.EdgeWeight] != 2 {
		t.Errorf("edge 0 = %v, want [0 2 2]", edges[:forceatlas2.PPE])
	}
	if x, y := forceatlas2.Position(nodes, 1); x != 3 || y != 4 {
		t.Errorf("b = (%v, %v), want (3, 4)", x, y)
	}
	if !forceatlas2.IsFixed(nodes, 1) {
		t.Error("b should be fixed")
	}
	if m := nodes[forceatlas2.NodeMass]; m != 3 {
		t.Errorf("mass(a) = %v, want 3", m)
	}
	if c := nodes[forceatlas2.NodeConvergence]; c != 1 {
		t.Errorf("convergence(a) = %v, want 1", c)
	}

	rel := g.Visible([]string{"references"})
	_, edges, _ = Pack(rel)
	if len(edges) != forceatlas2.PPE {
		t.Errorf("references edges = %d values, want %d", len(edges), forceatlas2.PPE)
	}
}

func TestUnpackKeepsFixedPositions(t *testing.T) {
	g := multigraph.New()
	g.AddNode(multigraph.Node{ID: "free"})
	g.AddNode(multigraph.Node{ID: "pinned", X: 7, Y: 8, Fixed: true})

	nodes, _, ids := Pack(g.Visible(nil))
	forceatlas2.SetPosition(nodes, 0, 1, 1)
	forceatlas2.SetPosition(nodes, 1, 100, 100)
	Unpack(g, ids, nodes)

	free, _ := g.Node("free")
	pinned, _ := g.Node("pinned")
	if free.X != 1 || free.Y != 1 {
		t.Errorf("free = (%v, %v), want (1, 1)", free.X, free.Y)
	}
	if pinned.X != 7 || pinned.Y != 8 {
		t.Errorf("pinned = (%v, %v), want (7, 8)", pinned.X, pinned.Y)
	}
	if x, y := forceatlas2.Position(nodes, 1); x != 7 || y != 8 {
		t.Errorf("buffer pinned = (%v, %v), want model position (7, 8)", x, y)
	}
}

func TestScatter(t *testing.T) {
	build := func() *multigraph.Multigraph {
		g := multigraph.New()
		for _, id := range []string{"a", "b", "c"} {
			g.AddNode(multigraph.Node{ID: id})
		}
		g.AddNode(multigraph.Node{ID: "placed", X: 5, Y: 5})
		return g
	}

	g1, g2 := build(), build()
	if n := Scatter(g1, 42); n != 3 {
		t.Errorf("Scatter() = %d, want 3", n)
	}
	Scatter(g2, 42)

	if !slices.Equal(g1.Nodes(), g2.Nodes()) {
		t.Error("same seed produced different placements")
	}
	for _, n := range g1.Nodes() {
		if n.X == 0 && n.Y == 0 {
			t.Errorf("%s still at origin", n.ID)
		}
	}
	if p, _ := g1.Node("placed"); p.X != 5 || p.Y != 5 {
		t.Errorf("placed moved to (%v, %v)", p.X, p.Y)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"continuous", Continuous, false},
		{"", Continuous, false},
		{"single", SingleIteration, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
