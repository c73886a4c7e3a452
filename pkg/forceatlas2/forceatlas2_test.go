package forceatlas2

import (
	"errors"
	"math"
	"slices"
	"testing"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
)

// ring builds n nodes on a circle connected in a cycle.
func ring(n int) (nodes, edges []float64) {
	nodes = NewNodeBuffer(n)
	edges = NewEdgeBuffer(n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		SetNode(nodes, i, 10*math.Cos(a), 10*math.Sin(a)+float64(i%3), 3, 1, false)
		SetEdge(edges, i, i, (i+1)%n, 1)
	}
	return nodes, edges
}

func TestDefaultSettingsValid(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("DefaultSettings().Validate() = %v", err)
	}
	if err := InferSettings(5000).Validate(); err != nil {
		t.Errorf("InferSettings().Validate() = %v", err)
	}
	if !InferSettings(5000).BarnesHutOptimize {
		t.Error("InferSettings(5000) should enable Barnes-Hut")
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"NaN gravity", func(s *Settings) { s.Gravity = math.NaN() }},
		{"negative gravity", func(s *Settings) { s.Gravity = -1 }},
		{"negative scaling", func(s *Settings) { s.ScalingRatio = -0.5 }},
		{"negative edge weight influence", func(s *Settings) { s.EdgeWeightInfluence = -1 }},
		{"negative theta", func(s *Settings) { s.BarnesHutTheta = -0.1 }},
		{"zero slowdown", func(s *Settings) { s.SlowDown = 0 }},
		{"infinite slowdown", func(s *Settings) { s.SlowDown = math.Inf(1) }},
		{"negative auto stop", func(s *Settings) { s.AutoStopAverageTraction = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			err := s.Validate()
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Validate() = %v, want %v", err, ErrInvalidSettings)
			}
			if !herrors.Is(err, herrors.ErrCodeInvalidSettings) {
				t.Errorf("code = %v, want %v", herrors.GetCode(err), herrors.ErrCodeInvalidSettings)
			}
		})
	}

	s := DefaultSettings()
	s.Gravity = 0
	s.AutoStopAverageTraction = 0
	if err := s.Validate(); err != nil {
		t.Errorf("zero gravity and auto-stop should be valid: %v", err)
	}
}

func TestCheckBuffers(t *testing.T) {
	nodes, edges := ring(4)
	if err := CheckBuffers(nodes, edges); err != nil {
		t.Fatalf("CheckBuffers() = %v", err)
	}

	tests := []struct {
		name  string
		nodes []float64
		edges []float64
		want  error
	}{
		{"short node buffer", nodes[:len(nodes)-1], edges, ErrBufferLength},
		{"short edge buffer", nodes, edges[:len(edges)-1], ErrBufferLength},
		{"endpoint out of range", nodes, []float64{0, 4, 1}, ErrEdgeEndpoint},
		{"negative endpoint", nodes, []float64{-1, 0, 1}, ErrEdgeEndpoint},
		{"fractional endpoint", nodes, []float64{0.5, 1, 1}, ErrEdgeEndpoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckBuffers(tt.nodes, tt.edges); !errors.Is(err, tt.want) {
				t.Errorf("CheckBuffers() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIterateMovesNodes(t *testing.T) {
	nodes, edges := ring(6)
	before := slices.Clone(nodes)

	meta := Iterate(DefaultSettings(), nodes, edges)

	if meta.Moving != 6 {
		t.Errorf("Moving = %d, want 6", meta.Moving)
	}
	if meta.GlobalTraction <= 0 {
		t.Errorf("GlobalTraction = %v, want > 0", meta.GlobalTraction)
	}
	moved := false
	for i := 0; i < 6; i++ {
		x0, y0 := Position(before, i)
		x1, y1 := Position(nodes, i)
		if x0 != x1 || y0 != y1 {
			moved = true
		}
		if math.IsNaN(x1) || math.IsNaN(y1) {
			t.Fatalf("node %d position is NaN", i)
		}
	}
	if !moved {
		t.Error("no node moved")
	}
}

func TestIterateFixedNodes(t *testing.T) {
	for _, bh := range []bool{false, true} {
		nodes, edges := ring(8)
		SetNode(nodes, 2, 5, 5, 3, 1, true)

		s := DefaultSettings()
		s.BarnesHutOptimize = bh
		for i := 0; i < 50; i++ {
			Iterate(s, nodes, edges)
		}
		if x, y := Position(nodes, 2); x != 5 || y != 5 {
			t.Errorf("barnesHut=%v: fixed node moved to (%v, %v)", bh, x, y)
		}
	}
}

func TestIterateDeterministic(t *testing.T) {
	for _, s := range []Settings{DefaultSettings(), InferSettings(10)} {
		a, edges := ring(12)
		b := slices.Clone(a)
		for i := 0; i < 20; i++ {
			Iterate(s, a, edges)
			Iterate(s, b, edges)
		}
		if !slices.Equal(a, b) {
			t.Errorf("settings %+v: runs diverged", s)
		}
	}
}

func TestIterateModes(t *testing.T) {
	variants := map[string]func(*Settings){
		"linlog":      func(s *Settings) { s.LinLogMode = true },
		"outbound":    func(s *Settings) { s.OutboundAttractionDistribution = true },
		"adjustSizes": func(s *Settings) { s.AdjustSizes = true },
		"strong":      func(s *Settings) { s.StrongGravityMode = true },
		"barnesHut":   func(s *Settings) { s.BarnesHutOptimize = true },
		"all": func(s *Settings) {
			s.LinLogMode = true
			s.AdjustSizes = true
			s.BarnesHutOptimize = true
			s.OutboundAttractionDistribution = true
		},
	}
	for name, modify := range variants {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			modify(&s)
			nodes, edges := ring(10)
			for i := 0; i < 30; i++ {
				Iterate(s, nodes, edges)
			}
			for i := 0; i < NodeCount(nodes); i++ {
				x, y := Position(nodes, i)
				if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
					t.Fatalf("node %d at (%v, %v)", i, x, y)
				}
			}
		})
	}
}

func TestBarnesHutApproximatesExact(t *testing.T) {
	exact, _ := ring(20)
	approx := slices.Clone(exact)

	s := DefaultSettings()
	s.Gravity = 0
	repulse(s, exact)
	s.BarnesHutTheta = 0
	repulseBarnesHut(s, approx)

	for i := 0; i < 20; i++ {
		o := i * PPN
		for _, k := range []int{NodeDX, NodeDY} {
			if d := math.Abs(exact[o+k] - approx[o+k]); d > 1e-9 {
				t.Errorf("node %d force %d: exact %v, barnes-hut %v", i, k, exact[o+k], approx[o+k])
			}
		}
	}
}

func TestBarnesHutCoincidentNodes(t *testing.T) {
	nodes := NewNodeBuffer(3)
	for i := 0; i < 3; i++ {
		SetNode(nodes, i, 1, 1, 1, 1, false)
	}
	s := DefaultSettings()
	s.BarnesHutOptimize = true
	Iterate(s, nodes, nil)
	for i := 0; i < 3; i++ {
		if x, y := Position(nodes, i); math.IsNaN(x) || math.IsNaN(y) {
			t.Fatalf("node %d position is NaN", i)
		}
	}
}

func TestAverageTraction(t *testing.T) {
	m := Metadata{GlobalTraction: 12, Moving: 4}
	if got := m.AverageTraction(); got != 3 {
		t.Errorf("AverageTraction() = %v, want 3", got)
	}
}

func TestIterateEmpty(t *testing.T) {
	meta := Iterate(DefaultSettings(), nil, nil)
	if meta.Moving != 0 || meta.AverageTraction() != 0 {
		t.Errorf("Iterate(empty) = %+v", meta)
	}
}
