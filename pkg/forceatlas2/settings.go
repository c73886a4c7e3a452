package forceatlas2

import (
	"fmt"
	"math"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
)

// Settings tunes the force model. The zero value is not valid; start from
// [DefaultSettings] or [InferSettings].
type Settings struct {
	// LinLogMode switches attraction to a logarithmic distance law, which
	// produces tighter clusters.
	LinLogMode bool `toml:"lin_log_mode" json:"linLogMode"`

	// OutboundAttractionDistribution divides attraction by the source mass,
	// pushing hubs to the periphery.
	OutboundAttractionDistribution bool `toml:"outbound_attraction_distribution" json:"outboundAttractionDistribution"`

	// AdjustSizes takes node sizes into account to prevent overlap.
	AdjustSizes bool `toml:"adjust_sizes" json:"adjustSizes"`

	EdgeWeightInfluence float64 `toml:"edge_weight_influence" json:"edgeWeightInfluence"`
	ScalingRatio        float64 `toml:"scaling_ratio" json:"scalingRatio"`

	// StrongGravityMode makes gravity independent of distance.
	StrongGravityMode bool    `toml:"strong_gravity_mode" json:"strongGravityMode"`
	Gravity           float64 `toml:"gravity" json:"gravity"`

	// SlowDown divides every displacement. Must be positive.
	SlowDown float64 `toml:"slow_down" json:"slowDown"`

	BarnesHutOptimize bool    `toml:"barnes_hut_optimize" json:"barnesHutOptimize"`
	BarnesHutTheta    float64 `toml:"barnes_hut_theta" json:"barnesHutTheta"`

	// AutoStopAverageTraction stops a continuous run once the average node
	// traction falls below it. Zero disables auto-stop.
	AutoStopAverageTraction float64 `toml:"auto_stop_average_traction" json:"autoStopAverageTraction"`
}

// DefaultSettings returns the classic ForceAtlas2 defaults.
func DefaultSettings() Settings {
	return Settings{
		EdgeWeightInfluence:     1,
		ScalingRatio:            1,
		Gravity:                 1,
		SlowDown:                1,
		BarnesHutTheta:          0.5,
		AutoStopAverageTraction: 1,
	}
}

// InferSettings returns settings suited to a graph with the given number of
// nodes: Barnes-Hut above 2000 nodes, and a slow-down growing with size.
func InferSettings(order int) Settings {
	s := DefaultSettings()
	s.BarnesHutOptimize = order > 2000
	s.StrongGravityMode = true
	s.Gravity = 0.05
	s.ScalingRatio = 10
	if order > 0 {
		s.SlowDown = 1 + math.Log(float64(order))
	}
	return s
}

// Validate rejects non-finite numbers, negative coefficients and a
// non-positive slow-down. The error carries INVALID_SETTINGS.
func (s Settings) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"edgeWeightInfluence", s.EdgeWeightInfluence},
		{"scalingRatio", s.ScalingRatio},
		{"gravity", s.Gravity},
		{"barnesHutTheta", s.BarnesHutTheta},
		{"autoStopAverageTraction", s.AutoStopAverageTraction},
	}
	for _, f := range fields {
		if err := checkNonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	if err := checkNonNegative("slowDown", s.SlowDown); err != nil {
		return err
	}
	if s.SlowDown == 0 {
		return invalid("slowDown", s.SlowDown, "must be > 0")
	}
	return nil
}

func checkNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(name, v, "must be a finite number")
	}
	if v < 0 {
		return invalid(name, v, "must be >= 0")
	}
	return nil
}

func invalid(name string, v float64, reason string) error {
	return herrors.Wrap(herrors.ErrCodeInvalidSettings, ErrInvalidSettings, "%s %s, got %s", name, reason, fmt.Sprint(v))
}
