// Package pipeline runs the batch path of helveg: load a graph, prune it,
// lay it out, remember the result and render it.
//
// The CLI's layout and render commands and the ops server all go through a
// [Runner], so caching and defaults behave the same everywhere.
//
// # Stages
//
//  1. Load: read the graph JSON and build the model
//  2. Prune: optionally reduce the model to an included set, synthesizing
//     transitive-closure edges for the removed nodes
//  3. Seed: place nodes from the position cache, scatter the rest
//  4. Layout: run the supervisor until it stops
//  5. Persist: store the new positions in the cache
//  6. Render: produce the requested output formats
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:   "graph.json",
//	    Mode:    layout.Continuous,
//	    Timeout: 10 * time.Second,
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	svg := result.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cafour/helveg-sub001/pkg/graph"
	"github.com/cafour/helveg-sub001/pkg/layout"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultSeed is the default random seed for initial placement.
	DefaultSeed = uint64(42)

	// DefaultIterations is the run length of a single-mode pipeline layout.
	DefaultIterations = 500

	// DefaultScale converts layout units to points when rendering.
	DefaultScale = 10.0
)

// Output formats.
const (
	FormatJSON      = "json"      // graph with positions
	FormatPositions = "positions" // id → {x, y}
	FormatDOT       = "dot"
	FormatSVG       = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:      true,
	FormatPositions: true,
	FormatDOT:       true,
	FormatSVG:       true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run.
type Options struct {
	// Input is the path of the graph JSON. Ignored when Source is set.
	Input string
	// Source, when non-nil, is read instead of Input.
	Source io.Reader

	// Include prunes the model to these node ids. Empty keeps everything.
	Include []string

	// Mode selects a bounded or a continuous run.
	Mode layout.Mode
	// Iterations is the run length in single mode.
	Iterations int
	// Timeout stops a continuous run that has not auto-stopped. Zero waits
	// for auto-stop or cancellation.
	Timeout time.Duration

	// Layout configures the supervisor. A nil Layout.Logger means Logger.
	Layout layout.Options

	// OnProgress receives the supervisor's progress reports.
	OnProgress func(layout.ProgressEvent)

	Seed    uint64
	Refresh bool          // ignore cached positions
	TTL     time.Duration // lifetime of cached positions, zero = forever

	Formats []string
	Scale   float64
	Labels  bool

	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults validates options and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" && o.Source == nil {
		return fmt.Errorf("input is required")
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Mode == layout.SingleIteration && o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// source names the input for logs and hooks.
func (o *Options) source() string {
	if o.Source != nil {
		return "<reader>"
	}
	return o.Input
}

// ValidateFormat checks a single output format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format %q: must be json, positions, dot or svg", format)
	}
	return nil
}

// ValidateFormats checks every output format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result holds the outcome of a pipeline run.
type Result struct {
	Input     graph.Graph
	Graph     *multigraph.Multigraph
	GraphHash string
	Artifacts map[string][]byte
	Stopped   layout.StoppedEvent
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats describes a pipeline run.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	Pruned     int
	Synthetic  int
	Scattered  int
	Iterations int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo reports which stages were served from the cache.
type CacheInfo struct {
	PositionsHit bool
}
