package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cafour/helveg-sub001/pkg/cache"
	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/graph"
	"github.com/cafour/helveg-sub001/pkg/layout"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
	"github.com/cafour/helveg-sub001/pkg/observability"
	"github.com/cafour/helveg-sub001/pkg/render/nodelink"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// A nil keyer means the default keyer and a nil cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	loadStart := time.Now()
	data, g, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Input = data
	result.Graph = g
	result.Stats.LoadTime = time.Since(loadStart)

	// Stage 2: Prune
	if len(opts.Include) > 0 {
		res, err := g.Prune(opts.Include)
		if err != nil {
			return nil, fmt.Errorf("prune: %w", err)
		}
		result.Stats.Pruned = len(res.Removed)
		result.Stats.Synthetic = len(res.Added)
		r.Logger.Info("pruned graph", "removed", len(res.Removed), "synthetic", len(res.Added))
	}
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.GraphHash = cache.Hash(graph.Canonical(graph.FromModel(g)))
	key := r.Keyer.PositionsKey(result.GraphHash, cache.PositionKeyOpts{
		Relations: opts.Layout.Relations,
		Mode:      opts.Mode.String(),
	})

	r.Logger.Info("loaded graph",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.LoadTime)

	// Stage 3: Seed
	result.CacheInfo.PositionsHit, result.Stats.Scattered = r.Seed(ctx, g, key, opts)

	// Stage 4: Layout
	layoutStart := time.Now()
	stopped, err := r.Layout(ctx, g, opts)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stopped = stopped
	result.Stats.Iterations = stopped.Iterations
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	r.Logger.Info("computed layout",
		"iterations", stopped.Iterations,
		"reason", stopped.Reason,
		"duration", result.Stats.LayoutTime)

	// Stage 5: Persist
	r.Persist(ctx, g, key, opts)

	// Stage 6: Render
	renderStart := time.Now()
	artifacts, err := r.Render(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	if len(opts.Formats) > 0 {
		r.Logger.Info("rendered outputs",
			"formats", opts.Formats,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// Load reads the input graph and builds its model.
func (r *Runner) Load(ctx context.Context, opts Options) (graph.Graph, *multigraph.Multigraph, error) {
	src := opts.source()
	observability.Pipeline().OnLoadStart(ctx, src)
	start := time.Now()

	var (
		data graph.Graph
		g    *multigraph.Multigraph
		err  error
	)
	if opts.Source != nil {
		data, g, err = graph.ReadGraph(opts.Source)
	} else {
		data, g, err = graph.ReadGraphFile(opts.Input)
	}

	n := 0
	if g != nil {
		n = g.NodeCount()
	}
	observability.Pipeline().OnLoadComplete(ctx, src, n, time.Since(start), err)
	return data, g, err
}

// Seed places nodes from the cached positions under key and scatters the
// nodes still at the origin. It reports whether the cache was hit and how
// many nodes were scattered. Cache failures only cost the warm start.
func (r *Runner) Seed(ctx context.Context, g *multigraph.Multigraph, key string, opts Options) (bool, int) {
	hit := false
	if !opts.Refresh {
		data, ok, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("position cache unavailable", "err", err)
		case ok:
			p, err := graph.UnmarshalPositions(data)
			if err != nil {
				r.Logger.Warn("discarding corrupt cached positions", "err", err)
				break
			}
			placed := graph.ApplyPositions(g, p)
			hit = placed > 0
			r.Logger.Debug("seeded positions from cache", "placed", placed)
		}
	}
	scattered := layout.Scatter(g, opts.Seed)
	return hit, scattered
}

// Layout runs the supervisor over g until the run stops. A continuous run
// is stopped after opts.Timeout or when ctx is cancelled; positions reached
// so far stay in g either way.
func (r *Runner) Layout(ctx context.Context, g *multigraph.Multigraph, opts Options) (stopped layout.StoppedEvent, err error) {
	r.applyLogger(&opts)
	observability.Pipeline().OnLayoutStart(ctx, g.NodeCount())
	start := time.Now()
	defer func() {
		observability.Pipeline().OnLayoutComplete(ctx, stopped.Iterations, time.Since(start), err)
	}()

	lopts := opts.Layout
	if lopts.Logger == nil {
		lopts.Logger = opts.Logger
	}
	if opts.Mode == layout.SingleIteration && opts.Iterations > 0 {
		lopts.SingleIterations = opts.Iterations
	}
	sup, err := layout.NewSupervisor(g, lopts)
	if err != nil {
		return stopped, err
	}
	defer sup.Kill()

	done := make(chan layout.StoppedEvent, 1)
	sup.OnStopped(func(e layout.StoppedEvent) {
		select {
		case done <- e:
		default:
		}
	})
	if opts.OnProgress != nil {
		sup.OnProgress(opts.OnProgress)
	}

	if err := sup.Start(ctx, opts.Mode); err != nil {
		return stopped, err
	}

	var timeout <-chan time.Time
	if opts.Mode == layout.Continuous && opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case stopped = <-done:
	case <-timeout:
		r.Logger.Debug("layout timeout reached, stopping", "timeout", opts.Timeout)
		sup.Stop(context.Background())
		stopped = <-done
	case <-ctx.Done():
		sup.Stop(context.Background())
		stopped = <-done
		return stopped, ctx.Err()
	}

	if stopped.Reason == layout.StopAbnormal {
		if stopped.Err != nil {
			return stopped, herrors.Wrap(herrors.ErrCodeAbnormalStop, stopped.Err, "layout stopped abnormally")
		}
		return stopped, herrors.New(herrors.ErrCodeAbnormalStop, "layout stopped abnormally")
	}
	return stopped, nil
}

// Persist stores the positions of g under key. Failures are logged.
func (r *Runner) Persist(ctx context.Context, g *multigraph.Multigraph, key string, opts Options) {
	data, err := graph.MarshalPositions(g)
	if err == nil {
		err = r.Cache.Set(ctx, key, data, opts.TTL)
	}
	if err != nil {
		r.Logger.Warn("failed to cache positions", "err", err)
	}
}

// Render produces every requested format from the current state of g.
func (r *Runner) Render(ctx context.Context, g *multigraph.Multigraph, opts Options) (artifacts map[string][]byte, err error) {
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	defer func() {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	}()

	artifacts = make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		var out []byte
		switch format {
		case FormatJSON:
			out, err = graph.MarshalGraph(g)
		case FormatPositions:
			out, err = graph.MarshalPositions(g)
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(g, nodelink.Options{
					Relations: opts.Layout.Relations,
					Scale:     opts.Scale,
					Labels:    opts.Labels,
				})
			}
			if format == FormatDOT {
				out = []byte(dot)
			} else {
				out, err = nodelink.RenderSVG(ctx, dot)
			}
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", format, err)
		}
		artifacts[format] = out
	}
	return artifacts, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
