package layout

import (
	"context"
	"time"

	"github.com/cafour/helveg-sub001/pkg/multigraph"
	"github.com/cafour/helveg-sub001/pkg/observability"
)

// Engine pairs a graph model with its layout supervisor and exposes the
// operations available to a user interface. Graph operations are timed and
// reported through observability.Graph; layout restarts caused by them are
// handled by the supervisor.
type Engine struct {
	*Supervisor
	Graph *multigraph.Multigraph
}

// NewEngine creates an engine for g.
func NewEngine(g *multigraph.Multigraph, opts Options) (*Engine, error) {
	s, err := NewSupervisor(g, opts)
	if err != nil {
		return nil, err
	}
	return &Engine{Supervisor: s, Graph: g}, nil
}

func instrument(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.Graph().OnOperation(ctx, op, time.Since(start), err)
	return err
}

// ToggleNode collapses or expands id along the main relation.
func (e *Engine) ToggleNode(ctx context.Context, id string) error {
	return instrument(ctx, "toggle", func() error { return e.Graph.ToggleNode(id) })
}

// CollapseNode hides the descendants of id.
func (e *Engine) CollapseNode(ctx context.Context, id, relation string) error {
	return instrument(ctx, "collapse", func() error { return e.Graph.CollapseNode(id, relation) })
}

// ExpandNode reveals the descendants of id.
func (e *Engine) ExpandNode(ctx context.Context, id string, opts multigraph.ExpandOptions) error {
	return instrument(ctx, "expand", func() error { return e.Graph.ExpandNode(id, opts) })
}

// Cut removes id, or its whole reachable set.
func (e *Engine) Cut(ctx context.Context, id string, opts multigraph.CutOptions) ([]string, error) {
	var removed []string
	err := instrument(ctx, "cut", func() (err error) {
		removed, err = e.Graph.Cut(id, opts)
		return err
	})
	return removed, err
}

// Prune reduces the model to the included nodes.
func (e *Engine) Prune(ctx context.Context, included []string) (multigraph.ClosureResult, error) {
	var res multigraph.ClosureResult
	err := instrument(ctx, "prune", func() (err error) {
		res, err = e.Graph.Prune(included)
		return err
	})
	return res, err
}

// FindRoots returns the visible roots of relation.
func (e *Engine) FindRoots(relation string) []string {
	return e.Graph.FindRoots(relation)
}

// Snapshot returns the renderer's view of the model.
func (e *Engine) Snapshot() multigraph.Snapshot {
	return e.Graph.Snapshot()
}
