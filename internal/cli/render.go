package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cafour/helveg-sub001/pkg/layout"
	"github.com/cafour/helveg-sub001/pkg/pipeline"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formats    string
		output     string
		scale      float64
		labels     bool
		iterations int
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Draw a laid-out graph as DOT or SVG",
		Long: `Draw a laid-out graph as DOT or SVG.

Nodes are pinned at the positions stored in the graph file (see 'layout').
Nodes without a position are scattered; pass --iterations to relax them
before drawing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Input:      args[0],
				Formats:    parseList(formats),
				Scale:      scale,
				Labels:     labels,
				Iterations: iterations,
				Seed:       seed,
				Mode:       layout.SingleIteration,
			}
			if len(opts.Formats) == 0 {
				opts.Formats = []string{pipeline.FormatSVG}
			}
			return c.runRender(cmd.Context(), opts, output)
		},
	}

	cmd.Flags().StringVarP(&formats, "format", "f", "svg", "output formats: svg, dot, json, positions (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: <input>)")
	cmd.Flags().Float64Var(&scale, "scale", pipeline.DefaultScale, "points per layout unit")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw node labels")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "layout iterations to run before drawing")
	cmd.Flags().Uint64Var(&seed, "seed", pipeline.DefaultSeed, "random seed for unplaced nodes")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string) error {
	relax := opts.Iterations > 0
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	opts.Layout = cfg.LayoutOptions(c.Logger)

	runner := pipeline.NewRunner(nil, nil, c.Logger)
	_, g, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	if n := layout.Scatter(g, opts.Seed); n > 0 {
		c.Logger.Debug("scattered unplaced nodes", "count", n)
	}
	if relax {
		if _, err := runner.Layout(ctx, g, opts); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	artifacts, err := runner.Render(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	base := output
	if base == "" {
		base = derivedPath(opts.Input, "")
	}
	printSuccess("Rendered %d nodes", g.NodeCount())
	for _, format := range opts.Formats {
		path := base + "." + extension(format)
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

func extension(format string) string {
	switch format {
	case pipeline.FormatPositions:
		return "positions.json"
	case pipeline.FormatJSON:
		return "rendered.json"
	}
	return format
}
