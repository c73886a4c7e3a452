package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cafour/helveg-sub001/pkg/layout"
	"github.com/cafour/helveg-sub001/pkg/pipeline"
)

// layoutFlags are shared by commands that run a layout.
type layoutFlags struct {
	output     string
	mode       string
	iterations int
	timeout    time.Duration
	include    string
	noCache    bool
	refresh    bool
	seed       uint64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "continuous", "layout mode: continuous, single")
	cmd.Flags().IntVarP(&f.iterations, "iterations", "n", pipeline.DefaultIterations, "iterations in single mode")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "stop a continuous layout after this long (0 = wait for auto-stop)")
	cmd.Flags().StringVar(&f.include, "include", "", "comma-separated node ids to keep; the rest is pruned")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the position cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached positions")
	cmd.Flags().Uint64Var(&f.seed, "seed", pipeline.DefaultSeed, "random seed for initial placement")
}

// layoutOptions builds pipeline options from the flags and the configuration.
func (c *CLI) layoutOptions(input string, f *layoutFlags) (pipeline.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return pipeline.Options{}, err
	}
	mode, err := layout.ParseMode(f.mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Input:      input,
		Include:    parseList(f.include),
		Mode:       mode,
		Iterations: f.iterations,
		Timeout:    f.timeout,
		Layout:     cfg.LayoutOptions(c.Logger),
		Seed:       f.seed,
		Refresh:    f.refresh,
		TTL:        cfg.Cache.TTL.Duration,
		Logger:     c.Logger,
	}, nil
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute node positions for a graph",
		Long: `Compute node positions for a graph.

The layout command reads a graph.json file, runs ForceAtlas2 until it
converges (or --timeout elapses) and writes the graph back out with
positions. Positions are cached by graph structure, so running the command
again on the same graph starts from the previous result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// runLayout runs the pipeline while a second goroutine turns progress
// reports into spinner updates.
func (c *CLI) runLayout(ctx context.Context, input string, flags *layoutFlags) error {
	opts, err := c.layoutOptions(input, flags)
	if err != nil {
		return err
	}
	opts.Formats = []string{pipeline.FormatJSON}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	progress := make(chan layout.ProgressEvent, 16)
	opts.OnProgress = func(e layout.ProgressEvent) {
		select {
		case progress <- e:
		default:
		}
	}

	// progress is never closed: a late report from a torn-down worker may
	// still arrive after Execute returns.
	done := make(chan struct{})

	var result *pipeline.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		var err error
		result, err = runner.Execute(gctx, opts)
		return err
	})
	g.Go(func() error {
		for {
			select {
			case e := <-progress:
				spinner.SetMessage(fmt.Sprintf("Computing layout... %d iterations, traction %.3f",
					e.Iterations, e.Metadata.AverageTraction()))
			case <-done:
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	outputPath := flags.output
	if outputPath == "" {
		outputPath = derivedPath(input, ".layout.json")
	}
	if err := os.WriteFile(outputPath, result.Artifacts[pipeline.FormatJSON], 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete (%s after %d iterations)", result.Stopped.Reason, result.Stats.Iterations)
	printFile(outputPath)
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.PositionsHit)
	if result.Stats.Pruned > 0 {
		printDetail("pruned %d nodes, synthesized %d edges", result.Stats.Pruned, result.Stats.Synthetic)
	}
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)

	return nil
}
