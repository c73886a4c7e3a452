package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cafour/helveg-sub001/pkg/buildinfo"
	"github.com/cafour/helveg-sub001/pkg/cache"
	"github.com/cafour/helveg-sub001/pkg/config"
	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/graph"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
	"github.com/cafour/helveg-sub001/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "helveg"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Helveg lays out and explores code graphs",
		Long: `Helveg lays out typed code graphs with a continuous ForceAtlas2 simulation
and lets you fold, cut and prune them while the layout keeps running.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.Path()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.rootsCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	ch, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.Backend != cache.BackendRedis && cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}
	return pipeline.NewRunner(ch, keyer, c.Logger), nil
}

// newCache opens the configured backend. An unreachable backend degrades to
// no caching with a warning.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	ch, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		if cfg.Cache.Backend == cache.BackendRedis {
			c.Logger.Debug("redis unavailable", "addr", cfg.Cache.RedisAddr, "err", err)
			printWarning("Position cache disabled: %s", herrors.UserMessage(err))
			return cache.NewNullCache(), nil
		}
		return nil, err
	}
	return cache.Instrument(ch, "positions"), nil
}

// loadGraph reads a graph file and applies the configured main relation
// when the file does not name one.
func (c *CLI) loadGraph(path string) (*multigraph.Multigraph, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	prog := newProgress(c.Logger)
	data, g, err := graph.ReadGraphFile(path)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	prog.done(fmt.Sprintf("Loaded %s: %d nodes, %d edges", path, g.NodeCount(), g.EdgeCount()))
	if data.MainRelation == "" && cfg.Graph.MainRelation != "" {
		if _, ok := g.Relation(cfg.Graph.MainRelation); ok {
			g.SetMainRelation(cfg.Graph.MainRelation)
		}
	}
	return g, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseList parses a comma-separated list, dropping empty items.
func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// derivedPath returns input with its extension replaced by suffix.
func derivedPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
