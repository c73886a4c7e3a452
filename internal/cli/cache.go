package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cafour/helveg-sub001/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout position cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layout positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			ch, err := cache.Open(cmd.Context(), cfg.CacheOptions())
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer ch.Close()

			if err := ch.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %s cache", backendName(cfg.Cache.Backend))
			if fc, ok := ch.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached positions are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			switch cfg.Cache.Backend {
			case cache.BackendRedis:
				fmt.Fprintf(cmd.OutOrStdout(), "redis://%s/%s*\n", cfg.Cache.RedisAddr, cfg.Cache.Prefix)
			case cache.BackendNone:
				printInfo("Caching is disabled")
			default:
				dir := cfg.Cache.Dir
				if dir == "" {
					if dir, err = cache.DefaultDir(); err != nil {
						return fmt.Errorf("get cache dir: %w", err)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			return nil
		},
	}
}

func backendName(b string) string {
	if b == "" {
		return cache.BackendFile
	}
	return b
}
