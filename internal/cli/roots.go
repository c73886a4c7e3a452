package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootsCommand creates the roots command.
func (c *CLI) rootsCommand() *cobra.Command {
	var relation string

	cmd := &cobra.Command{
		Use:   "roots [graph.json]",
		Short: "List the visible nodes with no incoming edge of a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.loadGraph(args[0])
			if err != nil {
				return err
			}
			if relation == "" {
				relation = g.MainRelation()
			}
			if _, ok := g.Relation(relation); !ok {
				return fmt.Errorf("unknown relation %q", relation)
			}
			roots := g.FindRoots(relation)
			for _, id := range roots {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			c.Logger.Debug("found roots", "relation", relation, "count", len(roots))
			return nil
		},
	}

	cmd.Flags().StringVarP(&relation, "relation", "r", "", "relation to inspect (default: the main relation)")
	return cmd
}
