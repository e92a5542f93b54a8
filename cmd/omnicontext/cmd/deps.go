package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/internal/output"
)

func newDepsCmd() *cobra.Command {
	var direction string
	var depth int

	cmd := &cobra.Command{
		Use:   "deps <symbol>",
		Short: "List a symbol's upstream or downstream dependencies in the call graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(cmd.Flag("root").Value.String())
			if err != nil {
				return err
			}
			a, err := openApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			var fqns []string
			switch direction {
			case "upstream":
				fqns = a.graph.Upstream(args[0], depth)
			case "downstream":
				fqns = a.graph.Downstream(args[0], depth)
			default:
				return fmt.Errorf("unknown --direction %q: must be upstream or downstream", direction)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("🕸️ ", "%d %s dependencies of %s", len(fqns), direction, args[0])
			for _, fqn := range fqns {
				out.Status("", "  "+fqn)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "downstream", "upstream or downstream")
	cmd.Flags().IntVar(&depth, "depth", 2, "maximum traversal depth")
	return cmd
}
