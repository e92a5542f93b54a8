package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnicontext/omnicontext/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var short bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(version.Info())
			case short:
				fmt.Fprintln(out, version.Version)
				return nil
			default:
				fmt.Fprintln(out, version.String())
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print build info as JSON")
	return cmd
}
