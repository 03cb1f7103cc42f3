package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate payload files and report malformed records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, _, err := g.loadIndex(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warnings := idx.Warnings()
			for _, w := range warnings {
				fmt.Fprintln(out, w)
			}
			fmt.Fprintf(out, "%d entries, %d malformed records skipped\n", idx.Len(), len(warnings))
			if len(warnings) > 0 {
				return fmt.Errorf("%d malformed records", len(warnings))
			}
			return nil
		},
	}
}
