package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0muji4/symindex/internal/symbol"
)

func newLookupCmd(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "lookup <key>",
		Short: "Show one symbol by its exact key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, _, err := g.loadIndex(cmd)
			if err != nil {
				return err
			}
			e, ok := idx.Lookup(args[0])
			if !ok {
				return fmt.Errorf("symbol %q not found", args[0])
			}
			return writeEntries(cmd, []symbol.Entry{e}, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json, human)")
	return cmd
}
