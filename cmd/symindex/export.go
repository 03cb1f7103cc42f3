package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the merged index to stdout",
		Long: `Write every loaded entry, in order, as a single Doxygen searchData
script. With --json the same records are written as a JSON array.
Malformed records skipped while loading are not exported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, _, err := g.loadIndex(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(idx)
			}
			return idx.Encode(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write a JSON array instead of a script")
	return cmd
}
