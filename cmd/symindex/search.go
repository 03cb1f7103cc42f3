package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0muji4/symindex/internal/symbol"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "search <prefix>",
		Short: "Search symbols by key prefix",
		Long: `Search for symbols whose key starts with a prefix.

Search semantics:
  - Case-insensitive prefix match on the search key
  - Punctuation may be typed literally: "abs(" matches abs_28int_29_2265
  - Results keep index order

Examples:
  symindex search abs
  symindex search "abs(int" --format=human
  symindex search atomic --limit=5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, cfg, err := g.loadIndex(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Limit
			}
			entries := symbol.Take(idx.Search(args[0]), limit)
			return writeEntries(cmd, entries, format)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results (0 for all)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json, human)")
	return cmd
}

func writeEntries(cmd *cobra.Command, entries []symbol.Entry, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		if entries == nil {
			entries = []symbol.Entry{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "human":
		for _, e := range entries {
			fmt.Fprintf(out, "%s  (%s)\n", e.Label, e.Key)
			for _, g := range symbol.GroupByScope(e.Targets) {
				urls := make([]string, len(g.Targets))
				for i, t := range g.Targets {
					urls[i] = t.URL
				}
				fmt.Fprintf(out, "    %s: %s\n", g.Scope, strings.Join(urls, " "))
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
