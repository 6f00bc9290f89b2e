package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/deno-adapter/pkg/alias"
)

func aliasesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Print the module alias table",
		Long: `Print the module substitutions applied to the server build.

Examples:
  deno-adapter aliases
  deno-adapter aliases --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			table := alias.Table()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, a := range table {
				fmt.Fprintf(tw, "%s\t%s\n", a.Find, a.Replacement)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")

	return cmd
}
