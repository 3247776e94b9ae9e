package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/kafparse/internal/httpapi"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported languages, models and head policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LANGUAGE\tMODEL\tHEADS")
			for _, m := range httpapi.Models() {
				// The first policy is the language default.
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Language, m.Model, strings.Join(m.Heads, ","))
			}
			return w.Flush()
		},
	}
}
