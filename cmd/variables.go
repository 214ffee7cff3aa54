package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraclim/atlas-cli/internal/catalog"
)

var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the variables in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("variables"); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tUNIT\tYEARS\tRELATION")
		for _, d := range catalog.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d-%d\t%s\n", d.ID, d.Label, d.Unit, d.StartYear, d.EndYear, d.Relation)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(variablesCmd)
}
