package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraclim/atlas-cli/internal/boundary"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List the districts on record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openPool(ctx, "districts")
		if err != nil {
			return err
		}
		defer pool.Close()

		districts, err := boundary.NewStore(pool).ListDistricts(ctx)
		if err != nil {
			return err
		}
		for _, d := range districts {
			fmt.Println(d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(districtsCmd)
}
