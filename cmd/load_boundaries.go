package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraclim/atlas-cli/internal/boundary"
)

var (
	loadShapefile string
	loadNameField string
)

var loadBoundariesCmd = &cobra.Command{
	Use:   "load-boundaries",
	Short: "Load district polygons from a shapefile into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openPool(ctx, "load")
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := boundary.NewStore(pool).LoadShapefile(ctx, loadShapefile, loadNameField)
		if err != nil {
			return err
		}

		fmt.Printf("Loaded %d districts\n", n)
		return nil
	},
}

func init() {
	loadBoundariesCmd.Flags().StringVar(&loadShapefile, "shapefile", "", "path to the boundary .shp file (required)")
	loadBoundariesCmd.Flags().StringVar(&loadNameField, "name-field", "", "DBF attribute holding the district name (default DISTRICT)")
	loadBoundariesCmd.MarkFlagRequired("shapefile")
	rootCmd.AddCommand(loadBoundariesCmd)
}
