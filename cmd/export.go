package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terraclim/atlas-cli/internal/export"
	"github.com/terraclim/atlas-cli/internal/series"
)

var (
	exportVariables []string
	exportDistricts []string
	exportStart     string
	exportEnd       string
	exportFormat    string
	exportOut       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a time series as CSV or XLSX",
	Long:  "Exports one series, one variable across districts, or one district across variables. Multiple variables and multiple districts cannot be combined.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFormat != "csv" && exportFormat != "xlsx" {
			return eris.Errorf("unsupported format %q (want csv or xlsx)", exportFormat)
		}
		if len(exportVariables) > 1 && len(exportDistricts) > 1 {
			return eris.New("cannot combine multiple variables with multiple districts")
		}

		rng, err := parseRangeFlags(exportStart, exportEnd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := openPool(ctx, "export")
		if err != nil {
			return err
		}
		defer pool.Close()

		fetcher := series.NewFetcher(pool, nil)

		var (
			records []series.Record
			keys    []string
		)
		switch {
		case len(exportDistricts) > 1:
			keys = exportDistricts
			records, err = fetcher.FetchMultiDistrict(ctx, exportVariables[0], exportDistricts, rng)
		case len(exportVariables) > 1:
			keys = exportVariables
			records, err = fetcher.FetchMultiVariable(ctx, exportDistricts[0], exportVariables, rng)
		default:
			keys = []string{exportVariables[0]}
			var points []series.Point
			points, err = fetcher.FetchSeries(ctx, exportVariables[0], exportDistricts[0], rng)
			records = series.ToRecords(points, keys[0])
		}
		if err != nil {
			return err
		}
		records = export.FillMonths(records, rng.Start, rng.End)

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("atlas_%s.%s", strings.Join(exportVariables, "_"), exportFormat)
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close()

		if exportFormat == "xlsx" {
			err = export.WriteXLSX(f, exportVariables[0], keys, records)
		} else {
			err = export.WriteCSV(f, keys, records)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d rows to %s\n", len(records), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringSliceVar(&exportVariables, "variable", nil, "variable id(s) (required)")
	exportCmd.Flags().StringSliceVar(&exportDistricts, "district", nil, "district name(s) (required)")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "start date YYYY-MM-DD (required)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "end date YYYY-MM-DD (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default atlas_<variable>.<format>)")
	exportCmd.MarkFlagRequired("variable")
	exportCmd.MarkFlagRequired("district")
	rootCmd.AddCommand(exportCmd)
}
