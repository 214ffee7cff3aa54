package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terraclim/atlas-cli/internal/series"
)

var (
	fetchVariable string
	fetchDistrict string
	fetchStart    string
	fetchEnd      string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a time series and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := parseRangeFlags(fetchStart, fetchEnd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := openPool(ctx, "fetch")
		if err != nil {
			return err
		}
		defer pool.Close()

		points, err := series.NewFetcher(pool, nil).FetchSeries(ctx, fetchVariable, fetchDistrict, rng)
		if err != nil {
			return err
		}
		if points == nil {
			points = []series.Point{}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	},
}

func parseRangeFlags(start, end string) (series.Range, error) {
	if start == "" || end == "" {
		return series.Range{}, eris.New("--start and --end are required")
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return series.Range{}, eris.Wrapf(err, "parse --start %q", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return series.Range{}, eris.Wrapf(err, "parse --end %q", end)
	}
	if s.After(e) {
		return series.Range{}, eris.New("--start must not be after --end")
	}
	return series.Range{Start: s, End: e}, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchVariable, "variable", "", "variable id (required)")
	fetchCmd.Flags().StringVar(&fetchDistrict, "district", "", "district name (required)")
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "start date YYYY-MM-DD (required)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "end date YYYY-MM-DD (required)")
	fetchCmd.MarkFlagRequired("variable")
	fetchCmd.MarkFlagRequired("district")
	rootCmd.AddCommand(fetchCmd)
}
