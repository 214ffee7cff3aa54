// Package export renders merged series records as downloadable CSV or
// XLSX documents. The column order is date first, then the caller's key
// order; a key absent from a record leaves its cell empty.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/terraclim/atlas-cli/internal/series"
)

// FillMonths expands records to one row per month of the requested
// range, so gaps in the series appear as dated rows with empty cells
// rather than silently missing lines. Record dates outside the monthly
// grid are kept as-is; the result is sorted ascending.
func FillMonths(records []series.Record, start, end time.Time) []series.Record {
	byDate := make(map[string]series.Record, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}

	for _, m := range series.MonthsBetween(start, end) {
		date := m.Format("2006-01-02")
		if _, ok := byDate[date]; !ok {
			byDate[date] = series.Record{Date: date}
		}
	}

	out := make([]series.Record, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, keys []string, records []series.Record) error {
	cw := csv.NewWriter(w)

	header := append([]string{"date"}, keys...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}

	row := make([]string, len(header))
	for _, r := range records {
		row[0] = r.Date
		for i, k := range keys {
			if v, ok := r.Values[k]; ok {
				row[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush CSV")
	}
	return nil
}

// WriteXLSX writes records as a single-sheet workbook.
func WriteXLSX(w io.Writer, sheetName string, keys []string, records []series.Record) error {
	if sheetName == "" {
		sheetName = "data"
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %q", sheetName)
	}

	header := sheet.AddRow()
	header.AddCell().SetString("date")
	for _, k := range keys {
		header.AddCell().SetString(k)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Date)
		for _, k := range keys {
			cell := row.AddCell()
			if v, ok := r.Values[k]; ok {
				cell.SetFloat(v)
			}
		}
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
