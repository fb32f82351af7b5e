package sheet

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/export"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

const (
	clustersSheet = "Clusters"
	summarySheet  = "Summary"
)

// WriteFile writes a report, choosing the format by extension.
func WriteFile(path string, rep report.Report) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, format, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders the cluster table of a report in the given format.
func Write(w io.Writer, format Format, rep report.Report) error {
	switch format {
	case XLSX:
		return writeXLSX(w, rep)
	case CSV:
		return writeCSV(w, rep)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case HTML:
		return export.RenderHTML(w, rep)
	}
	return fmt.Errorf("%w: cannot write %s", internalerr.ErrUnsupportedFormat, format)
}

func writeCSV(w io.Writer, rep report.Report) error {
	// Excel needs the BOM to read UTF-8 Persian text.
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(aggregate.Columns); err != nil {
		return err
	}
	for _, row := range rep.Rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, rep report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", clustersSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rtl := true
	if err := f.SetSheetView(clustersSheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return fmt.Errorf("set sheet view: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	header := make([]any, len(aggregate.Columns))
	for i, c := range aggregate.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(clustersSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(clustersSheet, "A1", "E1", bold); err != nil {
		return err
	}

	for i, row := range rep.Rows {
		n := strconv.Itoa(i + 2)
		values := []any{row.Label, row.Volume, string(row.Intent), string(row.PageType), row.Title}
		if err := f.SetSheetRow(clustersSheet, "A"+n, &values); err != nil {
			return err
		}
		if row.Kind == aggregate.HeaderRow {
			if err := f.SetCellStyle(clustersSheet, "A"+n, "E"+n, bold); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(clustersSheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(clustersSheet, "E", "E", 50); err != nil {
		return err
	}

	if err := writeSummarySheet(f, rep); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeSummarySheet(f *excelize.File, rep report.Report) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	m := rep.Metrics
	lines := [][]any{
		{"Run", rep.ID},
		{"Source", rep.Source},
		{"Input rows", m.InputRows},
		{"Dropped rows", m.DroppedRows},
		{"Merged phrases", m.Merged},
		{"Records", m.Records},
		{"Categories", m.Categories},
		{"Groups", m.Groups},
		{"Pillars", m.Pillars},
		{"Clusters", m.Clusters},
		{"Sub-Clusters", m.SubClusters},
	}
	for i, line := range lines {
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(i+1), &line); err != nil {
			return err
		}
	}
	return nil
}
