package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
)

// ReadOptions selects the phrase and volume columns by header name. Empty
// names mean the first and second columns.
type ReadOptions struct {
	PhraseColumn string
	VolumeColumn string
}

// ReadFile reads a keyword sheet, choosing the parser by extension.
func ReadFile(path string, opts ReadOptions) ([]ingest.RawRow, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format, opts)
}

// Read parses a keyword sheet. The first row is the header; rows whose
// cells are all blank are skipped.
func Read(r io.Reader, format Format, opts ReadOptions) ([]ingest.RawRow, error) {
	var (
		cells [][]string
		err   error
	)
	switch format {
	case XLSX:
		cells, err = readXLSX(r)
	case CSV:
		cells, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: cannot read %s", internalerr.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return extract(cells, opts)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func extract(cells [][]string, opts ReadOptions) ([]ingest.RawRow, error) {
	var header []string
	if len(cells) > 0 {
		header = cells[0]
	}

	phraseCol, err := columnIndex(header, opts.PhraseColumn, 0, "phrase")
	if err != nil {
		return nil, err
	}
	volumeCol, err := columnIndex(header, opts.VolumeColumn, 1, "volume")
	if err != nil {
		return nil, err
	}

	var rows []ingest.RawRow
	for i := 1; i < len(cells); i++ {
		phrase := cell(cells[i], phraseCol)
		volume := cell(cells[i], volumeCol)
		if strings.TrimSpace(phrase) == "" && strings.TrimSpace(volume) == "" {
			continue
		}
		rows = append(rows, ingest.RawRow{Line: i + 1, Phrase: phrase, Volume: volume})
	}
	return rows, nil
}

// columnIndex finds a named column, or falls back to a fixed position when
// no name was configured.
func columnIndex(header []string, name string, position int, role string) (int, error) {
	if name == "" {
		if position >= len(header) {
			return 0, &internalerr.MissingColumnError{Column: fmt.Sprintf("%s (column %d)", role, position+1)}
		}
		return position, nil
	}
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return 0, &internalerr.MissingColumnError{Column: name}
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
