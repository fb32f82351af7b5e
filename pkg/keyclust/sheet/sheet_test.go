package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/intent"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"xlsx": XLSX, ".CSV": CSV, "json": JSON, "htm": HTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xls"); !errors.Is(err, internalerr.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffKeyword,Search Volume\nخرید گوشی,1200\n,\nقیمت لپ تاپ,\"1,500\"\n"
	rows, err := Read(strings.NewReader(in), CSV, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (blank skipped), got %d", len(rows))
	}
	if rows[0].Phrase != "خرید گوشی" || rows[0].Volume != "1200" || rows[0].Line != 2 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Volume != "1,500" || rows[1].Line != 4 {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestReadNamedColumns(t *testing.T) {
	in := "id,Volume,Keyword\n1,300,خرید کفش\n"
	rows, err := Read(strings.NewReader(in), CSV, ReadOptions{PhraseColumn: "Keyword", VolumeColumn: "Volume"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 1 || rows[0].Phrase != "خرید کفش" || rows[0].Volume != "300" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestReadMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("Keyword\nخرید\n"), CSV, ReadOptions{})
	if !errors.Is(err, internalerr.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}

	_, err = Read(strings.NewReader("Keyword,Volume\n"), CSV, ReadOptions{VolumeColumn: "Searches"})
	var mc *internalerr.MissingColumnError
	if !errors.As(err, &mc) || mc.Column != "Searches" {
		t.Fatalf("expected MissingColumnError for Searches, got %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]any{
		{"Keyword", "Volume"},
		{"طرز تهیه کیک", 9000},
		{"بهترین گوشی", "4500"},
	} {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	rows, err := Read(&buf, XLSX, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Phrase != "طرز تهیه کیک" || rows[0].Volume != "9000" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestReadRejectsOutputFormats(t *testing.T) {
	if _, err := Read(strings.NewReader("{}"), JSON, ReadOptions{}); !errors.Is(err, internalerr.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func sampleReport() report.Report {
	return report.Report{
		ID:      "RUN",
		Metrics: report.Metrics{InputRows: 2, Records: 2},
		Rows: []aggregate.Row{
			{Kind: aggregate.HeaderRow, Category: "گوشی", Label: "گوشی", Volume: 2450, Intent: intent.Commercial, PageType: aggregate.SubCluster},
			{Kind: aggregate.PhraseRow, Category: "گوشی", Label: "خرید گوشی", Volume: 2450, Intent: intent.Commercial, PageType: aggregate.SubCluster, Title: "خرید گوشی با گارانتی"},
		},
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, CSV, sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\ufeffCategory/Phrase,") {
		t.Fatalf("csv should start with BOM and header, got %q", buf.String()[:20])
	}

	rows, err := Read(&buf, CSV, ReadOptions{})
	if err != nil {
		t.Fatalf("Read back: %v", err)
	}
	if len(rows) != 2 || rows[1].Phrase != "خرید گوشی" || rows[1].Volume != "2450" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, XLSX, sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != clustersSheet || sheets[1] != summarySheet {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	got, _ := f.GetCellValue(clustersSheet, "A3")
	if got != "خرید گوشی" {
		t.Errorf("A3 = %q", got)
	}
	title, _ := f.GetCellValue(clustersSheet, "E3")
	if title != "خرید گوشی با گارانتی" {
		t.Errorf("E3 = %q", title)
	}
	input, _ := f.GetCellValue(summarySheet, "B3")
	if input != "2" {
		t.Errorf("summary input rows = %q", input)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSON, sampleReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var decoded struct {
		ID   string
		Rows []aggregate.Row
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.ID != "RUN" || len(decoded.Rows) != 2 || decoded.Rows[0].Kind != aggregate.HeaderRow {
		t.Errorf("unexpected decode: %+v", decoded)
	}
}

func TestWriteFileByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")
	if err := WriteFile(path, sampleReport()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(filepath.Join(t.TempDir(), "out.txt"), sampleReport()); !errors.Is(err, internalerr.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
