package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
)

// Row is one validated (phrase, volume) pair handed to the engine.
type Row struct {
	Phrase string
	Volume float64
}

// Validate checks that the row carries a usable volume.
func (r Row) Validate() error {
	if math.IsNaN(r.Volume) || math.IsInf(r.Volume, 0) {
		return fmt.Errorf("%w: volume is not a finite number", internalerr.ErrInvalidInput)
	}
	if r.Volume < 0 {
		return fmt.Errorf("%w: volume %v is negative", internalerr.ErrInvalidInput, r.Volume)
	}
	return nil
}

// RawRow is a row as it was read from a sheet, before volume coercion.
// Line is the 1-based row number in the source file.
type RawRow struct {
	Line   int
	Phrase string
	Volume string
}

// DroppedRow records a row removed during cleaning and why.
type DroppedRow struct {
	Line   int
	Volume string
	Reason string
}

// CleanRows coerces volumes to numbers and drops rows whose volume cannot
// be parsed. Dropping is never fatal; the caller decides what to do when
// nothing is left.
func CleanRows(raw []RawRow) ([]Row, []DroppedRow) {
	rows := make([]Row, 0, len(raw))
	var dropped []DroppedRow
	for _, r := range raw {
		vol, ok := ParseVolume(r.Volume)
		if !ok {
			dropped = append(dropped, DroppedRow{Line: r.Line, Volume: r.Volume, Reason: "unparseable volume"})
			continue
		}
		row := Row{Phrase: r.Phrase, Volume: vol}
		if err := row.Validate(); err != nil {
			dropped = append(dropped, DroppedRow{Line: r.Line, Volume: r.Volume, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, dropped
}

// digitFolder maps Persian (U+06F0..U+06F9) and Arabic-Indic (U+0660..U+0669)
// digits to ASCII, and the Arabic decimal separator to a dot.
var digitFolder = runes.Map(func(r rune) rune {
	switch {
	case r >= '\u06f0' && r <= '\u06f9':
		return '0' + (r - '\u06f0')
	case r >= '\u0660' && r <= '\u0669':
		return '0' + (r - '\u0660')
	case r == '\u066b':
		return '.'
	}
	return r
})

// groupMarks are thousands separators and stray spacing found in exported
// keyword-planner sheets.
var groupMarks = runes.Predicate(func(r rune) bool {
	switch r {
	case ',', '\u066c', '\u060c', ' ', '\u00a0', '\u202f':
		return true
	}
	return false
})

// ParseVolume coerces a spreadsheet cell to a volume. It reports false for
// empty, non-numeric, infinite and NaN values.
func ParseVolume(s string) (float64, bool) {
	t := transform.Chain(digitFolder, runes.Remove(groupMarks))
	cleaned, _, _ := transform.String(t, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
