// Package sheet reads keyword sheets and writes cluster tables.
package sheet

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
)

// Format is a tabular file format.
type Format string

const (
	XLSX Format = "xlsx"
	CSV  Format = "csv"
	JSON Format = "json"
	HTML Format = "html"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json"
	case HTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// ParseFormat accepts a format name or file extension, with or without a dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case XLSX:
		return XLSX, nil
	case CSV:
		return CSV, nil
	case JSON:
		return JSON, nil
	case HTML, "htm":
		return HTML, nil
	}
	return "", fmt.Errorf("%w: %q", internalerr.ErrUnsupportedFormat, s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Readable reports whether the format can be used as input.
func (f Format) Readable() bool {
	return f == XLSX || f == CSV
}
