package aggregate

import "github.com/cognicore/keyclust/pkg/keyclust/intent"

// Columns is the header of the flattened cluster table.
var Columns = []string{"Category/Phrase", "Volume", "Intent", "PageType", "SuggestedTitle"}

// RowKind tells group header rows from phrase rows.
type RowKind string

const (
	HeaderRow RowKind = "group"
	PhraseRow RowKind = "phrase"
)

// Row is one line of the hierarchical cluster table.
type Row struct {
	Kind     RowKind      `json:"kind"`
	Category string       `json:"category"`
	Label    string       `json:"label"`
	Volume   float64      `json:"volume"`
	Intent   intent.Label `json:"intent"`
	PageType PageType     `json:"page_type"`
	Title    string       `json:"title,omitempty"`
}

// Values renders the row in Columns order.
func (r Row) Values() []string {
	return []string{r.Label, FormatVolume(r.Volume), string(r.Intent), string(r.PageType), r.Title}
}

// Flatten writes each group as a header row followed by its phrases.
// Header rows carry the category as label and an empty title.
func Flatten(groups []Group) []Row {
	var rows []Row
	for _, g := range groups {
		rows = append(rows, Row{
			Kind:     HeaderRow,
			Category: g.Category,
			Label:    g.Category,
			Volume:   g.Volume,
			Intent:   g.Intent,
			PageType: g.PageType,
		})
		for _, m := range g.Members {
			rows = append(rows, Row{
				Kind:     PhraseRow,
				Category: g.Category,
				Label:    m.Phrase,
				Volume:   m.Volume,
				Intent:   g.Intent,
				PageType: m.PageType,
				Title:    m.Title,
			})
		}
	}
	return rows
}
