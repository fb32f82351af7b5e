// Package export renders reports for people and ships them off the host.
package export

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/keyclust/pkg/keyclust/aggregate"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

const stylesheet = `
body { font-family: Tahoma, sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
tr.group td { font-weight: bold; background: #eef; }
td.volume { direction: ltr; text-align: left; }
`

// RenderHTML writes a standalone right-to-left HTML page for a report.
func RenderHTML(w io.Writer, rep report.Report) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, attr("lang", "fa"), attr("dir", "rtl"))
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	head.AppendChild(withText(element(atom.Title), "Keyword clusters "+rep.ID))
	head.AppendChild(withText(element(atom.Style), stylesheet))
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)
	body.AppendChild(withText(element(atom.H1), "Keyword clusters"))
	body.AppendChild(summaryList(rep))
	body.AppendChild(clusterTable(rep.Rows))

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func summaryList(rep report.Report) *html.Node {
	m := rep.Metrics
	ul := element(atom.Ul, attr("class", "summary"))
	items := []string{
		"Run: " + rep.ID,
		fmt.Sprintf("Input rows: %d", m.InputRows),
		fmt.Sprintf("Merged phrases: %d", m.Merged),
		fmt.Sprintf("Categories: %d", m.Categories),
		fmt.Sprintf("Pillars: %d, Clusters: %d, Sub-Clusters: %d", m.Pillars, m.Clusters, m.SubClusters),
	}
	if rep.Source != "" {
		items = append(items, "Source: "+rep.Source)
	}
	for _, item := range items {
		ul.AppendChild(withText(element(atom.Li), item))
	}
	return ul
}

func clusterTable(rows []aggregate.Row) *html.Node {
	table := element(atom.Table)
	thead := element(atom.Thead)
	tr := element(atom.Tr)
	for _, c := range aggregate.Columns {
		tr.AppendChild(withText(element(atom.Th), c))
	}
	thead.AppendChild(tr)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, row := range rows {
		tr := element(atom.Tr, attr("class", string(row.Kind)))
		for i, v := range row.Values() {
			td := element(atom.Td)
			if i == 1 {
				td.Attr = append(td.Attr, attr("class", "volume"))
			}
			tr.AppendChild(withText(td, v))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}
