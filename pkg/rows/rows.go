// Package rows holds the visible row collection of a table view and parses the
// HTML row fragments the table server returns.
package rows

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Row is one rendered table row.
type Row struct {
	// Cells is the trimmed text content of each <td>/<th>, in order.
	Cells []string
}

// Sink receives rows appended by a fetch.
type Sink interface {
	AppendRows(rows []Row)
}

// ParseFragment parses a fragment of <tr> elements, as rendered for a
// table body, into rows. Non-row content is ignored.
func ParseFragment(r io.Reader) ([]Row, error) {
	// <tr> outside a table body is dropped by the HTML5 parser, so parse in
	// a <tbody> context.
	context := &html.Node{Type: html.ElementNode, Data: "tbody", DataAtom: atom.Tbody}

	nodes, err := html.ParseFragment(r, context)
	if err != nil {
		return nil, fmt.Errorf("parse row fragment: %w", err)
	}

	var out []Row
	for _, n := range nodes {
		collectRows(n, &out)
	}
	return out, nil
}

func collectRows(n *html.Node, out *[]Row) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
		row := Row{Cells: []string{}}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				row.Cells = append(row.Cells, strings.Join(strings.Fields(textContent(c)), " "))
			}
		}
		*out = append(*out, row)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectRows(c, out)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Collection is the row container of a view. It is safe for concurrent use:
// fetches append from their own goroutine while the UI reads.
type Collection struct {
	mu   sync.RWMutex
	rows []Row
}

// NewCollection creates an empty row collection.
func NewCollection() *Collection {
	return &Collection{}
}

// AppendRows implements Sink.
func (c *Collection) AppendRows(rows []Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, rows...)
}

// Clear removes every row.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = nil
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Slice returns a copy of rows [from, to), clamped to the collection bounds.
func (c *Collection) Slice(from, to int) []Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	from = max(0, from)
	to = min(len(c.rows), to)
	if from >= to {
		return nil
	}

	out := make([]Row, to-from)
	copy(out, c.rows[from:to])
	return out
}

// Rows returns a copy of all rows.
func (c *Collection) Rows() []Row {
	return c.Slice(0, c.Len())
}
