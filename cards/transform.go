// Package cards turns the archive's HTML document into flashcard rows.
//
// The document is parsed once. Image references are rewritten to the
// file names of extracted assets, then the first table is read row by
// row: the first two cells become the question and answer sides of a
// card. Rows with fewer than two cells carry no card and are skipped.
package cards

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	htmlcharset "golang.org/x/net/html/charset"

	"github.com/dhcgn/mht-to-tsv/assets"
	"github.com/dhcgn/mht-to-tsv/stats"
)

// ErrNoTable is returned when the document contains no table to read
// cards from.
var ErrNoTable = errors.New("cards: document contains no table")

// Row is a single flashcard, both sides serialized as inline HTML.
type Row struct {
	Question string
	Answer   string
}

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

// RootDir returns the directory of the document's content location.
// Relative image references in the document resolve against it. An
// empty or opaque location yields the empty string.
func RootDir(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	p := location
	if u, err := url.Parse(location); err == nil {
		p = u.Path
	}
	if p == "" {
		return ""
	}
	return path.Dir(p)
}

// ParseDocument parses HTML bytes into a node tree. The content type
// hint feeds the character encoding sniffer together with any byte
// order mark or meta tag in the bytes themselves.
func ParseDocument(body []byte, contentType string) (*html.Node, error) {
	r, err := htmlcharset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		r = bytes.NewReader(body)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Transformer rewrites a parsed document and extracts its card rows.
type Transformer struct {
	// RootDir is the directory image references resolve against,
	// usually RootDir of the document part's content location.
	RootDir string
	// Index maps canonical asset paths to extracted records.
	Index *assets.Index
	// Collector receives per-row and per-reference events. Optional.
	Collector *stats.Collector
	// Logger reports skipped rows and unresolved references. Optional.
	Logger *slog.Logger
}

// Rows rewrites the image references in doc and then emits one Row per
// table row of the document's first table. Emission stops at the first
// emit error, which is returned as is.
func (t *Transformer) Rows(doc *html.Node, emit func(Row) error) error {
	t.rewriteImages(doc)

	table := findFirst(doc, atom.Table)
	if table == nil {
		return ErrNoTable
	}

	for _, tr := range findAll(table, atom.Tr) {
		cells := firstCells(tr, 2)
		if len(cells) < 2 {
			t.observe(stats.Event{Stage: stats.StageCards, Type: stats.EventTypeRowSkipped})
			if t.Logger != nil {
				t.Logger.Warn("skipping table row with fewer than two cells", "cells", len(cells))
			}
			continue
		}
		question, err := innerHTML(cells[0])
		if err != nil {
			return err
		}
		answer, err := innerHTML(cells[1])
		if err != nil {
			return err
		}
		row := Row{
			Question: newlineStripper.Replace(question),
			Answer:   newlineStripper.Replace(answer),
		}
		t.observe(stats.Event{Stage: stats.StageCards, Type: stats.EventTypeRow})
		if err := emit(row); err != nil {
			return err
		}
	}
	return nil
}

// rewriteImages points every img tag with a known asset at the
// extracted file name and lets the viewer size it. Tags whose
// reference resolves to no extracted asset keep their original
// attributes untouched.
func (t *Transformer) rewriteImages(doc *html.Node) {
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.DataAtom != atom.Img {
			return
		}
		src := attrValue(n, "src")
		canonical := resolveRef(t.RootDir, src)

		var rec *assets.Record
		if t.Index != nil && canonical != "" {
			rec, _ = t.Index.Lookup(canonical)
		}
		if rec == nil {
			t.observe(stats.Event{Stage: stats.StageCards, Type: stats.EventTypeRefMissing, Path: src})
			if t.Logger != nil {
				t.Logger.Warn("image reference has no extracted asset", "src", src, "canonical", canonical)
			}
			return
		}

		setAttr(n, "src", rec.Name)
		setAttr(n, "width", "auto")
		setAttr(n, "height", "auto")
		t.observe(stats.Event{Stage: stats.StageCards, Type: stats.EventTypeRefRewritten, Path: rec.Name})
	})
}

func (t *Transformer) observe(evt stats.Event) {
	if t.Collector != nil {
		t.Collector.Observe(evt)
	}
}

// resolveRef turns an image reference into the canonical path form
// used by the asset index. Relative references resolve against
// rootDir, absolute ones stand on their own.
func resolveRef(rootDir, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(rootDir, p)
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return out
}

// firstCells returns up to limit direct cell children of a table row.
func firstCells(tr *html.Node, limit int) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil && len(cells) < limit; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
			cells = append(cells, c)
		}
	}
	return cells
}

// innerHTML serializes the children of n, not n itself.
func innerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render cell: %w", err)
		}
	}
	return buf.String(), nil
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
