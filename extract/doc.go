package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/houndci/sitecheck/resolve"
)

// Doc is a parsed static HTML document implementing resolve.Querier.
// It lets the resolver run against a DOM snapshot without a browser, which
// is how the resolver unit tests and offline re-checks work.
type Doc struct {
	doc *goquery.Document
}

// NewDoc parses an HTML document.
func NewDoc(data []byte) (*Doc, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}
	return &Doc{doc: doc}, nil
}

// Query evaluates a CSS selector against the document.
func (d *Doc) Query(_ context.Context, selector string) ([]resolve.Node, error) {
	sel, err := safeFind(d.doc, selector)
	if err != nil {
		return nil, err
	}
	var nodes []resolve.Node
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &staticNode{sel: s})
	})
	return nodes, nil
}

// Text returns the document's visible text.
func (d *Doc) Text(_ context.Context) (string, error) {
	htmlStr, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("extract: render: %w", err)
	}
	return Text([]byte(htmlStr)), nil
}

// safeFind compiles the selector up front so a malformed one surfaces as an
// error the resolver can swallow as a candidate miss, instead of silently
// matching nothing.
func safeFind(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("extract: bad selector %q: %w", selector, err)
	}
	return doc.FindMatcher(m), nil
}

// staticNode adapts a goquery selection to resolve.Node.
type staticNode struct {
	sel *goquery.Selection
}

// Visible applies the static hiding heuristics: hidden attribute, inline
// display:none or visibility:hidden, input type=hidden. Stylesheet-driven
// hiding is invisible to a static parse and reported as visible.
func (n *staticNode) Visible(context.Context) (bool, error) {
	for s := n.sel; s.Length() > 0; s = s.Parent() {
		if _, ok := s.Attr("hidden"); ok {
			return false, nil
		}
		if style, ok := s.Attr("style"); ok {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(style) {
					return false, nil
				}
			}
		}
		if goquery.NodeName(s) == "input" {
			if typ, ok := s.Attr("type"); ok && strings.EqualFold(typ, "hidden") {
				return false, nil
			}
		}
	}
	return true, nil
}

func (n *staticNode) Text(context.Context) (string, error) {
	return strings.Join(strings.Fields(n.sel.Text()), " "), nil
}

func (n *staticNode) Attribute(_ context.Context, name string) (string, error) {
	val, _ := n.sel.Attr(name)
	return val, nil
}

// HTML returns the node's outer HTML for evidence rendering.
func (n *staticNode) HTML(context.Context) (string, error) {
	return goquery.OuterHtml(n.sel)
}
