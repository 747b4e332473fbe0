// Package resolve locates logical page elements through ordered fallback
// chains of selector candidates.
//
// The sites under verification are external: their markup drifts without
// notice. Instead of pinning one brittle selector, each logical element
// ("primary heading", "footer", "logo") declares an ordered candidate list,
// most specific first, most generic last. Resolution walks the list and stops
// at the first satisfying match; it never errors on absence — classification
// of a miss belongs to the caller's assertion policy.
package resolve

import (
	"context"
	"fmt"
	"strings"
)

// Candidate is one concrete strategy for locating a logical element.
// Selector is a CSS selector; the optional filters narrow the matched nodes
// by visible text or attribute content, case-insensitively.
type Candidate struct {
	Selector     string `json:"selector" yaml:"selector"`
	TextContains string `json:"text_contains,omitempty" yaml:"text,omitempty"`
	AttrName     string `json:"attr_name,omitempty" yaml:"attr,omitempty"`
	AttrContains string `json:"attr_contains,omitempty" yaml:"attr_contains,omitempty"`
}

func (c Candidate) String() string {
	var b strings.Builder
	b.WriteString(c.Selector)
	if c.TextContains != "" {
		fmt.Fprintf(&b, " [text~%q]", c.TextContains)
	}
	if c.AttrName != "" {
		fmt.Fprintf(&b, " [%s~%q]", c.AttrName, c.AttrContains)
	}
	return b.String()
}

// Element is a named logical element with its fallback chain. Order encodes
// preference; a bare tag selector belongs at the end as the last resort.
type Element struct {
	Name       string      `json:"name" yaml:"name"`
	Candidates []Candidate `json:"candidates" yaml:"candidates"`
}

// Node is one matched DOM node. Implementations exist for a live browser
// tab and for a parsed static document.
type Node interface {
	// Visible reports whether the node is rendered, not merely attached.
	Visible(ctx context.Context) (bool, error)
	// Text returns the node's visible text, whitespace-normalized.
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute value, or "" when absent.
	Attribute(ctx context.Context, name string) (string, error)
}

// Querier evaluates a CSS selector against a page snapshot.
type Querier interface {
	Query(ctx context.Context, selector string) ([]Node, error)
}

// Result describes the outcome of resolving one Element on one page
// snapshot. Results are computed per step and never cached across
// navigations: the underlying page mutates on reload and viewport change.
type Result struct {
	Element        string   `json:"element"`
	Found          bool     `json:"found"`
	CandidateIndex int      `json:"candidate_index"` // -1 when not found
	Count          int      `json:"count"`
	Visible        bool     `json:"visible"`
	SampleText     string   `json:"sample_text,omitempty"`
	Tried          []string `json:"tried,omitempty"`

	// Node is the matched node for follow-up interaction. Not serialized.
	Node Node `json:"-"`
}
