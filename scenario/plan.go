// Package scenario sequences navigation, resolution, verification, and
// reporting for one page under one set of declared expectations.
package scenario

import (
	"context"

	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/verdict"
	"github.com/houndci/sitecheck/verify"
)

// Plan declares everything one scenario run verifies: a target page, a
// device profile, and the checks to perform. Plans are plain data; the
// catalog package builds them from YAML declarations.
type Plan struct {
	Name   string
	URL    string
	Device string

	Elements     []ElementCheck
	Keywords     []KeywordCheck
	Interactions []InteractionCheck
	Responses    *ResponseAudit
}

// ElementCheck verifies that a logical element resolves on the page.
type ElementCheck struct {
	Element        resolve.Element
	Tier           verdict.Tier
	RequireVisible bool
}

// KeywordCheck verifies topical content coverage against the page text.
// MinCoverage is the pass threshold; zero means every keyword must match.
type KeywordCheck struct {
	Set         verify.Set
	Tier        verdict.Tier
	MinCoverage float64
}

// Interaction actions.
const (
	ActionClick = "click"
	ActionFill  = "fill"
)

// InteractionCheck probes interactivity: resolve a visible element, then
// click it or fill it with Value.
type InteractionCheck struct {
	Element resolve.Element
	Action  string
	Value   string
	Tier    verdict.Tier
}

// ResponseAudit flags captured network responses with error statuses.
type ResponseAudit struct {
	Tier verdict.Tier
}

// Response is one captured network exchange.
type Response struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// Page is one open browsing context on the target URL. Implementations:
// browser.Tab (live Chrome) and, for offline checks, a wrapper over
// extract.Doc.
type Page interface {
	resolve.Querier

	// Text returns the page's visible text, whitespace-normalized.
	Text(ctx context.Context) (string, error)
	// WaitQuiet blocks until the page looks settled or ctx expires.
	// An error here is advisory, never fatal.
	WaitQuiet(ctx context.Context) error
	// Responses returns the network responses captured since navigation.
	Responses() []Response
	// Close releases the browsing context.
	Close() error
}

// Session opens pages. Open performs the navigation; an error from Open is
// the one fatal condition a scenario recognises.
type Session interface {
	Open(ctx context.Context, url, device string) (Page, error)
}

// Interactable is implemented by resolved nodes that support interaction.
type Interactable interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
}

// HTMLer is implemented by resolved nodes that can render their outer HTML,
// used to build evidence snippets.
type HTMLer interface {
	HTML(ctx context.Context) (string, error)
}
