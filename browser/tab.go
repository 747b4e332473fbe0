package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/scenario"
)

// Tab is one browsing context on a target page. It implements
// scenario.Page; one scenario run owns exactly one Tab.
type Tab struct {
	page    *rod.Page
	pageURL string

	mu        sync.Mutex
	responses []scenario.Response
}

// OpenTab creates a tab, applies stealth, resource blocking, and device
// emulation, navigates, and waits for the load event. Navigation errors and
// ctx expiry abort with an error; the caller treats that as fatal for the
// scenario.
func OpenTab(ctx context.Context, mgr *Manager, pageURL, device string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if *mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	if err := applyDevice(page, device); err != nil {
		page.Close()
		return nil, err
	}

	t := &Tab{page: page, pageURL: pageURL}

	// Capture response statuses for the response audit. Subscribe before
	// navigating so the first responses are not missed; the event loop
	// ends when the page closes.
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) {
		t.mu.Lock()
		t.responses = append(t.responses, scenario.Response{
			URL:    e.Response.URL,
			Status: e.Response.Status,
		})
		t.mu.Unlock()
	})
	go wait()

	if err := page.Context(ctx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: load %s: %w", pageURL, err)
	}
	return t, nil
}

// Query evaluates a CSS selector on the live page.
func (t *Tab) Query(ctx context.Context, selector string) ([]resolve.Node, error) {
	els, err := t.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	nodes := make([]resolve.Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &liveNode{el: el})
	}
	return nodes, nil
}

// Text returns the rendered page text, whitespace-normalized.
func (t *Tab) Text(ctx context.Context) (string, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", fmt.Errorf("browser: page text: %w", err)
	}
	return strings.Join(strings.Fields(res.Value.Str()), " "), nil
}

// WaitQuiet waits for the page to go idle, bounded by ctx.
func (t *Tab) WaitQuiet(ctx context.Context) error {
	timeout := 10 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	return t.page.Context(ctx).WaitIdle(timeout)
}

// Responses returns the network responses captured since navigation.
func (t *Tab) Responses() []scenario.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]scenario.Response, len(t.responses))
	copy(out, t.responses)
	return out
}

// HTML serialises the complete DOM as outer HTML, for offline re-checks.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	return t.page.Close()
}

// liveNode adapts a Rod element to resolve.Node, scenario.Interactable,
// and scenario.HTMLer.
type liveNode struct {
	el *rod.Element
}

func (n *liveNode) Visible(ctx context.Context) (bool, error) {
	return n.el.Context(ctx).Visible()
}

func (n *liveNode) Text(ctx context.Context) (string, error) {
	text, err := n.el.Context(ctx).Text()
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}

func (n *liveNode) Attribute(ctx context.Context, name string) (string, error) {
	val, err := n.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

func (n *liveNode) Click(ctx context.Context) error {
	return n.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (n *liveNode) Fill(ctx context.Context, text string) error {
	el := n.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (n *liveNode) HTML(ctx context.Context) (string, error) {
	return n.el.Context(ctx).HTML()
}

// Session adapts a Manager to scenario.Session: every Open is a fresh,
// isolated tab.
type Session struct {
	mgr *Manager
}

// NewSession creates a Session over a started Manager.
func NewSession(mgr *Manager) *Session {
	return &Session{mgr: mgr}
}

// Open navigates a new tab to url with the named device profile.
func (s *Session) Open(ctx context.Context, url, device string) (scenario.Page, error) {
	return OpenTab(ctx, s.mgr, url, device)
}
