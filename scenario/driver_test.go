package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/verdict"
	"github.com/houndci/sitecheck/verify"
)

type fakeNode struct {
	text     string
	visible  bool
	clickErr error
	clicked  bool
	filled   string
}

func (n *fakeNode) Visible(context.Context) (bool, error)             { return n.visible, nil }
func (n *fakeNode) Text(context.Context) (string, error)              { return n.text, nil }
func (n *fakeNode) Attribute(context.Context, string) (string, error) { return "", nil }
func (n *fakeNode) Click(context.Context) error                       { n.clicked = true; return n.clickErr }
func (n *fakeNode) Fill(_ context.Context, text string) error         { n.filled = text; return nil }

type fakePage struct {
	nodes     map[string][]resolve.Node
	text      string
	responses []Response
	closed    bool
}

func (p *fakePage) Query(_ context.Context, sel string) ([]resolve.Node, error) {
	return p.nodes[sel], nil
}
func (p *fakePage) Text(context.Context) (string, error) { return p.text, nil }
func (p *fakePage) WaitQuiet(context.Context) error      { return nil }
func (p *fakePage) Responses() []Response                { return p.responses }
func (p *fakePage) Close() error                         { p.closed = true; return nil }

type fakeSession struct {
	page    *fakePage
	openErr error
	openURL string
}

func (s *fakeSession) Open(_ context.Context, url, _ string) (Page, error) {
	s.openURL = url
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.page, nil
}

func headingElement() resolve.Element {
	return resolve.Element{Name: "primary heading", Candidates: []resolve.Candidate{
		{Selector: "h1.hero"},
		{Selector: "h1"},
	}}
}

func TestRun_PassingScenario(t *testing.T) {
	page := &fakePage{
		nodes: map[string][]resolve.Node{
			"h1": {&fakeNode{text: "Who We Are", visible: true}},
		},
		text: "We serve with malasakit and heart",
	}
	sess := &fakeSession{page: page}
	d := New(sess, Config{})

	report := d.Run(context.Background(), Plan{
		Name: "about", URL: "https://example.com/about",
		Elements: []ElementCheck{
			{Element: headingElement(), Tier: verdict.TierRequired, RequireVisible: true},
		},
		Keywords: []KeywordCheck{
			{Set: verify.Set{Name: "terms", Keywords: []string{"malasakit"}}, Tier: verdict.TierRecommended},
		},
	})

	if !report.Passed {
		t.Fatalf("report = %+v, want pass", report)
	}
	if d.State() != StateDone {
		t.Errorf("state = %s, want done", d.State())
	}
	if !page.closed {
		t.Error("page should be closed after the run")
	}
	if len(report.Checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(report.Checks))
	}
	if report.Checks[0].Evidence != "Who We Are" {
		t.Errorf("evidence = %q", report.Checks[0].Evidence)
	}
}

func TestRun_NavigationFailureShortCircuits(t *testing.T) {
	// WHAT: A navigation failure yields exactly one Required failure entry
	// and no verification checks.
	// WHY: An unreachable page makes every downstream check meaningless.
	sess := &fakeSession{openErr: errors.New("net::ERR_TIMED_OUT")}
	d := New(sess, Config{})

	report := d.Run(context.Background(), Plan{
		Name: "homepage", URL: "https://example.com",
		Elements: []ElementCheck{
			{Element: headingElement(), Tier: verdict.TierRequired},
		},
		Keywords: []KeywordCheck{
			{Set: verify.Set{Name: "terms", Keywords: []string{"x"}}, Tier: verdict.TierRequired},
		},
	})

	if report.Passed {
		t.Fatal("want fail")
	}
	if len(report.Checks) != 1 {
		t.Fatalf("checks = %d, want exactly the navigation entry", len(report.Checks))
	}
	c := report.Checks[0]
	if c.Kind != verdict.KindNavigation || c.Tier != verdict.TierRequired || c.Verdict != verdict.Fail {
		t.Errorf("navigation check = %+v", c)
	}
	if d.State() != StateFailed {
		t.Errorf("state = %s, want failed", d.State())
	}
}

func TestRun_RecommendedMissWarnsWithoutFailing(t *testing.T) {
	page := &fakePage{nodes: map[string][]resolve.Node{}}
	d := New(&fakeSession{page: page}, Config{})

	footer := resolve.Element{Name: "footer", Candidates: []resolve.Candidate{
		{Selector: "footer"},
	}}
	report := d.Run(context.Background(), Plan{
		Name: "homepage", URL: "https://example.com",
		Elements: []ElementCheck{
			{Element: footer, Tier: verdict.TierRecommended, RequireVisible: true},
		},
	})

	if !report.Passed || report.Warnings != 1 {
		t.Fatalf("passed=%v warnings=%d, want pass with one warning", report.Passed, report.Warnings)
	}
	if !strings.Contains(report.Checks[0].Detail, "footer") {
		t.Errorf("detail %q should name the tried candidates", report.Checks[0].Detail)
	}
}

func TestRun_KeywordCoverageThreshold(t *testing.T) {
	page := &fakePage{text: "dogs cats"}
	d := New(&fakeSession{page: page}, Config{})

	set := verify.Set{Name: "pets", Keywords: []string{"dogs", "cats", "parrots", "hamsters"}}
	report := d.Run(context.Background(), Plan{
		Name: "homepage", URL: "https://example.com",
		Keywords: []KeywordCheck{
			{Set: set, Tier: verdict.TierRequired, MinCoverage: 0.5},
		},
	})

	if !report.Passed {
		t.Fatalf("coverage 0.5 should satisfy threshold 0.5: %+v", report.Checks)
	}
	if !strings.Contains(report.Checks[0].Detail, "2/4") {
		t.Errorf("detail = %q", report.Checks[0].Detail)
	}
}

func TestRun_InteractionErrorDowngradesToWarning(t *testing.T) {
	node := &fakeNode{text: "Contact", visible: true, clickErr: errors.New("node detached")}
	page := &fakePage{nodes: map[string][]resolve.Node{"a.contact": {node}}}
	d := New(&fakeSession{page: page}, Config{})

	link := resolve.Element{Name: "contact link", Candidates: []resolve.Candidate{
		{Selector: "a.contact"},
	}}
	report := d.Run(context.Background(), Plan{
		Name: "contact", URL: "https://example.com/contact",
		Interactions: []InteractionCheck{
			{Element: link, Action: ActionClick, Tier: verdict.TierRequired},
		},
	})

	if !node.clicked {
		t.Fatal("click should have been attempted")
	}
	if !report.Passed {
		t.Fatal("interaction errors must not fail the scenario")
	}
	if report.Checks[0].Verdict != verdict.Warn {
		t.Errorf("verdict = %s, want warn", report.Checks[0].Verdict)
	}
}

func TestRun_FillInteraction(t *testing.T) {
	node := &fakeNode{visible: true}
	page := &fakePage{nodes: map[string][]resolve.Node{"input[name=email]": {node}}}
	d := New(&fakeSession{page: page}, Config{})

	field := resolve.Element{Name: "email field", Candidates: []resolve.Candidate{
		{Selector: "input[name=email]"},
	}}
	report := d.Run(context.Background(), Plan{
		Name: "contact", URL: "https://example.com/contact",
		Interactions: []InteractionCheck{
			{Element: field, Action: ActionFill, Value: "probe@example.com", Tier: verdict.TierInformational},
		},
	})

	if node.filled != "probe@example.com" {
		t.Errorf("filled = %q", node.filled)
	}
	if report.Checks[0].Verdict != verdict.Info {
		t.Errorf("verdict = %s, want info", report.Checks[0].Verdict)
	}
}

func TestRun_ResponseAudit(t *testing.T) {
	page := &fakePage{responses: []Response{
		{URL: "https://example.com/", Status: 200},
		{URL: "https://example.com/pixel.gif", Status: 404},
	}}
	d := New(&fakeSession{page: page}, Config{})

	report := d.Run(context.Background(), Plan{
		Name: "homepage", URL: "https://example.com",
		Responses: &ResponseAudit{Tier: verdict.TierInformational},
	})

	if !report.Passed {
		t.Fatal("informational audit must not affect the verdict")
	}
	c := report.Checks[0]
	if c.Verdict != verdict.Info || !strings.Contains(c.Detail, "404") {
		t.Errorf("check = %+v", c)
	}
}
