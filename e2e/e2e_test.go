// Package e2e tests cross-package integration chains: catalog declarations
// driven through the scenario driver against a served page, reports
// persisted to SQLite and read back over the HTTP API — the production
// composition pattern, minus the live browser.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/houndci/sitecheck/api"
	"github.com/houndci/sitecheck/catalog"
	"github.com/houndci/sitecheck/dbopen/dbopentest"
	"github.com/houndci/sitecheck/extract"
	"github.com/houndci/sitecheck/runner"
	"github.com/houndci/sitecheck/scenario"
	"github.com/houndci/sitecheck/store"
	"github.com/houndci/sitecheck/verdict"
)

const fixtureHTML = `<!DOCTYPE html>
<html><head><title>Happy Paws Insurance</title>
<meta name="description" content="Pet insurance for dogs and cats">
</head><body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<h1 class="hero-title">Insurance your pet deserves</h1>
<p>Get a personalised quote in minutes. Pet insurance that covers what matters.</p>
<footer>© Happy Paws</footer>
</body></html>`

// fetchSession navigates by plain HTTP and parses the response into a
// static document. It exercises the same driver, resolver and verifier
// paths as the browser session.
type fetchSession struct{}

type fetchPage struct {
	*extract.Doc
}

func (fetchSession) Open(ctx context.Context, url, _ string) (scenario.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, res.StatusCode)
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	doc, err := extract.NewDoc(raw)
	if err != nil {
		return nil, err
	}
	return &fetchPage{Doc: doc}, nil
}

func (p *fetchPage) WaitQuiet(context.Context) error { return nil }
func (p *fetchPage) Responses() []scenario.Response  { return nil }
func (p *fetchPage) Close() error                    { return nil }

func TestScenarioChain(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, fixtureHTML)
	}))
	defer site.Close()

	cat, err := catalog.Load([]byte(fmt.Sprintf(`
keywords:
  offer:
    - "pet insurance"
    - "get a * quote"
scenarios:
  - name: homepage
    url: %s
    elements:
      - ref: primary_heading
        tier: required
      - ref: navigation
        tier: recommended
      - ref: contact_form
        tier: informational
    keywords:
      - ref: offer
        tier: required
`, site.URL)), catalog.Options{})
	if err != nil {
		t.Fatal(err)
	}

	st, err := store.NewWithDB(dbopentest.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}

	rn := runner.New(fetchSession{}, cat, st, scenario.Config{}, runner.Config{})
	reports := rn.RunAll(context.Background())
	if len(reports) != 1 {
		t.Fatalf("reports = %d", len(reports))
	}
	report := reports[0]

	if !report.Passed {
		t.Fatalf("scenario failed: %+v", report.Checks)
	}
	// contact_form is absent from the fixture; informational tier keeps it
	// out of failures and warnings.
	if report.Failures != 0 || report.Warnings != 0 {
		t.Errorf("failures = %d warnings = %d", report.Failures, report.Warnings)
	}
	var sawInfo bool
	for _, c := range report.Checks {
		if c.Name == "contact_form" && c.Verdict == verdict.Info {
			sawInfo = true
		}
	}
	if !sawInfo {
		t.Errorf("missing informational contact_form entry: %+v", report.Checks)
	}

	// The persisted run is served back over the API.
	apiSrv := httptest.NewServer(api.New(rn, cat, st, api.Config{}).Routes())
	defer apiSrv.Close()

	res, err := http.Get(apiSrv.URL + "/api/runs/" + report.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		t.Fatalf("get run status = %d", res.StatusCode)
	}
	var fetched verdict.Report
	if err := json.NewDecoder(res.Body).Decode(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.RunID != report.RunID || len(fetched.Checks) != len(report.Checks) {
		t.Errorf("fetched = %+v", fetched)
	}
}

func TestScenarioChainRequiredMiss(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body><p>under construction</p></body></html>`)
	}))
	defer site.Close()

	cat, err := catalog.Load([]byte(fmt.Sprintf(`
scenarios:
  - name: homepage
    url: %s
    elements:
      - ref: primary_heading
        tier: required
`, site.URL)), catalog.Options{})
	if err != nil {
		t.Fatal(err)
	}

	rn := runner.New(fetchSession{}, cat, nil, scenario.Config{}, runner.Config{})
	report, err := rn.RunNamed(context.Background(), "homepage")
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed || report.Failures != 1 {
		t.Errorf("report = %+v", report)
	}
}
