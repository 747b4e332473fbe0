package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/houndci/sitecheck/catalog"
	"github.com/houndci/sitecheck/dbopen/dbopentest"
	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/scenario"
	"github.com/houndci/sitecheck/store"
	"github.com/houndci/sitecheck/verdict"
)

// fakeSession serves a canned page for every URL and tracks concurrency.
type fakeSession struct {
	mu      sync.Mutex
	open    int32
	maxOpen int32
}

type fakePage struct {
	sess *fakeSession
}

func (s *fakeSession) Open(context.Context, string, string) (scenario.Page, error) {
	cur := atomic.AddInt32(&s.open, 1)
	s.mu.Lock()
	if cur > s.maxOpen {
		s.maxOpen = cur
	}
	s.mu.Unlock()
	return &fakePage{sess: s}, nil
}

func (p *fakePage) Query(context.Context, string) ([]resolve.Node, error) { return nil, nil }
func (p *fakePage) Text(context.Context) (string, error)                  { return "pet insurance", nil }
func (p *fakePage) WaitQuiet(context.Context) error                       { return nil }
func (p *fakePage) Responses() []scenario.Response                        { return nil }
func (p *fakePage) Close() error {
	atomic.AddInt32(&p.sess.open, -1)
	return nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	doc := `
keywords:
  care:
    - "pet insurance"
scenarios:
  - name: homepage
    url: https://example.com/
    keywords:
      - ref: care
        tier: recommended
  - name: about
    url: https://example.com/about
    keywords:
      - ref: care
        tier: recommended
  - name: contact
    url: https://example.com/contact
    keywords:
      - ref: care
        tier: recommended
`
	c, err := catalog.Load([]byte(doc), catalog.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func testReportStore(t *testing.T) *store.Store {
	t.Helper()
	db := dbopentest.OpenMemory(t)
	s, err := store.NewWithDB(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunAll_PersistsReports(t *testing.T) {
	sess := &fakeSession{}
	st := testReportStore(t)
	r := New(sess, testCatalog(t), st, scenario.Config{}, Config{Concurrency: 2})

	reports := r.RunAll(context.Background())
	if len(reports) != 3 {
		t.Fatalf("reports = %d, want 3", len(reports))
	}
	for _, rep := range reports {
		if rep == nil || !rep.Passed {
			t.Errorf("report = %+v, want pass", rep)
		}
	}

	rows, err := st.ListRuns(context.Background(), store.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("stored runs = %d, want 3", len(rows))
	}
}

func TestRunAll_ConcurrencyBounded(t *testing.T) {
	sess := &fakeSession{}
	r := New(sess, testCatalog(t), nil, scenario.Config{}, Config{Concurrency: 1})

	r.RunAll(context.Background())
	if sess.maxOpen > 1 {
		t.Errorf("max concurrent pages = %d, want 1", sess.maxOpen)
	}
}

func TestRunNamed(t *testing.T) {
	sess := &fakeSession{}
	r := New(sess, testCatalog(t), nil, scenario.Config{}, Config{})

	rep, err := r.RunNamed(context.Background(), "about")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Scenario != "about" || rep.Overall() != verdict.Pass {
		t.Errorf("report = %+v", rep)
	}

	if _, err := r.RunNamed(context.Background(), "nope"); err == nil {
		t.Error("unknown scenario should error")
	}
}
