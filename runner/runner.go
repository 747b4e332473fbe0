// Package runner executes catalog scenarios: one-shot batches with bounded
// concurrency, or a periodic loop for continuous monitoring. Every finished
// report is persisted when a store is attached.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/houndci/sitecheck/catalog"
	"github.com/houndci/sitecheck/scenario"
	"github.com/houndci/sitecheck/store"
	"github.com/houndci/sitecheck/verdict"
)

// Config tunes the runner.
type Config struct {
	// Concurrency bounds parallel scenario runs. Each run owns its own
	// browsing context, so parallelism is safe; the bound protects Chrome.
	// Default: 2.
	Concurrency int `yaml:"concurrency"`

	// Interval between periodic batches. 0 disables the loop; Start then
	// runs one batch and returns. Default: 0.
	Interval time.Duration `yaml:"interval"`

	// Retention prunes stored runs older than this on each periodic
	// batch. 0 keeps everything.
	Retention time.Duration `yaml:"retention"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Runner executes scenario plans from a catalog.
type Runner struct {
	session   scenario.Session
	cat       *catalog.Catalog
	reports   *store.Store // optional; nil skips persistence
	driverCfg scenario.Config
	cfg       Config
}

// New creates a Runner. reports may be nil for run-and-print usage.
func New(session scenario.Session, cat *catalog.Catalog, reports *store.Store, driverCfg scenario.Config, cfg Config) *Runner {
	cfg.defaults()
	return &Runner{
		session:   session,
		cat:       cat,
		reports:   reports,
		driverCfg: driverCfg,
		cfg:       cfg,
	}
}

// RunPlan executes one plan on a fresh driver and persists the report.
func (r *Runner) RunPlan(ctx context.Context, plan scenario.Plan) *verdict.Report {
	d := scenario.New(r.session, r.driverCfg)
	report := d.Run(ctx, plan)

	if r.reports != nil {
		if err := r.reports.SaveReport(ctx, report); err != nil {
			r.cfg.Logger.Error("runner: save report failed",
				"scenario", plan.Name, "error", err)
		}
	}
	return report
}

// RunNamed executes the named catalog plan.
func (r *Runner) RunNamed(ctx context.Context, name string) (*verdict.Report, error) {
	plan, ok := r.cat.Plan(name)
	if !ok {
		return nil, fmt.Errorf("runner: unknown scenario %q", name)
	}
	return r.RunPlan(ctx, plan), nil
}

// RunAll executes every catalog plan with bounded concurrency and returns
// the reports in plan order.
func (r *Runner) RunAll(ctx context.Context) []*verdict.Report {
	plans := r.cat.Plans
	reports := make([]*verdict.Report, len(plans))

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, plan := range plans {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, plan scenario.Plan) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = r.RunPlan(ctx, plan)
		}(i, plan)
	}
	wg.Wait()

	var failed int
	for _, rep := range reports {
		if rep != nil && !rep.Passed {
			failed++
		}
	}
	r.cfg.Logger.Info("runner: batch finished",
		"scenarios", len(plans), "failed", failed)
	return reports
}

// Start runs one batch immediately, then repeats every Interval until ctx
// is cancelled. With Interval 0 it returns after the first batch. A small
// random jitter keeps a fleet of checkers from hitting the same sites in
// lockstep.
func (r *Runner) Start(ctx context.Context) {
	r.RunAll(ctx)
	r.pruneOld(ctx)

	if r.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if j := int64(r.cfg.Interval / 10); j > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(rand.Int64N(j))):
				}
			}
			r.RunAll(ctx)
			r.pruneOld(ctx)
		}
	}
}

func (r *Runner) pruneOld(ctx context.Context) {
	if r.reports == nil || r.cfg.Retention <= 0 {
		return
	}
	n, err := r.reports.Prune(ctx, time.Now().Add(-r.cfg.Retention))
	if err != nil {
		r.cfg.Logger.Warn("runner: prune failed", "error", err)
		return
	}
	if n > 0 {
		r.cfg.Logger.Debug("runner: pruned old runs", "count", n)
	}
}
