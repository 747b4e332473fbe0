package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/houndci/sitecheck/extract"
	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/verdict"
	"github.com/houndci/sitecheck/verify"
)

// State of a driver run. Transitions are strictly forward:
// Idle → Navigating → Verifying → Reporting → Done, with Navigating → Failed
// as the only terminal error path.
type State int32

const (
	StateIdle State = iota
	StateNavigating
	StateVerifying
	StateReporting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateNavigating: "navigating",
	StateVerifying:  "verifying",
	StateReporting:  "reporting",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string { return stateNames[s] }

// Config tunes a Driver.
type Config struct {
	// NavigationTimeout bounds Session.Open. Exceeding it is fatal to the
	// scenario. Default: 30s.
	NavigationTimeout time.Duration
	// QuiesceTimeout bounds the post-navigation settle wait. Default: 10s.
	QuiesceTimeout time.Duration
	// QueryTimeout bounds each resolution query. Default: 5s.
	QueryTimeout time.Duration
	// ResolverMode selects the visibility fallback policy.
	// Default: resolve.ModePreferVisible.
	ResolverMode resolve.Mode
	// EvidenceLimit caps evidence snippet length. Default: 240 runes.
	EvidenceLimit int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.QuiesceTimeout <= 0 {
		c.QuiesceTimeout = 10 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 5 * time.Second
	}
	if c.EvidenceLimit <= 0 {
		c.EvidenceLimit = 240
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Driver executes one scenario at a time against a Session. Drivers hold no
// cross-run state beyond configuration; distinct drivers may run
// concurrently as long as each owns its own browsing context.
type Driver struct {
	session  Session
	resolver *resolve.Resolver
	cfg      Config
	state    atomic.Int32
	newID    func() string
}

// New creates a Driver.
func New(session Session, cfg Config) *Driver {
	cfg.defaults()
	return &Driver{
		session: session,
		resolver: resolve.New(resolve.Config{
			Mode:         cfg.ResolverMode,
			QueryTimeout: cfg.QueryTimeout,
			Logger:       cfg.Logger,
		}),
		cfg:   cfg,
		newID: uuid.NewString,
	}
}

// State returns the current run state.
func (d *Driver) State() State { return State(d.state.Load()) }

func (d *Driver) setState(s State) { d.state.Store(int32(s)) }

// Run executes the plan and returns its report. Run never returns a nil
// report: a navigation failure yields a report with exactly one
// Required-tier failure entry and nothing else.
func (d *Driver) Run(ctx context.Context, plan Plan) *verdict.Report {
	log := d.cfg.Logger
	report := verdict.NewReport(d.newID(), plan.Name, plan.URL, plan.Device)

	d.setState(StateNavigating)
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	page, err := d.session.Open(navCtx, plan.URL, plan.Device)
	cancel()
	if err != nil {
		d.setState(StateFailed)
		report.Record("navigation", verdict.KindNavigation, verdict.TierRequired, false,
			"", fmt.Sprintf("navigate %s: %v", plan.URL, err))
		report.Finalize()
		log.Warn("scenario: navigation failed",
			"scenario", plan.Name, "url", plan.URL, "error", err)
		return report
	}
	defer page.Close()

	quietCtx, qcancel := context.WithTimeout(ctx, d.cfg.QuiesceTimeout)
	if err := page.WaitQuiet(quietCtx); err != nil {
		log.Debug("scenario: quiescence wait expired",
			"scenario", plan.Name, "error", err)
	}
	qcancel()

	d.setState(StateVerifying)
	for _, ec := range plan.Elements {
		d.checkElement(ctx, page, ec, report)
	}
	d.checkKeywords(ctx, page, plan.Keywords, report)
	for _, ic := range plan.Interactions {
		d.checkInteraction(ctx, page, ic, report)
	}
	if plan.Responses != nil {
		d.auditResponses(page, *plan.Responses, report)
	}

	d.setState(StateReporting)
	report.Finalize()
	d.setState(StateDone)

	log.Info("scenario: finished",
		"scenario", plan.Name, "url", plan.URL, "device", plan.Device,
		"overall", report.Overall().String(),
		"failures", report.Failures, "warnings", report.Warnings)
	return report
}

func (d *Driver) checkElement(ctx context.Context, page Page, ec ElementCheck, report *verdict.Report) {
	res := d.resolver.Resolve(ctx, page, ec.Element, ec.RequireVisible)

	detail := ""
	if !res.Found {
		if res.CandidateIndex >= 0 {
			detail = fmt.Sprintf("matched candidate %d but hidden; tried: %s",
				res.CandidateIndex, strings.Join(res.Tried, "; "))
		} else {
			detail = "no candidate matched; tried: " + strings.Join(res.Tried, "; ")
		}
	} else {
		detail = fmt.Sprintf("candidate %d, %d node(s)", res.CandidateIndex, res.Count)
	}

	report.Record(ec.Element.Name, verdict.KindElement, ec.Tier, res.Found,
		d.evidence(ctx, res), detail)
}

func (d *Driver) checkKeywords(ctx context.Context, page Page, checks []KeywordCheck, report *verdict.Report) {
	if len(checks) == 0 {
		return
	}

	textCtx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	text, err := page.Text(textCtx)
	cancel()
	if err != nil {
		d.cfg.Logger.Debug("scenario: page text unavailable", "error", err)
		text = ""
	}

	for _, kc := range checks {
		out := verify.Match(text, kc.Set)
		min := kc.MinCoverage
		if min <= 0 {
			min = 1
		}
		ok := out.Coverage >= min

		detail := fmt.Sprintf("%d/%d matched (%.0f%%)",
			len(out.Matched), len(kc.Set.Keywords), out.Coverage*100)
		if len(out.Missing) > 0 {
			detail += "; missing: " + strings.Join(out.Missing, ", ")
		}
		report.Record(kc.Set.Name, verdict.KindKeywords, kc.Tier, ok,
			strings.Join(out.Matched, ", "), detail)
	}
}

// checkInteraction probes interactivity. Interaction errors (stale targets,
// detached nodes) downgrade to a warning; they never abort the scenario.
func (d *Driver) checkInteraction(ctx context.Context, page Page, ic InteractionCheck, report *verdict.Report) {
	name := ic.Element.Name + " " + ic.Action

	res := d.resolver.Resolve(ctx, page, ic.Element, true)
	if !res.Found {
		report.Record(name, verdict.KindInteraction, ic.Tier, false,
			"", "target not found; tried: "+strings.Join(res.Tried, "; "))
		return
	}

	target, ok := res.Node.(Interactable)
	if !ok {
		report.Record(name, verdict.KindInteraction, ic.Tier, false,
			res.SampleText, "resolved node does not support interaction")
		return
	}

	actCtx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	var err error
	switch ic.Action {
	case ActionFill:
		err = target.Fill(actCtx, ic.Value)
	default:
		err = target.Click(actCtx)
	}
	cancel()

	if err != nil {
		v := verdict.Warn
		if ic.Tier == verdict.TierInformational {
			v = verdict.Info
		}
		report.Add(verdict.Check{
			Name: name, Kind: verdict.KindInteraction, Tier: ic.Tier,
			Verdict: v, Evidence: res.SampleText,
			Detail: fmt.Sprintf("%s failed: %v", ic.Action, err),
		})
		return
	}
	report.Record(name, verdict.KindInteraction, ic.Tier, true, res.SampleText, "")
}

func (d *Driver) auditResponses(page Page, audit ResponseAudit, report *verdict.Report) {
	responses := page.Responses()
	var broken []string
	for _, r := range responses {
		if r.Status >= 400 {
			broken = append(broken, fmt.Sprintf("%d %s", r.Status, r.URL))
		}
	}
	if len(broken) > 3 {
		broken = append(broken[:3], fmt.Sprintf("… %d more", len(broken)-3))
	}
	report.Record("responses", verdict.KindResponses, audit.Tier, len(broken) == 0,
		"", fmt.Sprintf("%d responses, %d with error status%s",
			len(responses), countBroken(responses), detailSuffix(broken)))
}

func countBroken(responses []Response) int {
	n := 0
	for _, r := range responses {
		if r.Status >= 400 {
			n++
		}
	}
	return n
}

func detailSuffix(broken []string) string {
	if len(broken) == 0 {
		return ""
	}
	return ": " + strings.Join(broken, ", ")
}

// evidence renders a snippet for a resolved element: outer HTML through the
// sanitizer when the node supports it, sample text otherwise.
func (d *Driver) evidence(ctx context.Context, res resolve.Result) string {
	if res.Node != nil {
		if h, ok := res.Node.(HTMLer); ok {
			hctx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
			frag, err := h.HTML(hctx)
			cancel()
			if err == nil && frag != "" {
				return extract.Evidence(frag, d.cfg.EvidenceLimit)
			}
		}
	}
	return res.SampleText
}
