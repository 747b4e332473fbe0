package verdict

import "time"

// Check kinds recorded in a report.
const (
	KindNavigation  = "navigation"
	KindElement     = "element"
	KindKeywords    = "keywords"
	KindInteraction = "interaction"
	KindResponses   = "responses"
)

// Check is one itemized entry in a scenario report.
type Check struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Tier     Tier    `json:"tier"`
	Verdict  Verdict `json:"verdict"`
	Evidence string  `json:"evidence,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// Report is the aggregated outcome of one scenario run: one page, one
// device profile, an ordered list of checks. Built incrementally during
// the run and finalized exactly once.
type Report struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	URL        string    `json:"url"`
	Device     string    `json:"device,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Checks     []Check   `json:"checks"`
	Passed     bool      `json:"passed"`
	Failures   int       `json:"failures"`
	Warnings   int       `json:"warnings"`
}

// NewReport starts a report for a scenario run.
func NewReport(runID, scenario, url, device string) *Report {
	return &Report{
		RunID:     runID,
		Scenario:  scenario,
		URL:       url,
		Device:    device,
		StartedAt: time.Now().UTC(),
		Passed:    true,
	}
}

// Add appends a check entry and updates the aggregate counters.
// The overall result is pass iff no Required-tier check failed.
func (r *Report) Add(c Check) {
	r.Checks = append(r.Checks, c)
	switch c.Verdict {
	case Fail:
		r.Failures++
		r.Passed = false
	case Warn:
		r.Warnings++
	}
}

// Record classifies an outcome and appends it in one step.
func (r *Report) Record(name, kind string, tier Tier, ok bool, evidence, detail string) {
	r.Add(Check{
		Name:     name,
		Kind:     kind,
		Tier:     tier,
		Verdict:  Classify(ok, tier),
		Evidence: evidence,
		Detail:   detail,
	})
}

// Finalize stamps the completion time.
func (r *Report) Finalize() {
	r.FinishedAt = time.Now().UTC()
}

// Overall returns the scenario-level verdict.
func (r *Report) Overall() Verdict {
	if !r.Passed {
		return Fail
	}
	if r.Warnings > 0 {
		return Warn
	}
	return Pass
}
