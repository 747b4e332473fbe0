package resolve

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Mode controls how the resolver treats a candidate whose nodes match the
// selector but fail a visibility requirement.
type Mode int

const (
	// ModePreferVisible keeps walking the chain past invisible matches,
	// preferring a visible fallback over an invisible precise match. The
	// zero value, so it is the default everywhere a Mode is left unset.
	ModePreferVisible Mode = iota

	// ModeStrictFirstMatch stops at the first candidate with matching nodes,
	// whether or not the first node is visible. An invisible match resolves
	// as found=false with the match details recorded.
	ModeStrictFirstMatch
)

func (m Mode) String() string {
	if m == ModeStrictFirstMatch {
		return "strict-first-match"
	}
	return "prefer-visible"
}

// ParseMode parses a resolver mode name. Empty defaults to prefer-visible.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "strict-first-match") {
		return ModeStrictFirstMatch
	}
	return ModePreferVisible
}

// Config tunes the resolver.
type Config struct {
	// Mode selects the visibility fallback policy. Default: ModePreferVisible.
	Mode Mode
	// QueryTimeout bounds each per-candidate query. Default: 5s.
	QueryTimeout time.Duration
	// SampleLimit caps the extracted sample text length. Default: 200 runes.
	SampleLimit int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 5 * time.Second
	}
	if c.SampleLimit <= 0 {
		c.SampleLimit = 200
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver walks an Element's candidate chain against a Querier.
type Resolver struct {
	cfg Config
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	cfg.defaults()
	return &Resolver{cfg: cfg}
}

// Mode returns the configured fallback policy.
func (r *Resolver) Mode() Mode { return r.cfg.Mode }

// Resolve tries each candidate strictly in declared order and returns the
// first satisfying match. A transient query error on one candidate counts as
// "did not match" and the walk continues; an exhausted chain yields
// found=false, never an error.
//
// When requireVisible is set and only invisible matches exist, the result is
// found=false with CandidateIndex, Count, and SampleText describing the best
// invisible match, so the caller can report "present but hidden" instead of
// "absent".
func (r *Resolver) Resolve(ctx context.Context, q Querier, el Element, requireVisible bool) Result {
	log := r.cfg.Logger
	res := Result{Element: el.Name, CandidateIndex: -1}

	// Remembered first invisible match for prefer-visible fallback reporting.
	invisible := -1
	var invisibleCount int
	var invisibleSample string

	for i, cand := range el.Candidates {
		res.Tried = append(res.Tried, cand.String())

		qctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
		nodes, err := q.Query(qctx, cand.Selector)
		if err != nil {
			cancel()
			log.Debug("resolve: candidate query failed",
				"element", el.Name, "candidate", cand.String(), "error", err)
			continue
		}

		nodes = r.filter(qctx, nodes, cand)
		if len(nodes) == 0 {
			cancel()
			continue
		}

		first := nodes[0]
		vis, verr := first.Visible(qctx)
		if verr != nil {
			vis = false
		}
		sample := r.sample(qctx, first, cand)
		cancel()

		if !requireVisible || vis {
			res.Found = true
			res.CandidateIndex = i
			res.Count = len(nodes)
			res.Visible = vis
			res.SampleText = sample
			res.Node = first
			return res
		}

		// Matched but hidden.
		if r.cfg.Mode == ModeStrictFirstMatch {
			res.CandidateIndex = i
			res.Count = len(nodes)
			res.SampleText = sample
			res.Node = first
			return res
		}
		if invisible < 0 {
			invisible = i
			invisibleCount = len(nodes)
			invisibleSample = sample
		}
	}

	if invisible >= 0 {
		res.CandidateIndex = invisible
		res.Count = invisibleCount
		res.SampleText = invisibleSample
	}
	return res
}

// filter applies the candidate's text and attribute constraints. Nodes whose
// reads fail are skipped rather than failing the candidate.
func (r *Resolver) filter(ctx context.Context, nodes []Node, cand Candidate) []Node {
	if cand.TextContains == "" && cand.AttrName == "" {
		return nodes
	}
	var kept []Node
	for _, n := range nodes {
		if cand.TextContains != "" {
			text, err := n.Text(ctx)
			if err != nil || !containsFold(text, cand.TextContains) {
				continue
			}
		}
		if cand.AttrName != "" {
			val, err := n.Attribute(ctx, cand.AttrName)
			if err != nil {
				continue
			}
			if cand.AttrContains != "" && !containsFold(val, cand.AttrContains) {
				continue
			}
			if cand.AttrContains == "" && val == "" {
				continue
			}
		}
		kept = append(kept, n)
	}
	return kept
}

func (r *Resolver) sample(ctx context.Context, n Node, cand Candidate) string {
	text, err := n.Text(ctx)
	if err != nil || text == "" {
		if cand.AttrName != "" {
			if val, aerr := n.Attribute(ctx, cand.AttrName); aerr == nil {
				text = val
			}
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > r.cfg.SampleLimit {
		text = string(runes[:r.cfg.SampleLimit]) + "…"
	}
	return text
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
