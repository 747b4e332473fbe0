package catalog

import (
	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/scenario"
	"github.com/houndci/sitecheck/verdict"
)

// DefaultElements is the built-in library of logical elements common to
// marketing pages. Chains run most-specific first; a bare tag selector is
// always the last resort.
func DefaultElements() map[string]resolve.Element {
	els := []resolve.Element{
		{Name: "primary_heading", Candidates: []resolve.Candidate{
			{Selector: `h1[class*="hero"]`},
			{Selector: "main h1"},
			{Selector: "h1"},
		}},
		{Name: "navigation", Candidates: []resolve.Candidate{
			{Selector: "header nav"},
			{Selector: `[role="navigation"]`},
			{Selector: "nav"},
		}},
		{Name: "logo", Candidates: []resolve.Candidate{
			{Selector: "header img", AttrName: "alt", AttrContains: "logo"},
			{Selector: `img[class*="logo"]`},
			{Selector: "header a img"},
		}},
		{Name: "hero_image", Candidates: []resolve.Candidate{
			{Selector: `[class*="hero"] img`},
			{Selector: "picture img"},
			{Selector: "main img"},
		}},
		{Name: "footer", Candidates: []resolve.Candidate{
			{Selector: "footer"},
			{Selector: `[class*="footer"]`},
		}},
		{Name: "page_title", Candidates: []resolve.Candidate{
			{Selector: "head title"},
			{Selector: "title"},
		}},
		{Name: "meta_description", Candidates: []resolve.Candidate{
			{Selector: `meta[name="description"]`, AttrName: "content"},
			{Selector: `meta[property="og:description"]`, AttrName: "content"},
		}},
		{Name: "contact_form", Candidates: []resolve.Candidate{
			{Selector: `form[action*="contact"]`},
			{Selector: `[class*="contact"] form`},
			{Selector: "form"},
		}},
		{Name: "social_links", Candidates: []resolve.Candidate{
			{Selector: `a[href*="facebook.com"]`},
			{Selector: `a[href*="instagram.com"]`},
			{Selector: `a[href*="twitter.com"]`},
			{Selector: `a[href*="youtube.com"]`},
		}},
	}

	out := make(map[string]resolve.Element, len(els))
	for _, el := range els {
		out[el.Name] = el
	}
	return out
}

// QuickPlan builds a tolerant smoke-check plan for one URL using the
// built-in library. Only the page title is Required: a quick check should
// tell you what is missing, not fail on selector drift.
func QuickPlan(url string) scenario.Plan {
	els := DefaultElements()

	plan := scenario.Plan{
		Name: "quick",
		URL:  url,
		Elements: []scenario.ElementCheck{
			// Title and meta live in <head>; presence, not visibility.
			{Element: els["page_title"], Tier: verdict.TierRequired, RequireVisible: false},
			{Element: els["primary_heading"], Tier: verdict.TierRecommended, RequireVisible: true},
			{Element: els["navigation"], Tier: verdict.TierRecommended, RequireVisible: true},
			{Element: els["logo"], Tier: verdict.TierRecommended, RequireVisible: true},
			{Element: els["footer"], Tier: verdict.TierRecommended, RequireVisible: true},
			{Element: els["meta_description"], Tier: verdict.TierInformational, RequireVisible: false},
			{Element: els["social_links"], Tier: verdict.TierInformational, RequireVisible: true},
		},
		Responses: &scenario.ResponseAudit{Tier: verdict.TierInformational},
	}
	return plan
}
