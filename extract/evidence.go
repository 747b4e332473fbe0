package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

var (
	evidencePolicy    = bluemonday.UGCPolicy()
	evidenceConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
)

// Evidence renders an HTML fragment into a short, safe snippet for report
// entries: sanitized, converted to markdown, whitespace-collapsed, and
// truncated to maxLen runes. Fragments come from uncontrolled third-party
// pages and are sanitized before anything stores or displays them.
func Evidence(fragment string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 240
	}
	clean := evidencePolicy.Sanitize(fragment)
	md, err := evidenceConverter.ConvertString(clean)
	if err != nil {
		md = clean
	}
	md = strings.Join(strings.Fields(md), " ")
	runes := []rune(md)
	if len(runes) > maxLen {
		md = string(runes[:maxLen]) + "…"
	}
	return md
}
