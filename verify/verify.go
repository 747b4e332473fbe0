// Package verify estimates whether extracted page text plausibly contains
// expected topical content.
//
// Matching is deliberately coarse: case-insensitive substring search, with
// multi-word phrases matching when their words occur in order anywhere in the
// text. There is no stemming and no edit-distance fuzziness; those overmatch
// on short marketing copy.
package verify

import "strings"

// Set is a named, ordered list of expected keywords or phrases.
type Set struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Outcome partitions a Set against one body of text. Matched and Missing
// are disjoint and together cover every keyword in the set.
type Outcome struct {
	Set      string   `json:"set"`
	Matched  []string `json:"matched"`
	Missing  []string `json:"missing"`
	Coverage float64  `json:"coverage"`
}

// Match checks every keyword of the set against the text and computes the
// coverage ratio. Coverage is always computed, even when the caller does not
// gate on it. An empty set yields coverage 1.
func Match(text string, set Set) Outcome {
	out := Outcome{Set: set.Name, Coverage: 1}
	if len(set.Keywords) == 0 {
		return out
	}

	lower := strings.ToLower(text)
	for _, kw := range set.Keywords {
		if containsPhrase(lower, strings.ToLower(kw)) {
			out.Matched = append(out.Matched, kw)
		} else {
			out.Missing = append(out.Missing, kw)
		}
	}
	out.Coverage = float64(len(out.Matched)) / float64(len(set.Keywords))
	return out
}

// containsPhrase reports whether every word of the phrase appears in the
// text, in order, with arbitrary intervening text. Markup often injects
// whitespace or tags between the words of a phrase; an ordered scan absorbs
// that without allowing reordered matches. A bare "*" word matches any
// intervening text and is skipped. Both inputs must be lowercased.
func containsPhrase(text, phrase string) bool {
	words := strings.Fields(phrase)
	pos, matched := 0, 0
	for _, w := range words {
		if w == "*" {
			continue
		}
		idx := strings.Index(text[pos:], w)
		if idx < 0 {
			return false
		}
		pos += idx + len(w)
		matched++
	}
	return matched > 0
}
