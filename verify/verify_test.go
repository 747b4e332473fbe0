package verify

import "testing"

func TestMatch_Partition(t *testing.T) {
	// WHAT: matched + missing always partition the full keyword set.
	// WHY: The report consumer relies on the partition to itemize misses.
	set := Set{Name: "terms", Keywords: []string{"malasakit", "pagmamahal"}}
	out := Match("We serve with malasakit and heart", set)

	if len(out.Matched) != 1 || out.Matched[0] != "malasakit" {
		t.Errorf("matched = %v, want [malasakit]", out.Matched)
	}
	if len(out.Missing) != 1 || out.Missing[0] != "pagmamahal" {
		t.Errorf("missing = %v, want [pagmamahal]", out.Missing)
	}
	if out.Coverage != 0.5 {
		t.Errorf("coverage = %f, want 0.5", out.Coverage)
	}
	if len(out.Matched)+len(out.Missing) != len(set.Keywords) {
		t.Error("matched and missing do not partition the set")
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	set := Set{Name: "brand", Keywords: []string{"Pet Insurance"}}
	out := Match("Affordable PET INSURANCE for your family", set)
	if len(out.Matched) != 1 {
		t.Errorf("matched = %v, want the phrase despite case", out.Matched)
	}
}

func TestMatch_PhraseToleratesInterveningText(t *testing.T) {
	// WHAT: A multi-word phrase matches when its words occur in order with
	// arbitrary text between them.
	// WHY: Rendered pages interleave markup noise between phrase words.
	set := Set{Keywords: []string{"comprehensive coverage"}}
	text := "comprehensive, nationwide pet coverage from day one"
	out := Match(text, set)
	if len(out.Matched) != 1 {
		t.Errorf("phrase should match with intervening text, got missing=%v", out.Missing)
	}
}

func TestMatch_PhraseOrderMatters(t *testing.T) {
	set := Set{Keywords: []string{"coverage comprehensive"}}
	out := Match("comprehensive coverage", set)
	if len(out.Matched) != 0 {
		t.Error("reordered words must not match")
	}
}

func TestMatch_EmptySet(t *testing.T) {
	out := Match("anything", Set{Name: "empty"})
	if out.Coverage != 1 || len(out.Matched) != 0 || len(out.Missing) != 0 {
		t.Errorf("empty set outcome = %+v", out)
	}
}

func TestMatch_NoText(t *testing.T) {
	set := Set{Keywords: []string{"anything"}}
	out := Match("", set)
	if out.Coverage != 0 || len(out.Missing) != 1 {
		t.Errorf("outcome against empty text = %+v", out)
	}
}

func TestContainsPhrase(t *testing.T) {
	cases := []struct {
		text, phrase string
		want         bool
	}{
		{"hello world", "hello", true},
		{"hello world", "world hello", false},
		{"a b c", "a c", true},
		{"", "x", false},
		{"abc", "", false},
		// Substring semantics within a single word are allowed.
		{"veterinarians", "vet", true},
		// "*" stands for any intervening text, in order.
		{"get a personalised quote in minutes", "get a * quote", true},
		{"get a quote", "get a * quote", true},
		{"a quote, get one", "get a * quote", false},
		{"anything at all", "*", false},
	}
	for _, c := range cases {
		if got := containsPhrase(c.text, c.phrase); got != c.want {
			t.Errorf("containsPhrase(%q, %q) = %v, want %v", c.text, c.phrase, got, c.want)
		}
	}
}
