package extract

import (
	"context"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Hound Insurance</title>
  <meta name="description" content="Pet insurance with heart">
  <style>.x { color: red }</style>
  <script>var tracked = true;</script>
</head>
<body>
  <header><img class="logo" src="/logo.png" alt="Hound Insurance logo"></header>
  <h1 class="hero-title">Protect   Every
  Paw</h1>
  <p style="display:none">hidden promo</p>
  <p hidden>also hidden</p>
  <div class="content"><p>Comprehensive <b>coverage</b> for dogs and cats.</p></div>
  <footer class="site-footer">© Hound Insurance</footer>
</body>
</html>`

func TestText_NormalizesWhitespace(t *testing.T) {
	text := Text([]byte(samplePage))
	if !strings.Contains(text, "Protect Every Paw") {
		t.Errorf("text = %q, want collapsed heading", text)
	}
}

func TestText_SkipsScriptStyleAndHidden(t *testing.T) {
	text := Text([]byte(samplePage))
	for _, absent := range []string{"tracked", "color: red", "hidden promo", "also hidden"} {
		if strings.Contains(text, absent) {
			t.Errorf("text should not contain %q", absent)
		}
	}
	if !strings.Contains(text, "Comprehensive coverage for dogs and cats.") {
		t.Errorf("text = %q, want visible paragraph", text)
	}
}

func TestDoc_Query(t *testing.T) {
	doc, err := NewDoc([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	nodes, err := doc.Query(ctx, "h1.hero-title")
	if err != nil || len(nodes) != 1 {
		t.Fatalf("query = %v nodes, err %v", len(nodes), err)
	}
	text, _ := nodes[0].Text(ctx)
	if text != "Protect Every Paw" {
		t.Errorf("node text = %q", text)
	}
	vis, _ := nodes[0].Visible(ctx)
	if !vis {
		t.Error("heading should be visible")
	}
}

func TestDoc_QueryAttribute(t *testing.T) {
	doc, err := NewDoc([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	nodes, err := doc.Query(ctx, `meta[name="description"]`)
	if err != nil || len(nodes) != 1 {
		t.Fatalf("query = %v nodes, err %v", len(nodes), err)
	}
	content, _ := nodes[0].Attribute(ctx, "content")
	if content != "Pet insurance with heart" {
		t.Errorf("content = %q", content)
	}
}

func TestDoc_HiddenNodes(t *testing.T) {
	doc, err := NewDoc([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	nodes, err := doc.Query(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	visible := 0
	for _, n := range nodes {
		if v, _ := n.Visible(ctx); v {
			visible++
		}
	}
	if visible != 1 {
		t.Errorf("visible paragraphs = %d, want 1", visible)
	}
}

func TestDoc_BadSelectorIsError(t *testing.T) {
	doc, err := NewDoc([]byte(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Query(context.Background(), "h1[["); err == nil {
		t.Error("malformed selector should error, not panic")
	}
}

func TestEvidence(t *testing.T) {
	got := Evidence(`<div><script>alert(1)</script><b>Comprehensive</b> coverage</div>`, 240)
	if strings.Contains(got, "alert") {
		t.Errorf("evidence %q should be sanitized", got)
	}
	if !strings.Contains(got, "Comprehensive") {
		t.Errorf("evidence %q lost content", got)
	}
}

func TestEvidence_Truncation(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Evidence("<p>"+long+"</p>", 20)
	if len([]rune(got)) > 21 {
		t.Errorf("evidence length = %d, want <= 21", len([]rune(got)))
	}
}
