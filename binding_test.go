package lace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyBinding(t *testing.T) {
	t.Parallel()
	cases := map[string]bindingKind{
		"Todo":            bindingLiteral,
		"":                bindingLiteral,
		"$ateful":         bindingLiteral,
		"$.fif.item":      bindingModel,
		`\title:content`:  bindingSelector,
		`\#page`:          bindingSelector,
		"@link":           bindingCollection,
	}
	for expr, want := range cases {
		if got := classifyBinding(expr); got != want {
			t.Errorf("classifyBinding(%q) = %v, want %v", expr, got, want)
		}
	}
}

type bindingModelFixture struct {
	Title string
	FIF   map[string]string
	Inner *bindingInnerFixture
}

type bindingInnerFixture struct {
	Count int
}

func TestResolveBinding_model(t *testing.T) {
	t.Parallel()
	model := bindingModelFixture{
		Title: "Things To Do",
		FIF:   map[string]string{"item": "milk"},
		Inner: &bindingInnerFixture{Count: 3},
	}

	val, err := resolveBinding("$.title", model, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.String() != "Things To Do" {
		t.Errorf("expected %q, got %q", "Things To Do", val.String())
	}

	// case-folded field and map segments
	val, err = resolveBinding("$.fif.item", model, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.String() != "milk" {
		t.Errorf("expected %q, got %q", "milk", val.String())
	}

	// pointer crossing and non-string scalars
	val, err = resolveBinding("$.inner.count", model, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.String() != "3" {
		t.Errorf("expected %q, got %q", "3", val.String())
	}

	// a missing path is absent, not an error; required-ness is the
	// receiving component's call
	val, err = resolveBinding("$.fif.nope", model, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !val.IsAbsent() {
		t.Errorf("expected absent value, got %q", val.String())
	}

	val, err = resolveBinding("$.title", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !val.IsAbsent() {
		t.Errorf("expected absent value against nil model, got %q", val.String())
	}
}

func TestResolveBinding_literal(t *testing.T) {
	t.Parallel()
	val, err := resolveBinding("Todo", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.String() != "Todo" {
		t.Errorf("expected %q, got %q", "Todo", val.String())
	}
}

func TestResolveBinding_selector(t *testing.T) {
	t.Parallel()
	parent, err := ParseDocument(`<title>Things To Do</title><div id="page"><h1>list</h1></div>`)
	if err != nil {
		t.Fatalf("unexpected error parsing: %v", err)
	}

	val, err := resolveBinding(`\title:content`, nil, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.String() != "Things To Do" {
		t.Errorf("expected %q, got %q", "Things To Do", val.String())
	}

	val, err = resolveBinding(`\#page`, nil, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(val.Nodes()) != 1 {
		t.Fatalf("expected one node reference, got %d", len(val.Nodes()))
	}
	if val.Nodes()[0].Attr("id") != "page" {
		t.Errorf("expected the #page node, got <%s>", val.Nodes()[0].Tag())
	}

	val, err = resolveBinding(`\#missing`, nil, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !val.IsAbsent() {
		t.Errorf("expected absent value for unmatched selector")
	}
}

func TestResolveBinding_collection(t *testing.T) {
	t.Parallel()
	parent, err := ParseDocument(`<link href="/a.css"/><p class="note">one</p><link href="/b.css"/><p class="note">two</p>`)
	if err != nil {
		t.Fatalf("unexpected error parsing: %v", err)
	}

	// tag-name collection, first-in-document order preserved
	val, err := resolveBinding("@link", nil, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var hrefs []string
	for _, node := range val.Nodes() {
		hrefs = append(hrefs, node.Attr("href"))
	}
	if diff := cmp.Diff([]string{"/a.css", "/b.css"}, hrefs); diff != "" {
		t.Errorf("unexpected collection order (-want +got): %s", diff)
	}

	// no tag named note, so the class fallback kicks in
	val, err = resolveBinding("@note", nil, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var texts []string
	for _, node := range val.Nodes() {
		texts = append(texts, node.Text())
	}
	if diff := cmp.Diff([]string{"one", "two"}, texts); diff != "" {
		t.Errorf("unexpected class-fallback collection (-want +got): %s", diff)
	}
}

func TestAttrs_accessors(t *testing.T) {
	t.Parallel()
	frag, err := ParseDocument(`<p>inner</p>`)
	if err != nil {
		t.Fatalf("unexpected error parsing: %v", err)
	}
	attrs := Attrs{
		"label":     StringValue("Todo"),
		ContentAttr: FragmentValue(frag),
	}
	if attrs.String("label") != "Todo" {
		t.Errorf("expected %q, got %q", "Todo", attrs.String("label"))
	}
	if attrs.Fragment(ContentAttr) != frag {
		t.Errorf("expected the content fragment back")
	}
	if attrs.Has("absent") {
		t.Errorf("expected absent attribute to report absent")
	}
	if attrs.String("absent") != "" {
		t.Errorf("expected empty string for absent attribute")
	}
}
