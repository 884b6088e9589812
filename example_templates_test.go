package lace_test

import (
	"context"
	"fmt"
	"testing/fstest"

	"impractical.co/lace"
)

// aboutPage loads its markup from the Engine's template filesystem
// instead of embedding it in the type.
type aboutPage struct {
	Headline string
}

func (aboutPage) TemplateFile(_ context.Context) string {
	return "pages/about.html"
}

// headline reads its text from the page model at render time.
type headline struct {
	Text string
}

func newHeadline(_ context.Context, attrs lace.Attrs) (lace.Component, error) {
	return &headline{Text: attrs.String("text")}, nil
}

func (headline) TemplateFile(_ context.Context) string {
	return "components/headline.html"
}

func (h *headline) ProcessDOM(_ context.Context, dom *lace.Document) error {
	node, err := dom.FindFirst("h1")
	if err != nil {
		return err
	}
	return node.SetText(h.Text)
}

func ExampleWithTemplates() {
	templates := fstest.MapFS{
		"pages/about.html": &fstest.MapFile{
			Data: []byte(`<section><view-headline text='$.headline'></view-headline><p>We build things.</p></section>`),
		},
		"components/headline.html": &fstest.MapFile{
			Data: []byte(`<h1></h1>`),
		},
	}

	engine := lace.NewEngine(lace.WithTemplates(templates))
	engine.Register("headline", newHeadline)

	view, err := engine.Compile(context.Background(), aboutPage{})
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	out, err := view.Render(context.Background(), aboutPage{Headline: "About Us"})
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	fmt.Println(out)

	// Output:
	// <section><h1>About Us</h1><p>We build things.</p></section>
}
