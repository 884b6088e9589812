package lace_test

import (
	"context"
	"fmt"

	"impractical.co/lace"
)

func ExampleMergeHead() {
	doc, err := lace.ParseDocument(`<html><head></head><body></body></html>`)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	var resources []lace.HeadResource
	for _, href := range []string{"/css/reset.css", "/css/site.css", "/css/reset.css"} {
		frag, err := lace.ParseDocument(`<link rel="stylesheet" href="` + href + `"/>`)
		if err != nil {
			fmt.Println(err.Error())
			return
		}
		node, err := frag.FindFirst("link")
		if err != nil {
			fmt.Println(err.Error())
			return
		}
		resources = append(resources, lace.HeadResource{Node: node})
	}

	// the duplicate reset.css is dropped, the rest keep their order
	if err := lace.MergeHead(context.Background(), doc, resources...); err != nil {
		fmt.Println(err.Error())
		return
	}

	out, err := doc.HTML()
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	fmt.Println(out)

	// Output:
	// <html><head><link rel="stylesheet" href="/css/reset.css"/><link rel="stylesheet" href="/css/site.css"/></head><body></body></html>
}
