package mdinline_test

import (
	"context"
	"fmt"
	"image"
	"net/url"

	"github.com/arran4/mdinline"
)

func ExampleImageSession() {
	provider := mdinline.ImageProviderFunc(func(ctx context.Context, u *url.URL, alt string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	})
	session := &mdinline.ImageSession{Provider: provider}
	defer session.Close()

	nodes := []mdinline.InlineNode{
		mdinline.Text{Content: "logo: "},
		mdinline.Image{Source: "logo.png", Alt: "logo"},
	}
	// Render once without images, then again when they arrive.
	first := mdinline.Render(nodes, mdinline.RenderOptions{Images: session.Snapshot()})
	fmt.Println(len(first.Attachments))

	images, err := session.Resolve(context.Background(), nodes)
	if err != nil {
		fmt.Println(err)
		return
	}
	r := mdinline.Render(nodes, mdinline.RenderOptions{Images: images})
	fmt.Printf("%q\n", r.Text.String())
	for _, a := range r.Attachments {
		fmt.Println(a.Source, a.Offset, a.Image.Bounds().Dx())
	}
	// Output:
	// 0
	// "logo: "
	// logo.png 6 8
}
