package extract

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/ppiankov/unearth/internal/extract/adapters"
)

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func findImg(doc *html.Node) *html.Node {
	return adapters.FindFirst(doc, adapters.Tag("img"))
}
