package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/unearth/internal/extract/adapters"
	"github.com/ppiankov/unearth/internal/model"
)

// Post is one post root found on a page
type Post struct {
	Site string
	Node *html.Node

	extractor *Extractor
	profile   adapters.SiteProfile
	pageURL   string
}

// HTML renders the post subtree
func (p Post) HTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, p.Node); err != nil {
		return ""
	}
	return buf.String()
}

// Artifact extracts the post's artifact
func (p Post) Artifact() (model.ArtifactReference, error) {
	return p.extractor.ExtractNode(p.Node, p.pageURL, p.profile)
}

// Posts lists the post roots on a page that hold an image, a video or a
// paragraph/heading
func (e *Extractor) Posts(pageHTML, pageURL string) ([]Post, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	profile := e.registry.FindProfile(pageURL, doc)

	var posts []Post
	for _, n := range adapters.FindAll(doc, profile.IsPost) {
		if !analyzable(n) {
			continue
		}
		posts = append(posts, Post{
			Site:      profile.Name(),
			Node:      n,
			extractor: e,
			profile:   profile,
			pageURL:   pageURL,
		})
	}
	return posts, nil
}

func analyzable(n *html.Node) bool {
	return adapters.Contains(n, func(c *html.Node) bool {
		switch {
		case adapters.IsElement(c, "img"):
			return adapters.Attr(c, "src") != ""
		case adapters.IsElement(c, "video"), adapters.IsElement(c, "p"),
			adapters.IsElement(c, "h1"), adapters.IsElement(c, "h2"):
			return true
		}
		return false
	})
}
