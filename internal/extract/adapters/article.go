package adapters

import "golang.org/x/net/html"

// ArticleProfile handles news and blog pages that mark content with <article>
type ArticleProfile struct{ BaseProfile }

func NewArticleProfile() *ArticleProfile { return &ArticleProfile{} }

func (p *ArticleProfile) Name() string { return "article" }

// CanHandle applies to any page whose document contains an <article>
func (p *ArticleProfile) CanHandle(_ string, doc *html.Node) bool {
	return FindFirst(doc, Tag("article")) != nil
}

func (p *ArticleProfile) IsPost(n *html.Node) bool {
	return IsElement(n, "article")
}
