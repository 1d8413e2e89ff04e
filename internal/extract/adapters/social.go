package adapters

import "golang.org/x/net/html"

// XProfile handles x.com and twitter.com timelines
type XProfile struct{ BaseProfile }

func NewXProfile() *XProfile { return &XProfile{} }

func (p *XProfile) Name() string { return "x" }

func (p *XProfile) CanHandle(host string, _ *html.Node) bool {
	return hostIs(host, "x.com", "twitter.com", "mobile.twitter.com")
}

// IsPost matches article[data-testid="tweet"]
func (p *XProfile) IsPost(n *html.Node) bool {
	return IsElement(n, "article") && Attr(n, "data-testid") == "tweet"
}

// InstagramProfile handles instagram feeds, where every post is an <article>
type InstagramProfile struct{ BaseProfile }

func NewInstagramProfile() *InstagramProfile { return &InstagramProfile{} }

func (p *InstagramProfile) Name() string { return "instagram" }

func (p *InstagramProfile) CanHandle(host string, _ *html.Node) bool {
	return hostIs(host, "instagram.com", "cdninstagram.com")
}

func (p *InstagramProfile) IsPost(n *html.Node) bool {
	return IsElement(n, "article")
}

// FacebookProfile handles facebook feeds
type FacebookProfile struct{ BaseProfile }

func NewFacebookProfile() *FacebookProfile { return &FacebookProfile{} }

func (p *FacebookProfile) Name() string { return "facebook" }

func (p *FacebookProfile) CanHandle(host string, _ *html.Node) bool {
	return hostIs(host, "facebook.com", "fb.com", "m.facebook.com")
}

// IsPost matches div[role="article"]
func (p *FacebookProfile) IsPost(n *html.Node) bool {
	return IsElement(n, "div") && Attr(n, "role") == "article"
}
