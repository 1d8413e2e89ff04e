package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// SiteProfile knows how one site lays out its posts
type SiteProfile interface {
	// Name returns the profile name (x, instagram, facebook, article, generic)
	Name() string

	// CanHandle reports whether the profile applies to the page
	CanHandle(host string, doc *html.Node) bool

	// IsPost reports whether n is the root element of one post
	IsPost(n *html.Node) bool

	// IsPrimaryText reports whether n is the site's main post-text element
	IsPrimaryText(n *html.Node) bool
}

// Registry selects a profile for a page
type Registry struct {
	profiles []SiteProfile
	generic  SiteProfile
}

// NewRegistry creates a registry with the built-in profiles
func NewRegistry() *Registry {
	r := &Registry{}

	r.Register(NewXProfile())
	r.Register(NewInstagramProfile())
	r.Register(NewFacebookProfile())
	r.Register(NewArticleProfile())

	r.generic = NewGenericProfile()
	return r
}

// Register appends a profile; earlier registrations win
func (r *Registry) Register(p SiteProfile) {
	r.profiles = append(r.profiles, p)
}

// FindProfile returns the first matching profile or the generic fallback.
// doc may be nil when only the page URL is known.
func (r *Registry) FindProfile(pageURL string, doc *html.Node) SiteProfile {
	host := HostOf(pageURL)
	for _, p := range r.profiles {
		if p.CanHandle(host, doc) {
			return p
		}
	}
	return r.generic
}

// Profiles lists registered profiles followed by the fallback
func (r *Registry) Profiles() []SiteProfile {
	out := make([]SiteProfile, 0, len(r.profiles)+1)
	out = append(out, r.profiles...)
	return append(out, r.generic)
}

// HostOf returns the lowercased host of rawURL, or "" if it has none
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// hostIs matches domain and its subdomains
func hostIs(host string, domains ...string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// BaseProfile provides the text hook shared by every profile
type BaseProfile struct{}

// IsPrimaryText matches the data-testid="tweetText" hook, which embeds
// and reposts carry outside x.com as well
func (BaseProfile) IsPrimaryText(n *html.Node) bool {
	return IsElement(n, "") && Attr(n, "data-testid") == "tweetText"
}

// IsElement reports whether n is an element with the given tag; an empty
// tag matches any element
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && (tag == "" || n.Data == tag)
}

// Attr returns an attribute value or ""
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether an attribute is present, even if empty
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// HasClass reports whether n carries the CSS class
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// FindAll returns every node under n (inclusive) matching pred, in document order
func FindAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if pred(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if n != nil {
		walk(n)
	}
	return out
}

// FindFirst returns the first node under n (inclusive) matching pred
func FindFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether any descendant of n (exclusive) matches pred
func Contains(n *html.Node, pred func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if FindFirst(c, pred) != nil {
			return true
		}
	}
	return false
}

// Tag returns a predicate matching elements by tag name
func Tag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return IsElement(n, tag) }
}

var invisibleTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "head": true, "title": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "section": true,
	"article": true, "blockquote": true, "tr": true, "header": true, "footer": true,
}

// VisibleText approximates innerText: text of rendered nodes with
// whitespace collapsed, skipping script-like and hidden subtrees
func VisibleText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
			return
		case html.ElementNode:
			if invisibleTags[node.Data] || hidden(node) {
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if node.Type == html.ElementNode && blockTags[node.Data] {
			b.WriteByte('\n')
		}
	}

	if n != nil {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func hidden(n *html.Node) bool {
	if HasAttr(n, "hidden") || Attr(n, "aria-hidden") == "true" {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(Attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
