package adapters

import "golang.org/x/net/html"

// GenericProfile is the fallback for unknown layouts
type GenericProfile struct{ BaseProfile }

func NewGenericProfile() *GenericProfile { return &GenericProfile{} }

func (p *GenericProfile) Name() string { return "generic" }

// CanHandle always returns true
func (p *GenericProfile) CanHandle(string, *html.Node) bool { return true }

// IsPost matches article, div[role="article"] and section
func (p *GenericProfile) IsPost(n *html.Node) bool {
	switch {
	case IsElement(n, "article"), IsElement(n, "section"):
		return true
	case IsElement(n, "div"):
		return Attr(n, "role") == "article"
	}
	return false
}
