package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/unearth/internal/extract"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/validate"
)

// CitationReader checks the outbound links of a submitted page. It reads
// the page through the same PageReader as the URL flow, so the page is
// downloaded once.
type CitationReader struct {
	pages    *PageReader
	checker  *validate.LinkChecker
	maxLinks int
}

// NewCitationReader creates a reader checking at most maxLinks links per
// page; zero or less checks all of them
func NewCitationReader(pages *PageReader, checker *validate.LinkChecker, maxLinks int) *CitationReader {
	return &CitationReader{pages: pages, checker: checker, maxLinks: maxLinks}
}

// CheckCitations lists the page's outbound links and probes them. Pages
// that are not HTML have no citations.
func (c *CitationReader) CheckCitations(ctx context.Context, rawURL string) ([]model.CitedSource, error) {
	res, err := c.pages.fetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if mt := mediaTypeOf(res.ContentType); mt != "" && !isHTML(mt) {
		return nil, nil
	}

	base := res.FinalURL
	if base == "" {
		base = rawURL
	}
	links, err := extract.OutboundLinks(res.Body, base)
	if err != nil {
		return nil, fmt.Errorf("parse links: %w", err)
	}
	if c.maxLinks > 0 && len(links) > c.maxLinks {
		links = links[:c.maxLinks]
	}

	c.pages.log.Debug("checking citations", "url", rawURL, "links", len(links))
	return c.checker.Check(ctx, links), nil
}
