package cli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/unearth/internal/extract"
	"github.com/ppiankov/unearth/internal/model"
)

// requestFromFile reads a local media file. The media type comes from the
// extension, falling back to content sniffing; plain text is analyzed as
// text.
func requestFromFile(path string) (model.AnalysisRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType == "" {
		mediaType = http.DetectContentType(raw)
	}
	if strings.HasPrefix(mediaType, "text/plain") {
		return model.TextRequest{Content: strings.TrimSpace(string(raw))}, nil
	}

	inline := model.NewInlinePayload(mediaType, raw)
	payload := model.PayloadFromInline(inline, "file")
	if !payload.ContentKind.IsBinary() {
		return nil, fmt.Errorf("%s: unsupported media type %s", path, mediaType)
	}
	return model.RequestFromPayload(payload)
}

// postFragment picks the post to analyze from a saved page. A negative
// index analyzes the whole document as one post.
func postFragment(ex *extract.Extractor, pageHTML, pageURL string, index int) (string, error) {
	if index < 0 {
		return pageHTML, nil
	}

	posts, err := ex.Posts(pageHTML, pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	if len(posts) == 0 {
		return "", model.ErrExtractionMiss
	}
	if index >= len(posts) {
		return "", fmt.Errorf("post %d out of range: page has %d analyzable posts", index, len(posts))
	}
	return posts[index].HTML(), nil
}
