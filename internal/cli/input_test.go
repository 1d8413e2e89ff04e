package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/unearth/internal/extract"
	"github.com/ppiankov/unearth/internal/model"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRequestFromFile(t *testing.T) {
	req, err := requestFromFile(writeTemp(t, "photo.png", pngHeader))
	require.NoError(t, err)
	img, ok := req.(model.ImageRequest)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.Payload.MediaType)

	req, err = requestFromFile(writeTemp(t, "capture", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, model.KindImage, req.Kind(), "sniffed when the extension is unknown")

	req, err = requestFromFile(writeTemp(t, "claim.txt", []byte("  The bridge collapsed yesterday.\n")))
	require.NoError(t, err)
	assert.Equal(t, model.TextRequest{Content: "The bridge collapsed yesterday."}, req)
}

func TestRequestFromFile_Rejects(t *testing.T) {
	_, err := requestFromFile(writeTemp(t, "doc.pdf", []byte("%PDF-1.4")))
	assert.ErrorContains(t, err, "unsupported media type")

	_, err = requestFromFile(writeTemp(t, "empty.png", nil))
	assert.ErrorContains(t, err, "empty")

	_, err = requestFromFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestPostFragment(t *testing.T) {
	page := `<html><body>
<article><p>First post about a flood.</p></article>
<article><img src="https://cdn.example.com/b.jpg" width="600" height="400"></article>
</body></html>`
	ex := extract.NewExtractor()

	whole, err := postFragment(ex, page, "https://blog.example.net/", -1)
	require.NoError(t, err)
	assert.Equal(t, page, whole)

	second, err := postFragment(ex, page, "https://blog.example.net/", 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(second, "<article>"))
	assert.Contains(t, second, "b.jpg")

	_, err = postFragment(ex, page, "https://blog.example.net/", 5)
	assert.ErrorContains(t, err, "out of range")

	_, err = postFragment(ex, "<html><body><div>nothing</div></body></html>", "https://blog.example.net/", 0)
	assert.ErrorIs(t, err, model.ErrExtractionMiss)
}
