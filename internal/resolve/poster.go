package resolve

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/ppiankov/unearth/internal/model"
)

// DefaultFrameMaxEdge bounds the longest side of a captured frame
const DefaultFrameMaxEdge = 1280

// PosterGrabber stands in for a frame capture when no browser is attached:
// it downloads the video's poster image and re-encodes it as JPEG.
type PosterGrabber struct {
	fetcher MediaFetcher
	maxEdge int
}

// NewPosterGrabber creates a grabber. fetcher may be nil when posters are
// always inline.
func NewPosterGrabber(fetcher MediaFetcher, maxEdge int) *PosterGrabber {
	if maxEdge <= 0 {
		maxEdge = DefaultFrameMaxEdge
	}
	return &PosterGrabber{fetcher: fetcher, maxEdge: maxEdge}
}

// GrabFrame returns the poster as an image/jpeg payload
func (g *PosterGrabber) GrabFrame(ctx context.Context, ref model.ArtifactReference) (model.InlinePayload, error) {
	if ref.Poster == "" {
		return model.InlinePayload{}, fmt.Errorf("video has no poster")
	}

	var src model.InlinePayload
	switch {
	case model.IsDataURI(ref.Poster):
		p, err := model.ParseDataURI(ref.Poster)
		if err != nil {
			return model.InlinePayload{}, err
		}
		src = p
	case g.fetcher == nil:
		return model.InlinePayload{}, fmt.Errorf("no fetcher for poster %s", ref.Poster)
	default:
		p, err := g.fetcher.FetchMedia(ctx, ref.Poster)
		if err != nil {
			return model.InlinePayload{}, fmt.Errorf("fetch poster: %w", err)
		}
		src = p
	}

	raw, err := src.Bytes()
	if err != nil {
		return model.InlinePayload{}, err
	}
	return EncodeFrame(raw, g.maxEdge)
}

// EncodeFrame decodes any supported image, fits it within maxEdge and
// re-encodes it as JPEG
func EncodeFrame(raw []byte, maxEdge int) (model.InlinePayload, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("decode frame: %w", err)
	}

	b := img.Bounds()
	if maxEdge > 0 && (b.Dx() > maxEdge || b.Dy() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return model.InlinePayload{}, fmt.Errorf("encode frame: %w", err)
	}
	return model.NewInlinePayload("image/jpeg", buf.Bytes()), nil
}
