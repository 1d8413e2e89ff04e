package model

// ArtifactKind is the category of post element chosen for analysis
type ArtifactKind string

const (
	ArtifactVideo ArtifactKind = "video"
	ArtifactImage ArtifactKind = "image"
	ArtifactText  ArtifactKind = "text"
)

// ArtifactReference is the result of extraction. It lives for one
// extraction attempt and is never persisted.
type ArtifactReference struct {
	Kind    ArtifactKind `json:"kind"`
	Locator string       `json:"locator"` // URL, data:/blob: reference, or literal text

	// Video-only hints used by the frame fallback
	Poster   string `json:"poster,omitempty"`
	Playable bool   `json:"playable,omitempty"`

	// Site profile that produced the reference (x, instagram, facebook, article, generic)
	Site string `json:"site,omitempty"`
	// PageURL is the document the post was extracted from; it decides
	// same-origin reads during resolution
	PageURL string `json:"pageUrl,omitempty"`
	// Area is the on-screen bounding area in px² (images only)
	Area int `json:"area,omitempty"`
}

// IsPlayableVideo reports whether the frame fallback may be attempted
func (a ArtifactReference) IsPlayableVideo() bool {
	return a.Kind == ArtifactVideo && a.Playable
}
