package dispatch

import (
	"context"

	"github.com/ppiankov/unearth/internal/model"
)

// TextAnalyzer runs the text flow
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (*model.TextAnalysis, error)
}

// URLAnalyzer runs the URL flow
type URLAnalyzer interface {
	AnalyzeURL(ctx context.Context, locator, pageText string) (*model.URLAnalysis, error)
}

// ImageAnalyzer runs the image flow
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image model.InlinePayload) (*model.ImageAnalysis, error)
}

// AIDetector estimates whether media is machine generated
type AIDetector interface {
	DetectAI(ctx context.Context, media model.InlinePayload) (*model.AIDetection, error)
}

// FootageChecker runs the video context checks
type FootageChecker interface {
	CheckRecycledFootage(ctx context.Context, video model.InlinePayload, transcript string) (*model.RecycledFootage, error)
	CheckCrisisContext(ctx context.Context, video model.InlinePayload, transcript string) (*model.CrisisContext, error)
}

// Transcriber turns speech into text
type Transcriber interface {
	Transcribe(ctx context.Context, media model.InlinePayload) (string, error)
}

// Anonymizer re-voices the speaker in a clip
type Anonymizer interface {
	Anonymize(ctx context.Context, media model.InlinePayload, transcript string) (*model.Anonymization, error)
}

// PageReader returns the visible text of a web page
type PageReader interface {
	ReadPage(ctx context.Context, rawURL string) (string, error)
}

// SourceClassifier maps a URL to an authority tier
type SourceClassifier interface {
	Classify(rawURL string) model.AuthorityTier
}

// CitationChecker probes the outbound links of a submitted page
type CitationChecker interface {
	CheckCitations(ctx context.Context, rawURL string) ([]model.CitedSource, error)
}

// Backends is the set of external collaborators the orchestrator calls.
// Pages, Sources and Citations are optional.
type Backends struct {
	Text        TextAnalyzer
	URL         URLAnalyzer
	Image       ImageAnalyzer
	AI          AIDetector
	Footage     FootageChecker
	Transcriber Transcriber
	Anonymizer  Anonymizer
	Pages       PageReader
	Sources     SourceClassifier
	Citations   CitationChecker
}
