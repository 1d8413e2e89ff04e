package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Risk is the misinformation risk level reported by the analysis flows
type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// Valid reports whether r is a known risk level
func (r Risk) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// VoteDirection is a single community vote
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVote accepts "up" or "down"
func ParseVote(s string) (VoteDirection, bool) {
	switch VoteDirection(strings.ToLower(strings.TrimSpace(s))) {
	case VoteUp:
		return VoteUp, true
	case VoteDown:
		return VoteDown, true
	}
	return "", false
}

// VoteTally counts community votes for one report
type VoteTally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Sub-report names used in Unavailable
const (
	SubReportText          = "text"
	SubReportURL           = "url"
	SubReportImage         = "image"
	SubReportAIDetection   = "aiDetection"
	SubReportTranscription = "transcription"
	SubReportRecycled      = "recycledFootage"
	SubReportCrisis        = "crisisContext"
	SubReportAnonymization = "anonymization"
)

// TextAnalysis is the text flow output
type TextAnalysis struct {
	Summary            string   `json:"summary"`
	KeyClaims          []string `json:"keyClaims"`
	ContentAnalysis    string   `json:"contentAnalysis"`
	MisinformationRisk Risk     `json:"misinformationRisk"`
	RiskReasoning      string   `json:"riskReasoning"`
}

// URLAnalysis is the URL flow output
type URLAnalysis struct {
	Summary            string   `json:"summary"`
	KeyClaims          []string `json:"keyClaims"`
	SourceReputation   string   `json:"sourceReputation"`
	MisinformationRisk Risk     `json:"misinformationRisk"`
	RiskReasoning      string   `json:"riskReasoning"`

	SourceAuthority AuthorityTier `json:"sourceAuthority"`       // Host classification, not model output
	PageFetched     bool          `json:"pageFetched,omitempty"` // Page text was supplied to the model
	CitedSources    []CitedSource `json:"citedSources,omitempty"`
}

// CitedSource is one outbound link of an analyzed page, classified and
// checked for reachability
type CitedSource struct {
	URL         string        `json:"url"`
	Host        string        `json:"host"`
	Authority   AuthorityTier `json:"authority"`
	Reachable   bool          `json:"reachable"`
	Dead        bool          `json:"dead,omitempty"` // 404 or 410
	StatusCode  int           `json:"statusCode,omitempty"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// ImageAnalysis is the image flow output
type ImageAnalysis struct {
	Description                string   `json:"description"`
	ManipulationAssessment     string   `json:"manipulationAssessment"`
	ManipulationDetected       bool     `json:"manipulationDetected"`
	ReverseImageSearchKeywords []string `json:"reverseImageSearchKeywords"`
	MisinformationRisk         Risk     `json:"misinformationRisk"`
	RiskReasoning              string   `json:"riskReasoning"`
}

// AIDetection is the AI-generation detection output. The per-aspect scores
// are only produced for still images.
type AIDetection struct {
	AIProbability  int      `json:"aiProbability"`
	AnatomyScore   *int     `json:"anatomyScore,omitempty"`
	PhysicsScore   *int     `json:"physicsScore,omitempty"`
	TextureScore   *int     `json:"textureScore,omitempty"`
	Reasoning      string   `json:"reasoning"`
	ArtifactsFound []string `json:"artifactsFound"`
}

// RecycledFootage reports whether a clip matches earlier coverage
type RecycledFootage struct {
	PerceptualHash    string   `json:"perceptualHash"`
	ExtractedKeywords []string `json:"extractedKeywords"`
	GDELTResults      string   `json:"gdeltResults"`
	NewsCoverage      *bool    `json:"newsCoverage,omitempty"`
}

// HasCoverage reports whether independent coverage was found
func (r *RecycledFootage) HasCoverage() bool {
	if r.NewsCoverage != nil {
		return *r.NewsCoverage
	}
	return !strings.Contains(strings.ToLower(r.GDELTResults), "no relevant events found")
}

// CrisisContext checks the scene against sun position and weather
type CrisisContext struct {
	SolarAzimuth   float64 `json:"solarAzimuth"`
	SolarAltitude  float64 `json:"solarAltitude"`
	WeatherMatch   bool    `json:"weatherMatch"`
	MismatchReason string  `json:"mismatchReason,omitempty"`
}

// Anonymization holds the re-voiced audio track
type Anonymization struct {
	AnonymizedAudioDataURI string `json:"anonymizedAudioDataUri"`
}

// Score is the transparent trust score breakdown
type Score struct {
	Trust         int      `json:"trust"`         // Weighted composition (0-100)
	Integrity     int      `json:"integrity"`     // Metadata integrity sub-score
	Physical      int      `json:"physical"`      // Physics match sub-score
	Corroboration int      `json:"corroboration"` // Source corroboration sub-score
	Signals       []Signal `json:"signals"`
}

// AnalysisResults is the complete forensic report for one submission.
// Everything except Votes is immutable once ID is set.
type AnalysisResults struct {
	ID          string      `json:"id,omitempty"`
	ReportURL   string      `json:"reportUrl,omitempty"`
	ContentHash string      `json:"contentHash,omitempty"`
	Kind        ContentKind `json:"kind"`
	Caption     string      `json:"caption"`
	CreatedAt   time.Time   `json:"createdAt"`

	TrustScore int   `json:"trustScore"`
	Score      Score `json:"score"`

	Text            *TextAnalysis    `json:"textAnalysis,omitempty"`
	URL             *URLAnalysis     `json:"urlAnalysis,omitempty"`
	Image           *ImageAnalysis   `json:"imageAnalysis,omitempty"`
	AIDetection     *AIDetection     `json:"aiDetection,omitempty"`
	RecycledFootage *RecycledFootage `json:"recycledFootage,omitempty"`
	CrisisContext   *CrisisContext   `json:"crisisContext,omitempty"`
	Anonymization   *Anonymization   `json:"anonymization,omitempty"`
	Transcription   string           `json:"transcription,omitempty"`

	Unavailable []string  `json:"unavailable,omitempty"` // Parallel sub-analyses that failed
	Degraded    bool      `json:"degraded,omitempty"`    // Resolved to URL-only after exhaustion
	Votes       VoteTally `json:"votes"`
}

// Partial reports whether any sub-analysis is missing
func (r *AnalysisResults) Partial() bool {
	return len(r.Unavailable) > 0
}

// Risk returns the headline misinformation risk, if any flow produced one
func (r *AnalysisResults) Risk() (Risk, bool) {
	switch {
	case r.Text != nil:
		return r.Text.MisinformationRisk, true
	case r.URL != nil:
		return r.URL.MisinformationRisk, true
	case r.Image != nil:
		return r.Image.MisinformationRisk, true
	}
	return "", false
}

// MainSummary returns the most descriptive prose in the report
func (r *AnalysisResults) MainSummary() string {
	switch {
	case r.Text != nil && r.Text.Summary != "":
		return r.Text.Summary
	case r.URL != nil && r.URL.Summary != "":
		return r.URL.Summary
	case r.Image != nil && r.Image.Description != "":
		return r.Image.Description
	case r.AIDetection != nil && r.AIDetection.Reasoning != "":
		return r.AIDetection.Reasoning
	case r.Transcription != "":
		return r.Transcription
	}
	return ""
}

// MaxCaptionLength bounds the short caption
const MaxCaptionLength = 120

// Caption returns the first sentence of s, limited to MaxCaptionLength runes
func Caption(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}

	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			next := i + utf8.RuneLen(r)
			if next == len(s) || s[next] == ' ' {
				s = s[:next]
				break
			}
		}
	}

	if utf8.RuneCountInString(s) <= MaxCaptionLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxCaptionLength-1])) + "…"
}
