package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/unearth/internal/llm"
	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
)

// maxPageText bounds the page text passed to the URL flow
const maxPageText = 12000

// Flows runs every analysis prompt against one language model
type Flows struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewFlows creates the flow set
func NewFlows(provider llm.Provider) *Flows {
	return &Flows{provider: provider, log: logging.New("analysis")}
}

// AnalyzeText summarizes text, extracts claims and assesses risk
func (f *Flows) AnalyzeText(ctx context.Context, text string) (*model.TextAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to analyze")
	}

	prompt := fmt.Sprintf(`Analyze the provided text content.

1. Summarize the Content: briefly summarize the main points of the text.
2. Extract Key Claims: identify and list the main factual claims made.
3. Assess Content Style: evaluate the style and tone. Look for sensationalism, loaded language, emotional appeals or other persuasive techniques.
4. Assess Misinformation Risk: Low, Medium or High.
5. Provide Reasoning: note any lack of evidence, logical fallacies or contradictions with established facts.

Return JSON with keys: summary, keyClaims (array of strings), contentAnalysis, misinformationRisk, riskReasoning.

Content to analyze:
---
%s
---`, text)

	return run[model.TextAnalysis](ctx, f, textOutput, llm.CompletionRequest{
		System: "You are a fact-checking expert.",
		Prompt: prompt,
	})
}

// AnalyzeURL assesses the content behind a locator. pageText is the
// visible page text when it could be fetched, empty otherwise.
func (f *Flows) AnalyzeURL(ctx context.Context, locator, pageText string) (*model.URLAnalysis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the content at the provided URL: %s\n\n", locator)
	b.WriteString(`1. Summarize the Content: briefly summarize the main points of the article or content.
2. Extract Key Claims: identify and list the main factual claims made.
3. Assess Source Reputation: evaluate the source (news outlet, blog, social post). Consider journalistic standards, known biases and publication history.
4. Assess Misinformation Risk: Low, Medium or High, based on the content and the source.
5. Provide Reasoning: look for sensationalism, loaded language, lack of evidence or contradictions with established facts.

Return JSON with keys: summary, keyClaims (array of strings), sourceReputation, misinformationRisk, riskReasoning.`)

	pageText = strings.TrimSpace(pageText)
	if pageText != "" {
		if len(pageText) > maxPageText {
			pageText = strings.ToValidUTF8(pageText[:maxPageText], "")
		}
		fmt.Fprintf(&b, "\n\nPage text:\n---\n%s\n---", pageText)
	} else {
		b.WriteString("\n\nThe page could not be retrieved. Base the assessment on the URL and what you know about the source.")
	}

	out, err := run[model.URLAnalysis](ctx, f, urlOutput, llm.CompletionRequest{
		System: "You are a fact-checking expert.",
		Prompt: b.String(),
	})
	if err != nil {
		return nil, err
	}
	out.PageFetched = pageText != ""
	return out, nil
}

// AnalyzeImage describes an image and assesses manipulation risk
func (f *Flows) AnalyzeImage(ctx context.Context, image model.InlinePayload) (*model.ImageAnalysis, error) {
	prompt := `Analyze the attached image.

1. Describe the Image: provide a detailed description of what you see.
2. Assess for Manipulation: look for digital alteration, AI generation or inconsistencies such as strange lighting, unnatural textures, inconsistent shadows or illogical details. Set manipulationDetected to true only when you found concrete evidence.
3. Generate Search Keywords: 3-5 distinct keywords for a reverse image search that would find the image's origin or other contexts it appeared in.
4. Assess Misinformation Risk: Low, Medium or High.
5. Provide Reasoning: explain the risk assessment.

Return JSON with keys: description, manipulationAssessment, manipulationDetected (boolean), reverseImageSearchKeywords (array of strings), misinformationRisk, riskReasoning.`

	return run[model.ImageAnalysis](ctx, f, imageOutput, llm.CompletionRequest{
		System: "You are a digital forensics expert specializing in image analysis.",
		Prompt: prompt,
		Media:  []model.InlinePayload{image},
	})
}

const forensicProtocol = `Analyze the content in 4 phases. For phases 1-3 assign a realism score (0-100) where 100 is perfectly natural and 0 is obvious AI.

Phase 1, Anatomy (anatomyScore): circular pupils and matching catchlights, finger count and joints, individual teeth, skin pores and hair strands.
Phase 2, Physics (physicsScore): do shadows follow the light sources, do reflections match the environment, is the background architecture coherent.
Phase 3, Texture (textureScore): gibberish text on signs, missing or painterly sensor noise, inconsistent compression artifacts.
Phase 4, Metadata: names such as Midjourney, DALL-E, Stable Diffusion or Adobe Firefly are strong evidence of generation and outweigh a clean visual result.

Final verdict: aiProbability (0-100) from the lowest realism scores and the metadata check. Any smoking gun (six fingers, gibberish text, generator metadata) means aiProbability above 90. Content that is only too perfect, with no errors, scores 40-60.`

// DetectAI estimates whether media was machine generated. Per-aspect
// scores are requested for still images only.
func (f *Flows) DetectAI(ctx context.Context, media model.InlinePayload) (*model.AIDetection, error) {
	var prompt string
	if strings.HasPrefix(media.MediaType, "image/") {
		prompt = forensicProtocol + `

Return JSON with keys: aiProbability, anatomyScore, physicsScore, textureScore, reasoning, artifactsFound (array of strings).`
	} else {
		prompt = fmt.Sprintf(`%s

The attached media is %s. Judge the footage as a whole.

Return JSON with keys: aiProbability, reasoning, artifactsFound (array of strings).`, forensicProtocol, media.MediaType)
	}

	out, err := run[model.AIDetection](ctx, f, aiDetectionOutput, llm.CompletionRequest{
		System: "You are a forensic image analyst and AI detection expert.",
		Prompt: prompt,
		Media:  []model.InlinePayload{media},
	})
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(media.MediaType, "image/") {
		out.AnatomyScore, out.PhysicsScore, out.TextureScore = nil, nil, nil
	}
	return out, nil
}

// CheckRecycledFootage looks for earlier coverage of the same footage
func (f *Flows) CheckRecycledFootage(ctx context.Context, video model.InlinePayload, transcript string) (*model.RecycledFootage, error) {
	prompt := fmt.Sprintf(`Determine whether the attached video is recycled footage presented as new.

Give a short visual fingerprint of the footage as perceptualHash. Extract the keywords and named entities from the audio transcription. Report whether trusted news sources covered the event the footage shows, summarizing what you know as gdeltResults; write "No relevant events found" when you know of none, and set newsCoverage accordingly.

Audio transcription:
---
%s
---

Return JSON with keys: perceptualHash, extractedKeywords (array of strings), gdeltResults, newsCoverage (boolean).`, orNone(transcript))

	return run[model.RecycledFootage](ctx, f, recycledOutput, llm.CompletionRequest{
		System: "You are an expert in digital forensics who tracks recycled and miscaptioned footage.",
		Prompt: prompt,
		Media:  []model.InlinePayload{video},
	})
}

// CheckCrisisContext compares the scene's light and weather with what the
// claimed place and time would show
func (f *Flows) CheckCrisisContext(ctx context.Context, video model.InlinePayload, transcript string) (*model.CrisisContext, error) {
	prompt := fmt.Sprintf(`Verify the context of the attached crisis footage.

Infer the location and time the footage claims to show from its content and the audio transcription. Calculate the theoretical solar azimuth (0-360 degrees) and altitude (-90 to 90 degrees) for that place and time. Decide whether the visible weather matches the weather recorded there at that time. If it does not match, give a possible reason.

Audio transcription:
---
%s
---

Return JSON with keys: solarAzimuth, solarAltitude, weatherMatch (boolean), mismatchReason.`, orNone(transcript))

	return run[model.CrisisContext](ctx, f, crisisOutput, llm.CompletionRequest{
		System: "You are an expert in verifying crisis footage context.",
		Prompt: prompt,
		Media:  []model.InlinePayload{video},
	})
}

// Translate renders a report summary in the target language
func (f *Flows) Translate(ctx context.Context, summary, language string) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("no summary to translate")
	}
	if strings.TrimSpace(language) == "" {
		return "", fmt.Errorf("target language is required")
	}

	prompt := fmt.Sprintf(`Translate the following analysis summary into %s.
Keep the tone objective and professional and the meaning accurate.

Summary:
%s

Return JSON with key: translatedSummary.`, language, summary)

	out, err := run[struct {
		TranslatedSummary string `json:"translatedSummary"`
	}](ctx, f, translateOutput, llm.CompletionRequest{
		System: "You are a professional translator.",
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return out.TranslatedSummary, nil
}

// run sends one prompt, validates the reply against the flow schema and
// decodes it
func run[T any](ctx context.Context, f *Flows, schema outputSchema, req llm.CompletionRequest) (*T, error) {
	req.JSON = true

	resp, err := f.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s flow: %w", schema.name, err)
	}
	if len(resp.Omitted) > 0 {
		f.log.Debug("media not attached", "flow", schema.name, "provider", f.provider.Name(), "types", resp.Omitted)
	}

	raw, err := llm.ExtractJSON(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%s flow: %w", schema.name, err)
	}
	if err := schema.validate([]byte(raw)); err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", schema.name, err)
	}

	f.log.Debug("flow complete", "flow", schema.name, "model", resp.Model, "tokens", resp.TokensUsed)
	return &out, nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no speech detected)"
	}
	return s
}
