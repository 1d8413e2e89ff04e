package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/unearth/internal/llm"
	"github.com/ppiankov/unearth/internal/model"
)

type fakeProvider struct {
	reply string
	err   error
	seen  []llm.CompletionRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.seen = append(p.seen, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.reply, Model: "fake-1"}, nil
}

func (p *fakeProvider) IsAvailable(context.Context) bool { return true }

func TestAnalyzeText(t *testing.T) {
	p := &fakeProvider{reply: "```json\n" + `{"summary":"Claims the moon is cheese.","keyClaims":["moon is cheese"],"contentAnalysis":"sensational","misinformationRisk":"High","riskReasoning":"no evidence"}` + "\n```"}
	f := NewFlows(p)

	out, err := f.AnalyzeText(context.Background(), "The moon is made of cheese")
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, out.MisinformationRisk)
	assert.Equal(t, []string{"moon is cheese"}, out.KeyClaims)

	require.Len(t, p.seen, 1)
	assert.True(t, p.seen[0].JSON)
	assert.Contains(t, p.seen[0].Prompt, "The moon is made of cheese")
}

func TestAnalyzeText_Empty(t *testing.T) {
	p := &fakeProvider{}
	_, err := NewFlows(p).AnalyzeText(context.Background(), "  ")
	require.Error(t, err)
	assert.Empty(t, p.seen)
}

func TestAnalyzeText_SchemaViolation(t *testing.T) {
	p := &fakeProvider{reply: `{"summary":"x","keyClaims":[],"contentAnalysis":"","misinformationRisk":"Extreme","riskReasoning":""}`}

	_, err := NewFlows(p).AnalyzeText(context.Background(), "some text")
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "text", se.Flow)
	assert.NotEmpty(t, se.Violations)
}

func TestAnalyzeText_ProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewFlows(&fakeProvider{err: boom}).AnalyzeText(context.Background(), "text")
	require.ErrorIs(t, err, boom)
}

func TestAnalyzeURL_PageText(t *testing.T) {
	reply := `{"summary":"s","keyClaims":[],"sourceReputation":"wire service","misinformationRisk":"Low","riskReasoning":"r"}`

	p := &fakeProvider{reply: reply}
	out, err := NewFlows(p).AnalyzeURL(context.Background(), "https://example.com/a", "Article body text")
	require.NoError(t, err)
	assert.True(t, out.PageFetched)
	assert.Contains(t, p.seen[0].Prompt, "Article body text")

	p = &fakeProvider{reply: reply}
	out, err = NewFlows(p).AnalyzeURL(context.Background(), "https://example.com/a", "")
	require.NoError(t, err)
	assert.False(t, out.PageFetched)
	assert.Contains(t, p.seen[0].Prompt, "could not be retrieved")
}

func TestAnalyzeImage_AttachesMedia(t *testing.T) {
	p := &fakeProvider{reply: `{"description":"a street","manipulationAssessment":"clean","manipulationDetected":false,"reverseImageSearchKeywords":["street","rain","night"],"misinformationRisk":"Medium","riskReasoning":"r"}`}
	img := model.NewInlinePayload("image/png", []byte{1, 2, 3})

	out, err := NewFlows(p).AnalyzeImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, model.RiskMedium, out.MisinformationRisk)
	assert.False(t, out.ManipulationDetected)
	require.Len(t, p.seen[0].Media, 1)
	assert.Equal(t, "image/png", p.seen[0].Media[0].MediaType)
}

func TestDetectAI(t *testing.T) {
	reply := `{"aiProbability":93,"anatomyScore":10,"physicsScore":40,"textureScore":20,"reasoning":"six fingers","artifactsFound":["extra finger"]}`

	out, err := NewFlows(&fakeProvider{reply: reply}).DetectAI(context.Background(), model.NewInlinePayload("image/jpeg", []byte{1}))
	require.NoError(t, err)
	assert.Equal(t, 93, out.AIProbability)
	require.NotNil(t, out.PhysicsScore)
	assert.Equal(t, 40, *out.PhysicsScore)

	// Aspect scores are dropped for video
	out, err = NewFlows(&fakeProvider{reply: reply}).DetectAI(context.Background(), model.NewInlinePayload("video/mp4", []byte{1}))
	require.NoError(t, err)
	assert.Nil(t, out.PhysicsScore)
	assert.Nil(t, out.AnatomyScore)
}

func TestDetectAI_OutOfRange(t *testing.T) {
	p := &fakeProvider{reply: `{"aiProbability":140,"reasoning":"","artifactsFound":[]}`}
	_, err := NewFlows(p).DetectAI(context.Background(), model.NewInlinePayload("image/jpeg", []byte{1}))
	require.Error(t, err)
}

func TestCheckRecycledFootage(t *testing.T) {
	p := &fakeProvider{reply: `{"perceptualHash":"night, crowd, fire","extractedKeywords":["protest"],"gdeltResults":"No relevant events found"}`}

	out, err := NewFlows(p).CheckRecycledFootage(context.Background(), model.NewInlinePayload("video/mp4", []byte{1}), "")
	require.NoError(t, err)
	assert.False(t, out.HasCoverage())
	assert.Contains(t, p.seen[0].Prompt, "no speech detected")
}

func TestCheckCrisisContext(t *testing.T) {
	p := &fakeProvider{reply: `{"solarAzimuth":182.5,"solarAltitude":41.2,"weatherMatch":false,"mismatchReason":"snow in July"}`}

	out, err := NewFlows(p).CheckCrisisContext(context.Background(), model.NewInlinePayload("video/mp4", []byte{1}), "it is snowing")
	require.NoError(t, err)
	assert.False(t, out.WeatherMatch)
	assert.Equal(t, "snow in July", out.MismatchReason)
}

func TestTranslate(t *testing.T) {
	p := &fakeProvider{reply: `{"translatedSummary":"La luna no es queso."}`}

	out, err := NewFlows(p).Translate(context.Background(), "The moon is not cheese.", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "La luna no es queso.", out)
	assert.True(t, strings.Contains(p.seen[0].Prompt, "Spanish"))

	_, err = NewFlows(p).Translate(context.Background(), "text", "")
	require.Error(t, err)
}
