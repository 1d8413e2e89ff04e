package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/store"
)

type fakeReports struct {
	report *model.AnalysisResults
	got    model.TranslateRequest
}

func (f *fakeReports) Report(_ context.Context, id string) (*model.AnalysisResults, error) {
	if f.report == nil || id != f.report.ID {
		return nil, store.ErrNotFound
	}
	return f.report, nil
}

func (f *fakeReports) Translate(_ context.Context, req model.TranslateRequest) (string, error) {
	f.got = req
	return "Resumen", nil
}

func TestTranslateReport(t *testing.T) {
	f := &fakeReports{report: &model.AnalysisResults{ID: "r-9", URL: &model.URLAnalysis{Summary: "Site summary."}}}

	text, err := translateReport(context.Background(), f, "r-9", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Resumen", text)
	assert.Equal(t, model.TranslateRequest{ReportID: "r-9", Summary: "Site summary.", TargetLanguage: "Spanish"}, f.got)

	_, err = translateReport(context.Background(), f, "missing", "Spanish")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = translateReport(context.Background(), f, "r-9", " ")
	assert.ErrorContains(t, err, "targetLanguage")
}

func TestWriteBatchReport(t *testing.T) {
	dir := t.TempDir()

	stored := &model.AnalysisResults{ID: "r-1", TrustScore: 80, Text: &model.TextAnalysis{Summary: "Fine."}}
	require.NoError(t, writeBatchReport(stored, dir))
	assert.FileExists(t, filepath.Join(dir, "r-1.json"))
	md, err := os.ReadFile(filepath.Join(dir, "r-1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Trust score: 80/100")

	partial := &model.AnalysisResults{ContentHash: "abc123", TrustScore: 50}
	require.NoError(t, writeBatchReport(partial, dir))
	assert.FileExists(t, filepath.Join(dir, "abc123.json"))

	assert.Error(t, writeBatchReport(&model.AnalysisResults{}, dir))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c-d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "report", sanitizeFilename("..report.."))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 300)), 100)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "abcd…", shorten("abcdefgh", 5))
}

func TestOpenBackend_LocalWithoutLLM(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "db.json")
	cfg.Server.PublicURL = "https://unearth.example"

	svc, err := newService(cfg, nil, false)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx := context.Background()
	committed, err := svc.store.Commit(ctx, "hash-1", &model.AnalysisResults{TrustScore: 33})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(committed.ReportURL, "https://unearth.example/reports/"))

	got, err := svc.pipeline.Report(ctx, committed.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, got.TrustScore)

	tally, err := svc.pipeline.Vote(ctx, committed.ID, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Up)

	_, err = svc.pipeline.Submit(ctx, model.TextRequest{Content: "new claim"})
	assert.ErrorContains(t, err, "analysis is not configured")

	_, err = svc.pipeline.Report(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
