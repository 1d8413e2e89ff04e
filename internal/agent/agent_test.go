package agent

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/unearth/internal/extract"
	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/present"
	"github.com/ppiankov/unearth/internal/resolve"
)

type fakeClient struct {
	mu        sync.Mutex
	requests  []model.AnalysisRequest
	result    *model.AnalysisResults
	err       error
	votes     model.VoteTally
	translate model.TranslateRequest
}

func (c *fakeClient) AnalyzeContent(_ context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	res := *c.result
	res.Kind = req.Kind()
	return &res, nil
}

func (c *fakeClient) Translate(_ context.Context, req model.TranslateRequest) (string, error) {
	c.translate = req
	return "Resumen traducido", nil
}

func (c *fakeClient) Vote(_ context.Context, id string, dir model.VoteDirection) (model.VoteTally, error) {
	if id != c.result.ID {
		return model.VoteTally{}, errors.New("report not found")
	}
	if dir == model.VoteUp {
		c.votes.Up++
	} else {
		c.votes.Down++
	}
	return c.votes, nil
}

type screens struct {
	mu   sync.Mutex
	seen []present.Screen
}

func (s *screens) Render(_ io.Writer, sc present.Screen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, sc)
	return nil
}

func (s *screens) kinds() []present.ScreenKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []present.ScreenKind
	for _, sc := range s.seen {
		out = append(out, sc.Kind)
	}
	return out
}

func (s *screens) last() present.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[len(s.seen)-1]
}

func newAgent(client *fakeClient, strategies ...resolve.Strategy) (*Agent, *screens) {
	rec := &screens{}
	ui := present.NewController(io.Discard, rec)
	return New(extract.NewExtractor(), resolve.NewResolver(0, strategies...), client, ui), rec
}

func report() *model.AnalysisResults {
	return &model.AnalysisResults{
		ID:         "r-1",
		TrustScore: 64,
		Text:       &model.TextAnalysis{Summary: "A short summary."},
	}
}

func TestFactCheck_Text(t *testing.T) {
	client := &fakeClient{result: report()}
	a, rec := newAgent(client)

	res, err := a.FactCheck(context.Background(), `<div><p>The moon landing was staged in a studio.</p></div>`, "https://example.com/post/1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", res.ID)

	require.Len(t, client.requests, 1)
	assert.Equal(t, model.TextRequest{Content: "The moon landing was staged in a studio."}, client.requests[0])

	assert.Equal(t, []present.ScreenKind{present.ScreenLoading, present.ScreenLoading, present.ScreenResults}, rec.kinds())
	assert.Same(t, res, a.Current())
}

func TestFactCheck_NoContent(t *testing.T) {
	client := &fakeClient{result: report()}
	a, rec := newAgent(client)

	_, err := a.FactCheck(context.Background(), `<div><img src="/icon.png" width="16" height="16"></div>`, "https://example.com")
	assert.ErrorIs(t, err, model.ErrExtractionMiss)
	assert.Empty(t, client.requests)
	assert.Equal(t, present.ScreenError, rec.last().Kind)
	assert.Equal(t, MsgNoContent, rec.last().Message)
}

func TestFactCheck_DegradedToURL(t *testing.T) {
	client := &fakeClient{result: report()}
	a, rec := newAgent(client)

	post := `<div><img src="https://cdn.example.com/photo.jpg" width="800" height="600"></div>`
	res, err := a.FactCheck(context.Background(), post, "https://example.com")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	assert.Equal(t, model.URLRequest{Content: "https://cdn.example.com/photo.jpg"}, client.requests[0])

	assert.True(t, res.Degraded)
	require.NotEmpty(t, res.Score.Signals)
	assert.Equal(t, model.SignalDegraded, res.Score.Signals[len(res.Score.Signals)-1].Type)
	assert.False(t, client.result.Degraded, "shared report is not modified")
	assert.Equal(t, present.ScreenResults, rec.last().Kind)
}

func TestFactCheck_InlineImage(t *testing.T) {
	client := &fakeClient{result: report()}
	a, _ := newAgent(client, resolve.Chain(nil, nil)...)

	inline := model.NewInlinePayload("image/png", []byte("png"))
	post := `<div><img src="` + inline.DataURI() + `" data-unearth-rect="400,400"></div>`
	res, err := a.FactCheck(context.Background(), post, "https://example.com")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, model.ImageRequest{Payload: inline}, client.requests[0])
}

func TestFactCheck_AnalysisFailure(t *testing.T) {
	client := &fakeClient{result: report(), err: errors.New("upstream 500")}
	a, rec := newAgent(client)

	_, err := a.FactCheck(context.Background(), `<p>Some claim that is long enough</p>`, "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
	assert.Equal(t, present.ScreenError, rec.last().Kind)
	assert.Nil(t, a.Current())
}

func TestVoteAndTranslate(t *testing.T) {
	client := &fakeClient{result: report()}
	a, rec := newAgent(client)

	_, err := a.Vote(context.Background(), model.VoteUp)
	assert.Error(t, err, "no report yet")

	_, err = a.FactCheck(context.Background(), `<p>Claim under review for voting.</p>`, "https://example.com")
	require.NoError(t, err)

	tally, err := a.Vote(context.Background(), model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, model.VoteTally{Up: 1}, tally)
	assert.Equal(t, tally, rec.last().Results.Votes)
	assert.Equal(t, 1, a.Current().Votes.Up)

	text, err := a.Translate(context.Background(), "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Resumen traducido", text)
	assert.Equal(t, "r-1", client.translate.ReportID)
	assert.Equal(t, "A short summary.", client.translate.Summary)
	assert.Equal(t, "Resumen traducido", rec.last().Translation)
}

func TestVote_PartialReport(t *testing.T) {
	partial := report()
	partial.ID = ""
	client := &fakeClient{result: partial}
	a, _ := newAgent(client)

	_, err := a.FactCheck(context.Background(), `<p>Claim with a partial report only.</p>`, "https://example.com")
	require.NoError(t, err)

	_, err = a.Vote(context.Background(), model.VoteDown)
	assert.ErrorContains(t, err, "not stored")
}

func TestSubmit_Headless(t *testing.T) {
	client := &fakeClient{result: report()}
	a := New(extract.NewExtractor(), resolve.NewResolver(0), client, nil)

	res, err := a.Submit(context.Background(), model.URLRequest{Content: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, model.KindURL, res.Kind)
	assert.Same(t, res, a.Current())

	res, err = a.FactCheck(context.Background(), `<div><img src="https://cdn.example.com/p.jpg" width="500" height="500"></div>`, "https://example.com")
	require.NoError(t, err)
	assert.True(t, res.Degraded)

	tally, err := a.Vote(context.Background(), model.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Down)
}
