package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/unearth/internal/model"
)

// Upstream is the analysis service the relay forwards to
type Upstream interface {
	Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error)
	Translate(ctx context.Context, req model.TranslateRequest) (string, error)
	Vote(ctx context.Context, reportID string, dir model.VoteDirection) (model.VoteTally, error)
}

// ServerUpstream is an HTTP client of the analyze endpoint
type ServerUpstream struct {
	endpoint string
	client   *http.Client
}

// NewServerUpstream creates an upstream for endpoint, e.g.
// http://localhost:9002/api/analyze
func NewServerUpstream(endpoint string, client *http.Client) *ServerUpstream {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &ServerUpstream{endpoint: endpoint, client: client}
}

// Submit posts the request and decodes the report
func (u *ServerUpstream) Submit(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	var res model.AnalysisResults
	if err := u.post(ctx, model.ToWire(req), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Translate posts a translate control message
func (u *ServerUpstream) Translate(ctx context.Context, req model.TranslateRequest) (string, error) {
	var out model.TranslateResult
	if err := u.post(ctx, model.TranslateControl(req), &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("translate: %s", out.Error)
	}
	return out.TranslatedSummary, nil
}

// Vote posts a vote control message
func (u *ServerUpstream) Vote(ctx context.Context, reportID string, dir model.VoteDirection) (model.VoteTally, error) {
	var out model.VoteResult
	if err := u.post(ctx, model.VoteControl(model.VoteRequest{ReportID: reportID, Vote: dir}), &out); err != nil {
		return model.VoteTally{}, err
	}
	if !out.Success || out.Votes == nil {
		return model.VoteTally{}, fmt.Errorf("vote: %s", out.Error)
	}
	return *out.Votes, nil
}

// Report fetches a stored report from the server's /reports/{id}
func (u *ServerUpstream) Report(ctx context.Context, id string) (*model.AnalysisResults, error) {
	target, err := url.Parse(u.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	target.Path = "/reports/" + url.PathEscape(id)
	target.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var res model.AnalysisResults
	if err := u.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// post sends body as JSON. Any non-2xx status is a TransportError that
// keeps the raw status and body.
func (u *ServerUpstream) post(ctx context.Context, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return u.do(req, out)
}

func (u *ServerUpstream) do(req *http.Request, out any) error {
	resp, err := u.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return &TransportError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
