package bridge

import (
	"context"
	"fmt"

	"github.com/ppiankov/unearth/internal/model"
)

// Client is the page-side end of the bridge
type Client struct {
	transport Transport
	origin    string
}

// NewClient creates a client. origin identifies the page on analyze
// requests and may be empty.
func NewClient(transport Transport, origin string) *Client {
	return &Client{transport: transport, origin: origin}
}

// AnalyzeContent submits a request and returns the report
func (c *Client) AnalyzeContent(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResults, error) {
	reply, err := c.send(ctx, AnalyzeContent{Request: req, Origin: c.origin})
	if err != nil {
		return nil, err
	}
	if reply.Results == nil {
		return nil, &RemoteError{Action: ActionAnalyzeContent, Message: "reply carried no results"}
	}
	return reply.Results, nil
}

// FetchMedia asks the privileged side to fetch a URL with credentials
func (c *Client) FetchMedia(ctx context.Context, url string) (model.InlinePayload, error) {
	reply, err := c.send(ctx, FetchMedia{URL: url})
	if err != nil {
		return model.InlinePayload{}, err
	}
	p, err := model.ParseDataURI(reply.DataURI)
	if err != nil {
		return model.InlinePayload{}, fmt.Errorf("fetchMedia reply: %w", err)
	}
	return p, nil
}

// Translate returns a report summary in the target language
func (c *Client) Translate(ctx context.Context, req model.TranslateRequest) (string, error) {
	reply, err := c.send(ctx, Translate{TranslateRequest: req})
	if err != nil {
		return "", err
	}
	return reply.TranslatedSummary, nil
}

// Vote records a vote and returns the new tally
func (c *Client) Vote(ctx context.Context, reportID string, dir model.VoteDirection) (model.VoteTally, error) {
	reply, err := c.send(ctx, Vote{VoteRequest: model.VoteRequest{ReportID: reportID, Vote: dir}})
	if err != nil {
		return model.VoteTally{}, err
	}
	if reply.Votes == nil {
		return model.VoteTally{}, &RemoteError{Action: ActionVote, Message: "reply carried no tally"}
	}
	return *reply.Votes, nil
}

func (c *Client) send(ctx context.Context, msg Message) (*Reply, error) {
	env, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	reply, err := c.transport.RoundTrip(ctx, env)
	if err != nil {
		return nil, err
	}
	if !reply.Success {
		return nil, &RemoteError{Action: msg.Action(), Message: reply.Error}
	}
	return reply, nil
}
