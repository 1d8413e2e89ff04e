package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/unearth/internal/model"
)

// Action names a cross-context message
type Action string

const (
	ActionAnalyzeContent Action = "analyzeContent"
	ActionFetchMedia     Action = "fetchMedia"
	ActionTranslate      Action = "translate"
	ActionVote           Action = "vote"
)

// Message is a request from the page context to the privileged context.
// The set is closed: AnalyzeContent, FetchMedia, Translate and Vote.
type Message interface {
	Action() Action
	sealed()
}

// AnalyzeContent submits content for analysis
type AnalyzeContent struct {
	Request model.AnalysisRequest
	Origin  string // Page origin the request came from
}

// FetchMedia asks for a credentialed fetch of a media URL
type FetchMedia struct {
	URL string `json:"url"`
}

// Translate asks for a report summary in another language
type Translate struct {
	model.TranslateRequest
}

// Vote records a community vote
type Vote struct {
	model.VoteRequest
}

func (AnalyzeContent) Action() Action { return ActionAnalyzeContent }
func (FetchMedia) Action() Action     { return ActionFetchMedia }
func (Translate) Action() Action      { return ActionTranslate }
func (Vote) Action() Action           { return ActionVote }

func (AnalyzeContent) sealed() {}
func (FetchMedia) sealed()     {}
func (Translate) sealed()      {}
func (Vote) sealed()           {}

// Envelope is the wire shape of a message: {action, payload}
type Envelope struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload"`
	Origin  string          `json:"origin,omitempty"`
}

// Reply is the wire shape of a response: {success: true, ...} or
// {success: false, error}
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Results           *model.AnalysisResults `json:"results,omitempty"`
	DataURI           string                 `json:"dataUri,omitempty"`
	ContentType       string                 `json:"contentType,omitempty"`
	TranslatedSummary string                 `json:"translatedSummary,omitempty"`
	Votes             *model.VoteTally       `json:"votes,omitempty"`
}

// Failure builds an error reply
func Failure(err error) *Reply {
	return &Reply{Success: false, Error: err.Error()}
}

// Encode wraps a message in its envelope
func Encode(msg Message) (Envelope, error) {
	var (
		payload any
		origin  string
	)

	switch m := msg.(type) {
	case AnalyzeContent:
		payload = model.ToWire(m.Request)
		origin = m.Origin
	case FetchMedia:
		payload = m
	case Translate:
		payload = m.TranslateRequest
	case Vote:
		payload = m.VoteRequest
	default:
		return Envelope{}, fmt.Errorf("unknown message %T", msg)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", msg.Action(), err)
	}
	return Envelope{Action: msg.Action(), Payload: raw, Origin: origin}, nil
}

// Decode validates an envelope and returns the typed message
func Decode(env Envelope) (Message, error) {
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%s: missing payload", env.Action)
	}

	switch env.Action {
	case ActionAnalyzeContent:
		var w model.WireRequest
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("decode analyzeContent payload: %w", err)
		}
		req, err := w.Request()
		if err != nil {
			return nil, err
		}
		return AnalyzeContent{Request: req, Origin: env.Origin}, nil

	case ActionFetchMedia:
		var m FetchMedia
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode fetchMedia payload: %w", err)
		}
		if strings.TrimSpace(m.URL) == "" {
			return nil, fmt.Errorf("no url provided")
		}
		return m, nil

	case ActionTranslate:
		var t Translate
		if err := json.Unmarshal(env.Payload, &t.TranslateRequest); err != nil {
			return nil, fmt.Errorf("decode translate payload: %w", err)
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return t, nil

	case ActionVote:
		var v Vote
		if err := json.Unmarshal(env.Payload, &v.VoteRequest); err != nil {
			return nil, fmt.Errorf("decode vote payload: %w", err)
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		v.Vote, _ = model.ParseVote(string(v.Vote))
		return v, nil

	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}
