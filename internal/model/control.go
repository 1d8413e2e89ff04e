package model

import (
	"fmt"
	"strings"
)

// TranslateRequest asks for a report summary in another language. Either
// ReportID or Summary identifies the text.
type TranslateRequest struct {
	ReportID       string `json:"reportId,omitempty"`
	Summary        string `json:"summary,omitempty"`
	TargetLanguage string `json:"targetLanguage"`
}

// Validate checks that the request names a text and a language
func (r TranslateRequest) Validate() error {
	if strings.TrimSpace(r.TargetLanguage) == "" {
		return fmt.Errorf("targetLanguage is required")
	}
	if strings.TrimSpace(r.ReportID) == "" && strings.TrimSpace(r.Summary) == "" {
		return fmt.Errorf("reportId or summary is required")
	}
	return nil
}

// VoteRequest is one community vote on a report
type VoteRequest struct {
	ReportID string        `json:"reportId"`
	Vote     VoteDirection `json:"vote"`
}

// Validate checks the report id and direction
func (r VoteRequest) Validate() error {
	if strings.TrimSpace(r.ReportID) == "" {
		return fmt.Errorf("reportId is required")
	}
	if _, ok := ParseVote(string(r.Vote)); !ok {
		return fmt.Errorf("vote must be %q or %q, got %q", VoteUp, VoteDown, r.Vote)
	}
	return nil
}

// Control actions accepted next to analysis requests on the analyze endpoint
const (
	ControlTranslate = "translate"
	ControlVote      = "vote"
)

// ControlMessage is the wire shape of {action: translate|vote, ...}
type ControlMessage struct {
	Action         string        `json:"action"`
	ReportID       string        `json:"reportId,omitempty"`
	Summary        string        `json:"summary,omitempty"`
	TargetLanguage string        `json:"targetLanguage,omitempty"`
	Vote           VoteDirection `json:"vote,omitempty"`
}

// TranslateControl wraps a translate request for the wire
func TranslateControl(r TranslateRequest) ControlMessage {
	return ControlMessage{Action: ControlTranslate, ReportID: r.ReportID, Summary: r.Summary, TargetLanguage: r.TargetLanguage}
}

// VoteControl wraps a vote for the wire
func VoteControl(r VoteRequest) ControlMessage {
	return ControlMessage{Action: ControlVote, ReportID: r.ReportID, Vote: r.Vote}
}

// TranslateRequest extracts the translate fields
func (c ControlMessage) TranslateRequest() TranslateRequest {
	return TranslateRequest{ReportID: c.ReportID, Summary: c.Summary, TargetLanguage: c.TargetLanguage}
}

// VoteRequest extracts the vote fields
func (c ControlMessage) VoteRequest() VoteRequest {
	return VoteRequest{ReportID: c.ReportID, Vote: c.Vote}
}

// TranslateResult is the reply to a translate control message
type TranslateResult struct {
	Success           bool   `json:"success"`
	TranslatedSummary string `json:"translatedSummary,omitempty"`
	Error             string `json:"error,omitempty"`
}

// VoteResult is the reply to a vote control message
type VoteResult struct {
	Success bool       `json:"success"`
	Votes   *VoteTally `json:"votes,omitempty"`
	Error   string     `json:"error,omitempty"`
}
