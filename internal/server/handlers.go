package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/unearth/internal/model"
	"github.com/ppiankov/unearth/internal/present"
	"github.com/ppiankov/unearth/internal/store"
)

// analyzeBody holds both accepted shapes: an analysis request, or a
// control message when Action is set
type analyzeBody struct {
	model.WireRequest
	model.ControlMessage
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("read body: %w", err))
		return
	}
	if len(raw) > maxRequestBytes {
		s.fail(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxRequestBytes))
		return
	}

	var body analyzeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("decode body: %w", err))
		return
	}

	switch body.Action {
	case "":
		s.analyze(w, r, body.WireRequest)
	case model.ControlTranslate:
		s.translate(w, r, body.ControlMessage.TranslateRequest())
	case model.ControlVote:
		s.vote(w, r, body.ControlMessage.VoteRequest())
	default:
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("unknown action %q", body.Action))
	}
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, wire model.WireRequest) {
	req, err := wire.Request()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	res, err := s.svc.Submit(r.Context(), req)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request, req model.TranslateRequest) {
	text, err := s.svc.Translate(r.Context(), req)
	if err != nil {
		s.log.Warn("translate failed", "report", req.ReportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, model.TranslateResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, model.TranslateResult{Success: true, TranslatedSummary: text})
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request, req model.VoteRequest) {
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusInternalServerError, model.VoteResult{Error: err.Error()})
		return
	}
	dir, _ := model.ParseVote(string(req.Vote))

	tally, err := s.svc.Vote(r.Context(), req.ReportID, dir)
	if err != nil {
		s.log.Warn("vote failed", "report", req.ReportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, model.VoteResult{Error: err.Error()})
		return
	}
	if s.metrics != nil {
		s.metrics.Vote(dir)
	}
	writeJSON(w, http.StatusOK, model.VoteResult{Success: true, Votes: &tally})
}

type factCheckBody struct {
	HTML    string `json:"html"`
	PageURL string `json:"pageUrl"`
}

func (s *Server) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	var body factCheckBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if strings.TrimSpace(body.HTML) == "" {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("html is required"))
		return
	}

	res, err := s.posts.FactCheck(r.Context(), body.HTML, body.PageURL)
	switch {
	case errors.Is(err, model.ErrExtractionMiss):
		s.fail(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.svc.Report(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(present.HTML(res))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
