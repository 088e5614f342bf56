package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golovatskygroup/journey-lens/internal/converse"
	"github.com/golovatskygroup/journey-lens/internal/journal"
	"github.com/golovatskygroup/journey-lens/internal/sink"
)

const maxBodyBytes = 1 << 20

type turnRequest struct {
	Utterance string `json:"utterance"`
	Stage     string `json:"stage"`
}

type turnResponse struct {
	RequestID string `json:"request_id"`
	converse.Turn
}

type stageSummary struct {
	Stage string `json:"stage"`
	Name  string `json:"name"`
	Tools int    `json:"tools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stages := make([]stageSummary, 0)
	for _, key := range s.catalog.Stages() {
		m, _ := s.catalog.Get(key)
		stages = append(stages, stageSummary{Stage: key, Name: m.StageName, Tools: len(m.Tools)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stages": stages,
	})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stageId")
	m, ok := s.catalog.Get(stage)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Journey stage manifest for '%s' not found.", stage))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleConverse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTurn(w, r, false)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	id := s.newID()
	turn := converse.Run(ctx, s.pipeline, s.orch, req.Utterance, req.Stage)
	s.logger.Info().
		Str("request_id", id).
		Str("stage", req.Stage).
		Int("steps", len(turn.Trace)).
		Bool("tool", turn.Tool != nil && turn.Tool.Success).
		Msg("turn answered")
	writeJSON(w, http.StatusOK, turnResponse{RequestID: id, Turn: turn})
}

// handleDemonstrate streams a tool demonstration as Server-Sent Events: one
// "result" event, then an "action" event per step, a "panel" snapshot and a
// final "report". A turn that activates no tool ends after "result".
func (s *Server) handleDemonstrate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTurn(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res := s.orch.Activate(ctx, req.Utterance, req.Stage)

	stream, err := sink.NewSSE(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := stream.Send("result", res); err != nil {
		s.logger.Warn().Err(err).Msg("write result event")
		return
	}

	panel := sink.NewPanel()
	report := s.orch.Play(ctx, res, sink.Tee(panel, stream))
	if report == nil {
		return
	}
	if err := stream.Send("panel", panel.Snapshot()); err != nil {
		s.logger.Warn().Err(err).Msg("write panel event")
		return
	}
	if err := stream.Send("report", report); err != nil {
		s.logger.Warn().Err(err).Msg("write report event")
	}
}

func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list runs")
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runId")
	run, err := s.runs.Run(r.Context(), id)
	switch {
	case errors.Is(err, journal.ErrRunNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Run '%s' not found.", id))
	case err != nil:
		s.logger.Error().Err(err).Str("run_id", id).Msg("load run")
		writeError(w, http.StatusInternalServerError, "could not load run")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func decodeTurn(w http.ResponseWriter, r *http.Request, needStage bool) (turnRequest, bool) {
	var req turnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	req.Stage = strings.TrimSpace(req.Stage)
	if strings.TrimSpace(req.Utterance) == "" {
		writeError(w, http.StatusBadRequest, "utterance is required")
		return req, false
	}
	if needStage && req.Stage == "" {
		writeError(w, http.StatusBadRequest, "stage is required")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
