package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/input"
	"github.com/gkobilansky/ab-advisor/internal/store"
)

const maxBodyBytes = 1 << 20

type HealthResponse struct {
	Status           string `json:"status"`
	ExperimentsCount int    `json:"experiments_count"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

type ErrorResponse struct {
	Error  string        `json:"error"`
	Issues []input.Issue `json:"issues,omitempty"`
}

type CreateExperimentRequest struct {
	Name     string   `json:"name"`
	Metric   string   `json:"metric"`
	Variants []string `json:"variants"`
}

type RecordCountsRequest struct {
	// Variant is a variant name or its index.
	Variant   string `json:"variant"`
	Traffic   int    `json:"traffic"`
	Successes int    `json:"successes"`
	// Set replaces the totals instead of adding to them.
	Set bool `json:"set"`
}

type ExperimentResponse struct {
	Name      string             `json:"name"`
	Metric    string             `json:"metric"`
	State     string             `json:"state"`
	Winner    string             `json:"winner,omitempty"`
	Variants  []decision.Variant `json:"variants"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type ExperimentSummary struct {
	Name      string    `json:"name"`
	Metric    string    `json:"metric"`
	State     string    `json:"state"`
	Winner    string    `json:"winner,omitempty"`
	Variants  []string  `json:"variants"`
	CreatedAt time.Time `json:"created_at"`
}

type DecisionResponse struct {
	Experiment string           `json:"experiment"`
	DecisionID string           `json:"decision_id,omitempty"`
	Result     *decision.Result `json:"result"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	experiments, err := s.store.ListExperiments(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		ExperimentsCount: len(experiments),
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
	})
}

// handleDecide runs the engine on posted counts without touching the store.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	req, err := input.Parse(body, "json")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := req.ToInput()
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.engine.Decide(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.observeDecision(res)

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := s.store.ListExperiments(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Return empty array instead of null
	response := make([]ExperimentSummary, 0, len(experiments))
	for _, exp := range experiments {
		response = append(response, ExperimentSummary{
			Name:      exp.Name,
			Metric:    exp.Metric,
			State:     string(exp.State),
			Winner:    exp.Winner,
			Variants:  exp.Variants,
			CreatedAt: exp.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req CreateExperimentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	exp, err := s.advisor.Create(r.Context(), req.Name, req.Metric, req.Variants)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/experiments/"+exp.Name)
	writeJSON(w, http.StatusCreated, experimentResponse(exp, zeroInput(exp)))
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, in, err := s.advisor.Counts(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, experimentResponse(exp, in))
}

func (s *Server) handleRecordCounts(w http.ResponseWriter, r *http.Request) {
	var req RecordCountsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := r.PathValue("name")
	if err := s.advisor.Record(r.Context(), name, req.Variant, req.Traffic, req.Successes, req.Set); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")

	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))

	resp := DecisionResponse{Experiment: name}
	if save {
		ev, rec, err := s.advisor.EvaluateAndSave(ctx, name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Result = ev.Result
		resp.DecisionID = rec.ID
	} else {
		ev, err := s.advisor.Evaluate(ctx, name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Result = ev.Result
	}
	s.metrics.observeDecision(resp.Result)

	writeJSON(w, http.StatusOK, resp)
}

func experimentResponse(exp *store.Experiment, in decision.Input) ExperimentResponse {
	return ExperimentResponse{
		Name:      exp.Name,
		Metric:    exp.Metric,
		State:     string(exp.State),
		Winner:    exp.Winner,
		Variants:  in.Variants,
		CreatedAt: exp.CreatedAt,
		UpdatedAt: exp.UpdatedAt,
	}
}

func zeroInput(exp *store.Experiment) decision.Input {
	in := decision.Input{Metric: decision.Metric(exp.Metric)}
	for _, name := range exp.Variants {
		in.Variants = append(in.Variants, decision.Variant{Name: name})
	}
	return in
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *input.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid input", Issues: verr.Issues})
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "experiment not found")
	case errors.Is(err, store.ErrExists):
		writeJSONError(w, http.StatusConflict, "experiment already exists")
	case errors.Is(err, advisor.ErrConcluded):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, advisor.ErrUnknownVariant), errors.Is(err, store.ErrInvalidVariant):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, decision.ErrTooFewVariants):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
