// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/ytsum/internal/apperr"
	"github.com/ManuGH/ytsum/internal/jobs"
	"github.com/ManuGH/ytsum/internal/log"
	"github.com/ManuGH/ytsum/internal/ratelimit"
	"github.com/ManuGH/ytsum/internal/types"
)

// maxBodyBytes bounds the POST body; summary requests are tiny.
const maxBodyBytes = 1 << 20

// CachedJobID is the sentinel returned when a POST is served from the cache
// without materializing a job.
const CachedJobID = "cached"

type createRequest struct {
	URL     string        `json:"url"`
	Title   string        `json:"title,omitempty"`
	Lang    string        `json:"lang,omitempty"`
	Options types.Options `json:"options"`
}

type jobProjection struct {
	JobID          string           `json:"jobId"`
	Status         types.JobStatus  `json:"status"`
	Stage          types.JobStage   `json:"stage,omitempty"`
	ProviderStatus string           `json:"providerStatus,omitempty"`
	Result         *types.Result    `json:"result,omitempty"`
	Meta           *types.Meta      `json:"meta,omitempty"`
	Error          *types.JobError  `json:"error,omitempty"`
}

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code apperr.Code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: apperr.Sanitize(message)}})
}

// guardConfig rejects requests while required credentials are missing.
func (s *Server) guardConfig(w http.ResponseWriter) bool {
	if s.configErr == nil {
		return true
	}
	writeError(w, http.StatusInternalServerError, apperr.CodeConfiguration, s.configErr.Error())
	return false
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.guardConfig(w) {
		return
	}
	if !s.checkRateLimit(w, r, ratelimit.ClassPost) {
		return
	}

	var req createRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidRequest, "request body is not valid JSON")
		return
	}

	videoID, err := s.validator.URL(req.URL)
	if err != nil {
		s.respondValidation(w, err)
		return
	}
	if err := s.validator.Title(req.Title); err != nil {
		s.respondValidation(w, err)
		return
	}
	if err := s.validator.Lang(req.Lang); err != nil {
		s.respondValidation(w, err)
		return
	}
	if !req.Options.Valid() {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidRequest, "options carry unrecognized values")
		return
	}

	input := types.Input{
		URL:     req.URL,
		VideoID: videoID,
		Title:   req.Title,
		Lang:    req.Lang,
		Options: req.Options.Normalized(),
	}

	out, err := s.driver.Create(r.Context(), input)
	if err != nil {
		s.respondInternal(w, err)
		return
	}

	if out.Cached != nil {
		writeJSON(w, http.StatusOK, jobProjection{
			JobID:  CachedJobID,
			Status: types.JobStatusCompleted,
			Result: &out.Cached.Result,
			Meta:   &out.Cached.Meta,
		})
		return
	}

	writeJSON(w, http.StatusAccepted, jobProjection{
		JobID:  out.Job.ID,
		Status: out.Job.Status,
		Stage:  out.Job.Stage,
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if !s.guardConfig(w) {
		return
	}
	if !s.checkRateLimit(w, r, ratelimit.ClassGet) {
		return
	}

	id := chi.URLParam(r, "jobID")
	ctx := log.ContextWithJobID(r.Context(), id)
	job, err := s.driver.Advance(ctx, id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, apperr.CodeJobNotFound, "no job with this id")
			return
		}
		s.respondInternal(w, err)
		return
	}

	switch job.Status {
	case types.JobStatusCompleted:
		meta := types.Meta{
			TranscriptLang: job.Transcript.TranscriptLang,
			AvailableLangs: job.Transcript.AvailableLangs,
			Title:          job.Input.Title,
		}
		writeJSON(w, http.StatusOK, jobProjection{
			JobID:  job.ID,
			Status: job.Status,
			Result: job.Result,
			Meta:   &meta,
		})
	case types.JobStatusCancelled:
		writeError(w, http.StatusGone, apperr.CodeJobCancelled, "job was cancelled")
	case types.JobStatusFailed:
		writeJSON(w, http.StatusInternalServerError, jobProjection{
			JobID:  job.ID,
			Status: job.Status,
			Error:  job.Error,
		})
	default:
		writeJSON(w, http.StatusAccepted, jobProjection{
			JobID:          job.ID,
			Status:         job.Status,
			Stage:          job.Stage,
			ProviderStatus: job.Transcript.ProviderStatus,
		})
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.guardConfig(w) {
		return
	}

	id := chi.URLParam(r, "jobID")
	ctx := log.ContextWithJobID(r.Context(), id)
	if err := s.driver.Cancel(ctx, id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, apperr.CodeJobNotFound, "no cancellable job with this id")
			return
		}
		s.respondInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondValidation maps a validation failure to 400. Anything not already
// classified is reported as INVALID_REQUEST.
func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	code := ae.Code
	if code == apperr.CodeInternal {
		code = apperr.CodeInvalidRequest
	}
	writeError(w, http.StatusBadRequest, code, ae.Message)
}

func (s *Server) respondInternal(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, apperr.CodeInternal, "internal error")
}
