// SPDX-License-Identifier: MIT

// Package transcript adapts the Supadata transcript API to the capability the
// job driver consumes: fetch a transcript synchronously, or start an async
// transcript job and poll it.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/apperr"
)

// Provider is the capability surface consumed by the job driver.
type Provider interface {
	// Request fetches a transcript. The provider may answer synchronously
	// (Result.Ready) or hand back a remote job id to poll.
	Request(ctx context.Context, videoURL, lang, mode string) (*Result, error)
	// Poll advances an async transcript job.
	Poll(ctx context.Context, jobID string) (*PollResult, error)
}

// Result is the outcome of a transcript request.
type Result struct {
	Ready          bool
	Content        string
	Lang           string
	AvailableLangs []string
	JobID          string // set when the provider went async
}

// PollStatus mirrors the remote transcript job lifecycle.
type PollStatus string

const (
	PollQueued    PollStatus = "queued"
	PollActive    PollStatus = "active"
	PollCompleted PollStatus = "completed"
	PollFailed    PollStatus = "failed"
)

// PollResult is one observation of an async transcript job.
type PollResult struct {
	Status         PollStatus
	Content        string
	Lang           string
	AvailableLangs []string
}

// Client talks to the Supadata HTTP API.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	logger zerolog.Logger
}

// New builds a Client against the given base URL (e.g.
// https://api.supadata.ai/v1).
func New(base, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type wireTranscript struct {
	JobID          string   `json:"jobId"`
	Content        string   `json:"content"`
	Lang           string   `json:"lang"`
	AvailableLangs []string `json:"availableLangs"`
	Status         string   `json:"status"`
	Error          string   `json:"error"`
	Message        string   `json:"message"`
}

// Request fetches a transcript for videoURL. lang is advisory; mode selects
// native, auto or generated transcripts.
func (c *Client) Request(ctx context.Context, videoURL, lang, mode string) (*Result, error) {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("text", "true")
	if lang != "" && lang != "auto" {
		q.Set("lang", lang)
	}
	if mode != "" {
		q.Set("mode", mode)
	}

	body, status, err := c.do(ctx, c.base+"/transcript?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var p wireTranscript
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apperr.Wrap(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
			"transcript provider returned an unreadable response", err)
	}

	switch status {
	case http.StatusOK:
		return &Result{
			Ready:          true,
			Content:        p.Content,
			Lang:           p.Lang,
			AvailableLangs: p.AvailableLangs,
		}, nil
	case http.StatusAccepted:
		if p.JobID == "" {
			return nil, apperr.New(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
				"transcript provider accepted the request without a job id")
		}
		return &Result{JobID: p.JobID}, nil
	default:
		return nil, classify(status, p)
	}
}

// Poll advances an async transcript job previously started by Request.
func (c *Client) Poll(ctx context.Context, jobID string) (*PollResult, error) {
	body, status, err := c.do(ctx, c.base+"/transcript/"+url.PathEscape(jobID))
	if err != nil {
		return nil, err
	}

	var p wireTranscript
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apperr.Wrap(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
			"transcript provider returned an unreadable response", err)
	}

	if status != http.StatusOK && status != http.StatusAccepted {
		return nil, classify(status, p)
	}

	switch strings.ToLower(p.Status) {
	case "queued":
		return &PollResult{Status: PollQueued}, nil
	case "active", "processing":
		return &PollResult{Status: PollActive}, nil
	case "completed":
		return &PollResult{
			Status:         PollCompleted,
			Content:        p.Content,
			Lang:           p.Lang,
			AvailableLangs: p.AvailableLangs,
		}, nil
	case "failed":
		return &PollResult{Status: PollFailed}, nil
	default:
		// Some responses omit status and carry the finished transcript.
		if p.Content != "" {
			return &PollResult{
				Status:         PollCompleted,
				Content:        p.Content,
				Lang:           p.Lang,
				AvailableLangs: p.AvailableLangs,
			}, nil
		}
		return nil, apperr.New(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
			fmt.Sprintf("transcript job reported unknown status %q", p.Status))
	}
}

func (c *Client) do(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
			"building transcript request failed", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
			"transcript provider unreachable", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeSupadataUpstream, apperr.ProviderTranscript,
			"reading transcript response failed", err)
	}
	return body, res.StatusCode, nil
}

// classify maps an upstream failure observation to the error taxonomy.
func classify(status int, p wireTranscript) *apperr.Error {
	msg := p.Message
	if msg == "" {
		msg = p.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("transcript provider returned status %d", status)
	}

	code := strings.ToLower(p.Error)
	switch {
	case status == http.StatusPartialContent,
		strings.Contains(code, "transcript-unavailable"):
		return apperr.New(apperr.CodeTranscriptMissing, apperr.ProviderTranscript, msg)
	case status == http.StatusForbidden,
		status == http.StatusNotFound,
		strings.Contains(code, "video-unavailable"),
		strings.Contains(code, "video-not-found"):
		return apperr.New(apperr.CodeVideoUnavailable, apperr.ProviderTranscript, msg)
	case status == http.StatusBadRequest,
		status == http.StatusUnprocessableEntity,
		strings.Contains(code, "invalid-request"):
		return apperr.New(apperr.CodeSupadataInvalid, apperr.ProviderTranscript, msg)
	default:
		return apperr.New(apperr.CodeSupadataUpstream, apperr.ProviderTranscript, msg)
	}
}
