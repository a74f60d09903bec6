// SPDX-License-Identifier: MIT

// Package summarize turns transcript text into structured summaries. It holds
// the Gemini adapter, the output contract validation and the chunk-and-reduce
// strategy for oversize transcripts.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/ytsum/internal/apperr"
)

// Summarizer is the capability surface consumed by the engine. The adapter is
// expected to produce structured output; the engine re-validates regardless.
type Summarizer interface {
	Summarize(ctx context.Context, text, length, format string) (*Output, error)
	ModelID() string
}

// Output is one raw summarization outcome before validation.
type Output struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"keyPoints"`
	Confidence int      `json:"confidence"`
}

// Gemini talks to the Google generative language API.
type Gemini struct {
	base    string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGemini builds the adapter. Calls are paced client-side to stay inside
// upstream quota bursts even when many chunks are summarized concurrently.
func NewGemini(base, apiKey, model string, logger zerolog.Logger) *Gemini {
	return &Gemini{
		base:    strings.TrimRight(base, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 120 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		logger:  logger,
	}
}

// ModelID reports the configured model identifier, echoed in results.
func (g *Gemini) ModelID() string { return g.model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var responseSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "keyPoints": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "integer"}
  },
  "required": ["summary", "keyPoints", "confidence"]
}`)

// Summarize sends one generation call and decodes the structured reply.
func (g *Gemini) Summarize(ctx context.Context, text, length, format string) (*Output, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.CodeGeminiUpstream, apperr.ProviderSummarizer,
			"summarizer call aborted", err)
	}

	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: buildPrompt(text, length, format)}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.3,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeGeminiUpstream, apperr.ProviderSummarizer,
			"building summarizer request failed", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", g.base, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeGeminiUpstream, apperr.ProviderSummarizer,
			"building summarizer request failed", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	res, err := g.http.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeGeminiUpstream, apperr.ProviderSummarizer,
			"summarizer unreachable", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeGeminiUpstream, apperr.ProviderSummarizer,
			"reading summarizer response failed", err)
	}

	var p geminiResponse
	if jsonErr := json.Unmarshal(respBody, &p); jsonErr != nil && res.StatusCode == http.StatusOK {
		return nil, apperr.Wrap(apperr.CodeGeminiInvalidReply, apperr.ProviderSummarizer,
			"summarizer returned an unreadable response", jsonErr)
	}

	if res.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("summarizer returned status %d", res.StatusCode)
		if p.Error != nil && p.Error.Message != "" {
			msg = p.Error.Message
		}
		switch res.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, apperr.New(apperr.CodeGeminiAuth, apperr.ProviderSummarizer, msg)
		case http.StatusTooManyRequests:
			return nil, apperr.New(apperr.CodeGeminiQuota, apperr.ProviderSummarizer, msg)
		default:
			return nil, apperr.New(apperr.CodeGeminiUpstream, apperr.ProviderSummarizer, msg)
		}
	}

	if len(p.Candidates) == 0 || len(p.Candidates[0].Content.Parts) == 0 {
		return nil, apperr.New(apperr.CodeGeminiInvalidReply, apperr.ProviderSummarizer,
			"summarizer returned no candidates")
	}

	var out Output
	if err := json.Unmarshal([]byte(p.Candidates[0].Content.Parts[0].Text), &out); err != nil {
		return nil, apperr.Wrap(apperr.CodeGeminiInvalidReply, apperr.ProviderSummarizer,
			"summarizer produced malformed structured output", err)
	}
	return &out, nil
}

func buildPrompt(text, length, format string) string {
	var b strings.Builder
	b.WriteString("Summarize the following video transcript.\n")
	switch length {
	case "short":
		b.WriteString("Target length: concise, roughly one short paragraph.\n")
	case "detailed":
		b.WriteString("Target length: thorough, multiple paragraphs covering all major threads.\n")
	default:
		b.WriteString("Target length: a solid paragraph covering the main line of argument.\n")
	}
	if format == "paragraph" {
		b.WriteString("Render the summary as flowing prose.\n")
	} else {
		b.WriteString("Render the summary so it reads well next to a bullet list of key points.\n")
	}
	b.WriteString("Also extract 5 to 9 key points and a 0-100 confidence score for how well the transcript supports the summary.\n")
	b.WriteString("Respond with JSON only.\n\nTranscript:\n")
	b.WriteString(text)
	return b.String()
}
