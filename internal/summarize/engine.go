// SPDX-License-Identifier: MIT

package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytsum/internal/apperr"
	"github.com/ManuGH/ytsum/internal/config"
	"github.com/ManuGH/ytsum/internal/types"
)

// mapConcurrency bounds parallel summarizer calls during the map step.
const mapConcurrency = 3

// Engine runs the chunk-and-reduce strategy and enforces the output contract
// after every summarizer call.
type Engine struct {
	summarizer Summarizer
	cfg        config.Config
	logger     zerolog.Logger
}

// NewEngine builds an Engine on top of a Summarizer.
func NewEngine(summarizer Summarizer, cfg config.Config, logger zerolog.Logger) *Engine {
	return &Engine{summarizer: summarizer, cfg: cfg, logger: logger}
}

// Run produces the final summary for transcript text with the requested
// length and format. Oversize transcripts are split, summarized per chunk
// with standard/paragraph, and reduced once with the user's presentation
// preference.
func (e *Engine) Run(ctx context.Context, text, length, format string) (*types.Result, error) {
	if len(text) <= e.cfg.Transcript.MaxChars {
		out, err := e.call(ctx, text, length, format)
		if err != nil {
			return nil, err
		}
		return e.result(out), nil
	}

	chunks := chunkTranscript(text, e.cfg.Transcript.ChunkMinChars, e.cfg.Transcript.ChunkMaxChars)
	e.logger.Debug().
		Int("transcript_chars", len(text)).
		Int("chunks", len(chunks)).
		Msg("transcript exceeds single-call budget, mapping chunks")

	summaries := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mapConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			out, err := e.call(gctx, chunk, types.LengthStandard, types.FormatParagraph)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			summaries[i] = out.Summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reduced, err := e.call(ctx, strings.Join(summaries, "\n\n"), length, format)
	if err != nil {
		return nil, err
	}
	return e.result(reduced), nil
}

// call invokes the summarizer once and validates its output.
func (e *Engine) call(ctx context.Context, text, length, format string) (*Output, error) {
	out, err := e.summarizer.Summarize(ctx, text, length, format)
	if err != nil {
		return nil, err
	}
	if err := e.validate(out, length); err != nil {
		return nil, err
	}
	return out, nil
}

// validate enforces the output contract: summary inside the configured
// window for the requested length, key point count within bounds with no
// empty entries, confidence in 0..100.
func (e *Engine) validate(out *Output, length string) error {
	reject := func(msg string) error {
		return apperr.New(apperr.CodeGeminiInvalidReply, apperr.ProviderSummarizer, msg)
	}

	window := e.cfg.LengthWindowFor(length)
	if got := len(out.Summary); got < window.Min || got > window.Max {
		return reject(fmt.Sprintf("summary length %d outside window [%d,%d] for %q",
			got, window.Min, window.Max, length))
	}

	min, max := e.cfg.KeyPoints.Min, e.cfg.KeyPoints.Max
	if got := len(out.KeyPoints); got < min || got > max {
		return reject(fmt.Sprintf("key point count %d outside bounds [%d,%d]", got, min, max))
	}
	for i, kp := range out.KeyPoints {
		if strings.TrimSpace(kp) == "" {
			return reject(fmt.Sprintf("key point %d is empty", i+1))
		}
	}

	if out.Confidence < 0 || out.Confidence > 100 {
		return reject(fmt.Sprintf("confidence %d outside 0..100", out.Confidence))
	}
	return nil
}

func (e *Engine) result(out *Output) *types.Result {
	return &types.Result{
		Summary:    out.Summary,
		KeyPoints:  out.KeyPoints,
		Confidence: out.Confidence,
		ModelID:    e.summarizer.ModelID(),
	}
}
