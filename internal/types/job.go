// SPDX-License-Identifier: MIT

// Package types provides the shared domain model: job lifecycle enumerations,
// request options and the records persisted to the KV store.
package types

import (
	"time"

	"github.com/ManuGH/ytsum/internal/apperr"
)

// JobStatus represents the current state of a summarization job.
type JobStatus string

const (
	// JobStatusProcessing indicates the job is in flight.
	JobStatusProcessing JobStatus = "processing"

	// JobStatusCompleted indicates the job finished successfully.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed indicates the job encountered an error and terminated.
	JobStatusFailed JobStatus = "failed"

	// JobStatusCancelled indicates the job was cancelled by the client.
	JobStatusCancelled JobStatus = "cancelled"
)

// String implements fmt.Stringer for logging.
func (s JobStatus) String() string { return string(s) }

// IsTerminal checks whether the status represents a final state. A job in a
// terminal state never transitions again.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobStage is the coarse-grained phase of a processing job. Stage only ever
// advances forward: transcript, then summarize.
type JobStage string

const (
	StageTranscript JobStage = "transcript"
	StageSummarize  JobStage = "summarize"
)

func (s JobStage) String() string { return string(s) }

// Summary length classes.
const (
	LengthShort    = "short"
	LengthStandard = "standard"
	LengthDetailed = "detailed"
)

// Summary formats.
const (
	FormatBullets   = "bullets"
	FormatParagraph = "paragraph"
)

// Transcript acquisition modes.
const (
	TranscriptNative   = "native"
	TranscriptAuto     = "auto"
	TranscriptGenerate = "generate"
)

// Options are the client-tunable summary knobs. Zero values mean defaults;
// Normalized renders defaults explicit.
type Options struct {
	Length         string `json:"length,omitempty"`
	Format         string `json:"format,omitempty"`
	TranscriptMode string `json:"transcriptMode,omitempty"`
}

// Normalized returns a copy with every field populated. Deterministic
// canonicalization of options is what keeps the cache fingerprint stable for
// clients that omit defaults.
func (o Options) Normalized() Options {
	out := o
	if out.Length == "" {
		out.Length = LengthStandard
	}
	if out.Format == "" {
		out.Format = FormatBullets
	}
	if out.TranscriptMode == "" {
		out.TranscriptMode = TranscriptAuto
	}
	return out
}

// Valid reports whether every populated field carries a recognized value.
func (o Options) Valid() bool {
	switch o.Length {
	case "", LengthShort, LengthStandard, LengthDetailed:
	default:
		return false
	}
	switch o.Format {
	case "", FormatBullets, FormatParagraph:
	default:
		return false
	}
	switch o.TranscriptMode {
	case "", TranscriptNative, TranscriptAuto, TranscriptGenerate:
	default:
		return false
	}
	return true
}

// Input is the validated client request a job was created from.
type Input struct {
	URL     string  `json:"url"`
	VideoID string  `json:"videoId"`
	Title   string  `json:"title,omitempty"`
	Lang    string  `json:"lang,omitempty"` // advisory: auto|en|ru
	Options Options `json:"options"`
}

// TranscriptContext tracks progress of the transcript stage across polls.
type TranscriptContext struct {
	Mode           string   `json:"mode,omitempty"`
	RemoteJobID    string   `json:"remoteJobId,omitempty"`
	ProviderStatus string   `json:"providerStatus,omitempty"` // informational only
	TranscriptLang string   `json:"transcriptLang,omitempty"`
	AvailableLangs []string `json:"availableLangs,omitempty"`
}

// Result is the final summary product.
type Result struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"keyPoints"`
	Confidence int      `json:"confidence"` // 0..100
	ModelID    string   `json:"modelId"`
}

// JobError records why a job failed.
type JobError struct {
	Code     apperr.Code     `json:"code"`
	Message  string          `json:"message"`
	Provider apperr.Provider `json:"provider"`
}

// Job is the tracked unit of work produced by one POST, serialized under
// job:{id}. Terminal jobs never mutate.
type Job struct {
	ID         string            `json:"id"`
	Status     JobStatus         `json:"status"`
	Stage      JobStage          `json:"stage"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Input      Input             `json:"input"`
	Transcript TranscriptContext `json:"transcriptContext"`
	Result     *Result           `json:"result,omitempty"`
	Error      *JobError         `json:"error,omitempty"`
}

// Meta is the informational block returned alongside a completed result.
type Meta struct {
	TranscriptLang string   `json:"transcriptLang,omitempty"`
	AvailableLangs []string `json:"availableLangs,omitempty"`
	Title          string   `json:"title,omitempty"`
}

// CacheEntry is a completed result stored under cache:{fingerprint}. Only
// completed outcomes are ever cached.
type CacheEntry struct {
	Result    Result    `json:"result"`
	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"createdAt"`
}
