// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/ytsum/internal/apperr"
	"github.com/ManuGH/ytsum/internal/cache"
	"github.com/ManuGH/ytsum/internal/log"
	"github.com/ManuGH/ytsum/internal/transcript"
	"github.com/ManuGH/ytsum/internal/types"
)

var (
	jobsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsum_jobs_total",
		Help: "Jobs reaching a terminal status.",
	}, []string{"status"})

	providerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytsum_provider_errors_total",
		Help: "Classified provider failures absorbed into jobs.",
	}, []string{"provider", "code"})
)

// Summarizer produces the final result for transcript text. Satisfied by
// summarize.Engine.
type Summarizer interface {
	Run(ctx context.Context, text, length, format string) (*types.Result, error)
}

// Driver advances jobs through the state machine. All progress happens inside
// client requests: POST creates, GET advances at most one external call per
// stage, DELETE cancels cooperatively. Log entries derive from the request
// context so they carry the request and job identifiers.
type Driver struct {
	store       *Store
	cache       *cache.Cache
	transcripts transcript.Provider
	summarizer  Summarizer
	now         func() time.Time
}

// NewDriver wires the driver to its collaborators.
func NewDriver(store *Store, resultCache *cache.Cache, transcripts transcript.Provider, summarizer Summarizer) *Driver {
	return &Driver{
		store:       store,
		cache:       resultCache,
		transcripts: transcripts,
		summarizer:  summarizer,
		now:         time.Now,
	}
}

// CreateOutcome is the result of Create: either a fresh processing job or a
// cached completed entry. Exactly one field is set.
type CreateOutcome struct {
	Job    *types.Job
	Cached *types.CacheEntry
}

// Create consults the cache and otherwise mints a new job in
// processing/transcript. A cache hit never materializes a job record, so it
// can never clobber an in-flight job sharing the fingerprint.
func (d *Driver) Create(ctx context.Context, input types.Input) (*CreateOutcome, error) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	input.Options = input.Options.Normalized()

	if entry, ok := d.cache.Lookup(ctx, input.URL, input.Options); ok {
		logger.Info().
			Str(log.FieldVideoID, input.VideoID).
			Str(log.FieldURL, input.URL).
			Msg("cache hit, serving stored summary")
		return &CreateOutcome{Cached: entry}, nil
	}

	now := d.now()
	job := &types.Job{
		ID:        uuid.NewString(),
		Status:    types.JobStatusProcessing,
		Stage:     types.StageTranscript,
		CreatedAt: now,
		UpdatedAt: now,
		Input:     input,
	}
	if err := d.store.Save(ctx, job); err != nil {
		return nil, err
	}

	logger.Info().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldVideoID, input.VideoID).
		Str(log.FieldURL, input.URL).
		Str(log.FieldStage, job.Stage.String()).
		Msg("job created")
	return &CreateOutcome{Job: job}, nil
}

// Advance performs one poll step. Terminal jobs are returned untouched. A
// transcript that becomes available mid-poll is carried in memory straight
// into the summarize stage within this same call; transcripts are never
// persisted.
func (d *Driver) Advance(ctx context.Context, id string) (*types.Job, error) {
	job, err := d.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	text, ready, err := d.acquireTranscript(ctx, job)
	if err != nil {
		return d.fail(ctx, job, err)
	}
	if !ready {
		return job, nil
	}
	return d.runSummarize(ctx, job, text)
}

// Cancel flips a processing job to cancelled. Missing and already-terminal
// jobs report ErrNotFound; cancellation never races a terminal state into
// mutation.
func (d *Driver) Cancel(ctx context.Context, id string) error {
	job, err := d.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrNotFound
	}

	job.Status = types.JobStatusCancelled
	job.UpdatedAt = d.now()
	if err := d.store.Save(ctx, job); err != nil {
		return err
	}
	jobsTerminal.WithLabelValues(string(types.JobStatusCancelled)).Inc()
	logger := log.WithComponentFromContext(ctx, "jobs")
	logger.Info().
		Str(log.FieldJobID, id).
		Str(log.FieldStatus, string(job.Status)).
		Msg("job cancelled")
	return nil
}

// acquireTranscript runs the transcript stage: first poll issues the provider
// request, later polls advance the remote job. ready is true once transcript
// text is in hand.
func (d *Driver) acquireTranscript(ctx context.Context, job *types.Job) (text string, ready bool, err error) {
	logger := log.WithComponentFromContext(ctx, "jobs")

	if job.Transcript.RemoteJobID == "" {
		res, err := d.transcripts.Request(ctx, job.Input.URL, job.Input.Lang, job.Input.Options.TranscriptMode)
		if err != nil {
			return "", false, err
		}
		if res.Ready {
			job.Transcript.TranscriptLang = res.Lang
			job.Transcript.AvailableLangs = res.AvailableLangs
			logger.Debug().
				Str(log.FieldJobID, job.ID).
				Str(log.FieldLang, res.Lang).
				Msg("transcript ready")
			return res.Content, true, nil
		}

		job.Transcript.RemoteJobID = res.JobID
		job.Transcript.ProviderStatus = string(transcript.PollQueued)
		if _, persisted, err := d.saveGuarded(ctx, job); err != nil || !persisted {
			return "", false, err
		}
		logger.Debug().
			Str(log.FieldJobID, job.ID).
			Str("remote_job_id", res.JobID).
			Msg("transcript went async")
		return "", false, nil
	}

	res, err := d.transcripts.Poll(ctx, job.Transcript.RemoteJobID)
	if err != nil {
		return "", false, err
	}

	switch res.Status {
	case transcript.PollCompleted:
		job.Transcript.ProviderStatus = string(res.Status)
		job.Transcript.TranscriptLang = res.Lang
		job.Transcript.AvailableLangs = res.AvailableLangs
		logger.Debug().
			Str(log.FieldJobID, job.ID).
			Str(log.FieldLang, res.Lang).
			Msg("transcript ready")
		return res.Content, true, nil
	case transcript.PollFailed:
		return "", false, apperr.New(apperr.CodeTranscriptMissing, apperr.ProviderTranscript,
			"transcript job failed upstream")
	default: // queued, active
		job.Transcript.ProviderStatus = string(res.Status)
		_, _, err := d.saveGuarded(ctx, job)
		return "", false, err
	}
}

// runSummarize advances the job into the summarize stage and completes it.
// The stage advance and the completion are both guarded so a cancel observed
// in between discards the upstream result.
func (d *Driver) runSummarize(ctx context.Context, job *types.Job, text string) (*types.Job, error) {
	job.Stage = types.StageSummarize
	current, persisted, err := d.saveGuarded(ctx, job)
	if err != nil {
		return nil, err
	}
	if !persisted {
		return current, nil
	}

	opts := job.Input.Options
	result, err := d.summarizer.Run(ctx, text, opts.Length, opts.Format)
	if err != nil {
		return d.fail(ctx, job, err)
	}

	job.Status = types.JobStatusCompleted
	job.Result = result
	current, persisted, err = d.saveGuarded(ctx, job)
	if err != nil {
		return nil, err
	}
	if !persisted {
		// Cancelled while the summarizer ran; drop the result.
		return current, nil
	}
	jobsTerminal.WithLabelValues(string(types.JobStatusCompleted)).Inc()

	entry := types.CacheEntry{
		Result: *result,
		Meta: types.Meta{
			TranscriptLang: job.Transcript.TranscriptLang,
			AvailableLangs: job.Transcript.AvailableLangs,
			Title:          job.Input.Title,
		},
		CreatedAt: d.now(),
	}
	logger := log.WithComponentFromContext(ctx, "jobs")
	if err := d.cache.Store(ctx, job.Input.URL, opts, entry); err != nil {
		logger.Warn().Err(err).Str(log.FieldJobID, job.ID).Msg("caching completed summary failed")
	}

	logger.Info().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldVideoID, job.Input.VideoID).
		Str(log.FieldStatus, string(job.Status)).
		Int("summary_chars", len(result.Summary)).
		Msg("job completed")
	return job, nil
}

// fail transitions the job to failed with the classified error, unless a
// cancel won the race.
func (d *Driver) fail(ctx context.Context, job *types.Job, cause error) (*types.Job, error) {
	ae := apperr.From(cause)

	job.Status = types.JobStatusFailed
	job.Error = &types.JobError{Code: ae.Code, Message: ae.Message, Provider: ae.Provider}
	current, persisted, err := d.saveGuarded(ctx, job)
	if err != nil {
		return nil, err
	}
	if !persisted {
		return current, nil
	}
	jobsTerminal.WithLabelValues(string(types.JobStatusFailed)).Inc()
	providerErrors.WithLabelValues(string(ae.Provider), string(ae.Code)).Inc()

	logger := log.WithComponentFromContext(ctx, "jobs")
	logger.Warn().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldStatus, string(job.Status)).
		Str(log.FieldProvider, string(ae.Provider)).
		Str("code", string(ae.Code)).
		Err(ae).
		Msg("job failed")
	return job, nil
}

// saveGuarded re-reads the stored job immediately before writing and refuses
// to overwrite a copy that went terminal in the meantime. Returns the
// authoritative job and whether the write happened.
func (d *Driver) saveGuarded(ctx context.Context, job *types.Job) (*types.Job, bool, error) {
	current, err := d.store.Load(ctx, job.ID)
	if err != nil {
		return nil, false, err
	}
	if current.Status.IsTerminal() {
		return current, false, nil
	}

	job.UpdatedAt = d.now()
	if err := d.store.Save(ctx, job); err != nil {
		return nil, false, err
	}
	return job, true, nil
}
