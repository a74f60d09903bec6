// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/apperr"
	"github.com/ManuGH/ytsum/internal/cache"
	"github.com/ManuGH/ytsum/internal/kv"
	"github.com/ManuGH/ytsum/internal/transcript"
	"github.com/ManuGH/ytsum/internal/types"
)

// stubProvider scripts the transcript provider one response at a time.
type stubProvider struct {
	requestRes *transcript.Result
	requestErr error
	pollRes    []*transcript.PollResult
	pollErr    error
	pollCalls  int
}

func (s *stubProvider) Request(context.Context, string, string, string) (*transcript.Result, error) {
	return s.requestRes, s.requestErr
}

func (s *stubProvider) Poll(context.Context, string) (*transcript.PollResult, error) {
	if s.pollErr != nil {
		return nil, s.pollErr
	}
	res := s.pollRes[s.pollCalls]
	if s.pollCalls < len(s.pollRes)-1 {
		s.pollCalls++
	}
	return res, nil
}

// stubEngine returns a canned result and optionally runs a hook before
// answering, used to race a cancel against the summarize stage.
type stubEngine struct {
	result  *types.Result
	err     error
	before  func()
	calls   []string // "length/format"
}

func (s *stubEngine) Run(_ context.Context, _, length, format string) (*types.Result, error) {
	s.calls = append(s.calls, length+"/"+format)
	if s.before != nil {
		s.before()
	}
	return s.result, s.err
}

func okResult() *types.Result {
	return &types.Result{
		Summary:    "A summary.",
		KeyPoints:  []string{"a", "b", "c", "d", "e"},
		Confidence: 75,
		ModelID:    "stub-model",
	}
}

type fixture struct {
	kv     kv.Store
	store  *Store
	cache  *cache.Cache
	driver *Driver
}

func newFixture(t *testing.T, provider transcript.Provider, engine Summarizer) *fixture {
	t.Helper()
	backend := kv.NewMemory(0)
	t.Cleanup(func() { _ = backend.Close() })

	store := NewStore(backend, time.Hour, zerolog.Nop())
	resultCache := cache.New(backend, time.Hour, zerolog.Nop())
	return &fixture{
		kv:     backend,
		store:  store,
		cache:  resultCache,
		driver: NewDriver(store, resultCache, provider, engine),
	}
}

func testInput() types.Input {
	return types.Input{
		URL:     "https://www.youtube.com/watch?v=abc123",
		VideoID: "abc123",
		Title:   "A video",
		Options: types.Options{}.Normalized(),
	}
}

func TestCreate_NewJob(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubEngine{result: okResult()})

	out, err := f.driver.Create(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Cached != nil {
		t.Fatal("fresh request must not hit the cache")
	}
	if out.Job.Status != types.JobStatusProcessing || out.Job.Stage != types.StageTranscript {
		t.Errorf("new job = %s/%s, want processing/transcript", out.Job.Status, out.Job.Stage)
	}
	if out.Job.ID == "" {
		t.Error("job id not minted")
	}

	stored, err := f.store.Load(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if diff := cmp.Diff(out.Job, stored); diff != "" {
		t.Errorf("persisted job differs (-want +got):\n%s", diff)
	}
}

func TestCreate_CacheHit(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubEngine{result: okResult()})
	in := testInput()

	entry := types.CacheEntry{
		Result:    *okResult(),
		Meta:      types.Meta{TranscriptLang: "en", Title: in.Title},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.cache.Store(context.Background(), in.URL, in.Options, entry); err != nil {
		t.Fatal(err)
	}

	out, err := f.driver.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Cached == nil {
		t.Fatal("expected cache hit")
	}
	if diff := cmp.Diff(&entry, out.Cached); diff != "" {
		t.Errorf("cached entry differs (-want +got):\n%s", diff)
	}

	// A hit never materializes a job record.
	keys, err := f.kv.Keys(context.Background(), kv.JobPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("cache hit created job records: %v", keys)
	}
}

func TestAdvance_SyncTranscriptCompletesInOnePoll(t *testing.T) {
	provider := &stubProvider{
		requestRes: &transcript.Result{
			Ready:          true,
			Content:        "transcript text",
			Lang:           "en",
			AvailableLangs: []string{"en", "ru"},
		},
	}
	engine := &stubEngine{result: okResult()}
	f := newFixture(t, provider, engine)

	out, _ := f.driver.Create(context.Background(), testInput())
	job, err := f.driver.Advance(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != types.JobStatusCompleted {
		t.Fatalf("status = %s, want completed after single poll", job.Status)
	}
	if job.Stage != types.StageSummarize {
		t.Errorf("stage = %s, want summarize", job.Stage)
	}
	if job.Result == nil || job.Result.Summary != "A summary." {
		t.Errorf("result missing: %+v", job.Result)
	}
	if job.Transcript.TranscriptLang != "en" || len(job.Transcript.AvailableLangs) != 2 {
		t.Errorf("transcript meta not recorded: %+v", job.Transcript)
	}
	if len(engine.calls) != 1 || engine.calls[0] != "standard/bullets" {
		t.Errorf("summarizer calls = %v, want user options", engine.calls)
	}

	// The completed result must be cached for the next POST.
	entry, ok := f.cache.Lookup(context.Background(), job.Input.URL, job.Input.Options)
	if !ok {
		t.Fatal("completed job not cached")
	}
	if entry.Meta.TranscriptLang != "en" || entry.Meta.Title != "A video" {
		t.Errorf("cache meta = %+v", entry.Meta)
	}
}

func TestAdvance_AsyncTranscriptLifecycle(t *testing.T) {
	provider := &stubProvider{
		requestRes: &transcript.Result{JobID: "remote-1"},
		pollRes: []*transcript.PollResult{
			{Status: transcript.PollActive},
			{Status: transcript.PollCompleted, Content: "transcript text", Lang: "ru"},
		},
	}
	f := newFixture(t, provider, &stubEngine{result: okResult()})

	out, _ := f.driver.Create(context.Background(), testInput())
	id := out.Job.ID
	ctx := context.Background()

	// Poll 1: provider goes async, handle persisted, still transcript stage.
	job, err := f.driver.Advance(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusProcessing || job.Stage != types.StageTranscript {
		t.Fatalf("after request: %s/%s", job.Status, job.Stage)
	}
	if job.Transcript.RemoteJobID != "remote-1" {
		t.Fatalf("remote handle = %q", job.Transcript.RemoteJobID)
	}

	// Poll 2: remote still active.
	job, err = f.driver.Advance(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusProcessing {
		t.Fatalf("active poll flipped status to %s", job.Status)
	}
	if job.Transcript.ProviderStatus != string(transcript.PollActive) {
		t.Errorf("provider status = %q", job.Transcript.ProviderStatus)
	}

	// Poll 3: completion hands off into summarize within the same call.
	job, err = f.driver.Advance(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.Transcript.TranscriptLang != "ru" {
		t.Errorf("transcript lang = %q", job.Transcript.TranscriptLang)
	}
}

func TestAdvance_TranscriptUnavailableFailsJob(t *testing.T) {
	provider := &stubProvider{
		requestErr: apperr.New(apperr.CodeTranscriptMissing, apperr.ProviderTranscript,
			"no transcript for this video"),
	}
	f := newFixture(t, provider, &stubEngine{result: okResult()})

	out, _ := f.driver.Create(context.Background(), testInput())
	job, err := f.driver.Advance(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatalf("job-scoped failures must be absorbed, got %v", err)
	}

	if job.Status != types.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Error == nil || job.Error.Code != apperr.CodeTranscriptMissing {
		t.Fatalf("error = %+v", job.Error)
	}
	if job.Error.Provider != apperr.ProviderTranscript {
		t.Errorf("provider = %s", job.Error.Provider)
	}

	// Failed outcomes are never cached.
	if _, ok := f.cache.Lookup(context.Background(), job.Input.URL, job.Input.Options); ok {
		t.Error("failed job leaked into the cache")
	}
}

func TestAdvance_RemoteFailureFailsJob(t *testing.T) {
	provider := &stubProvider{
		requestRes: &transcript.Result{JobID: "remote-1"},
		pollRes:    []*transcript.PollResult{{Status: transcript.PollFailed}},
	}
	f := newFixture(t, provider, &stubEngine{result: okResult()})

	out, _ := f.driver.Create(context.Background(), testInput())
	_, _ = f.driver.Advance(context.Background(), out.Job.ID) // goes async
	job, err := f.driver.Advance(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusFailed || job.Error.Code != apperr.CodeTranscriptMissing {
		t.Fatalf("job = %s/%+v", job.Status, job.Error)
	}
}

func TestAdvance_SummarizerFailureFailsJob(t *testing.T) {
	provider := &stubProvider{
		requestRes: &transcript.Result{Ready: true, Content: "transcript text"},
	}
	engine := &stubEngine{err: apperr.New(apperr.CodeGeminiQuota, apperr.ProviderSummarizer, "quota")}
	f := newFixture(t, provider, engine)

	out, _ := f.driver.Create(context.Background(), testInput())
	job, err := f.driver.Advance(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusFailed || job.Error.Code != apperr.CodeGeminiQuota {
		t.Fatalf("job = %s/%+v", job.Status, job.Error)
	}
}

func TestAdvance_CancelDuringSummarizeDiscardsResult(t *testing.T) {
	provider := &stubProvider{
		requestRes: &transcript.Result{Ready: true, Content: "transcript text"},
	}
	f := newFixture(t, provider, nil)

	out, _ := f.driver.Create(context.Background(), testInput())
	id := out.Job.ID

	// The cancel lands while the summarizer is in flight.
	engine := &stubEngine{result: okResult()}
	engine.before = func() {
		if err := f.driver.Cancel(context.Background(), id); err != nil {
			t.Errorf("cancel failed: %v", err)
		}
	}
	f.driver.summarizer = engine

	job, err := f.driver.Advance(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled to win", job.Status)
	}
	if job.Result != nil {
		t.Error("late summarizer result was persisted")
	}

	stored, err := f.store.Load(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != types.JobStatusCancelled || stored.Result != nil {
		t.Errorf("stored job = %s result=%v", stored.Status, stored.Result)
	}
	if _, ok := f.cache.Lookup(context.Background(), out.Job.Input.URL, out.Job.Input.Options); ok {
		t.Error("cancelled outcome leaked into the cache")
	}
}

func TestAdvance_TerminalJobUntouched(t *testing.T) {
	provider := &stubProvider{
		requestRes: &transcript.Result{Ready: true, Content: "transcript text"},
	}
	f := newFixture(t, provider, &stubEngine{result: okResult()})

	out, _ := f.driver.Create(context.Background(), testInput())
	first, err := f.driver.Advance(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatal(err)
	}

	// A duplicate poll on a completed job is a pure read.
	second, err := f.driver.Advance(context.Background(), out.Job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("terminal job mutated (-first +second):\n%s", diff)
	}
}

func TestAdvance_NotFound(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubEngine{result: okResult()})

	_, err := f.driver.Advance(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, &stubProvider{requestRes: &transcript.Result{JobID: "r"}}, &stubEngine{result: okResult()})

	out, _ := f.driver.Create(context.Background(), testInput())
	id := out.Job.ID
	ctx := context.Background()

	if err := f.driver.Cancel(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	job, err := f.driver.Advance(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled", job.Status)
	}

	// Cancelling again, or cancelling a missing job, reports not found.
	if err := f.driver.Cancel(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second cancel err = %v, want ErrNotFound", err)
	}
	if err := f.driver.Cancel(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing cancel err = %v, want ErrNotFound", err)
	}
}
