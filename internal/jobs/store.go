// SPDX-License-Identifier: MIT

// Package jobs holds the job state machine and the polling progress driver.
// A job only moves while a client request is in flight; there is no
// background worker.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/kv"
	"github.com/ManuGH/ytsum/internal/types"
)

// ErrNotFound reports that no job exists under the requested id. Expired
// jobs are indistinguishable from never-created ones.
var ErrNotFound = errors.New("job not found")

// Store persists jobs as JSON records under job:{id} with the configured TTL.
// Every write refreshes the TTL, so a job lives for ttl past its last change.
type Store struct {
	kv     kv.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStore builds a job store over the KV backend.
func NewStore(backend kv.Store, ttl time.Duration, logger zerolog.Logger) *Store {
	return &Store{kv: backend, ttl: ttl, logger: logger}
}

// Save serializes and persists the job.
func (s *Store) Save(ctx context.Context, job *types.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := s.kv.Put(ctx, kv.JobKey(job.ID), data, s.ttl); err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return nil
}

// Load retrieves a job by id, returning ErrNotFound for absent or expired
// entries. An unreadable record is dropped and reported as not found.
func (s *Store) Load(ctx context.Context, id string) (*types.Job, error) {
	data, found, err := s.kv.Get(ctx, kv.JobKey(id))
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if !found {
		return nil, ErrNotFound
	}

	var job types.Job
	if err := json.Unmarshal(data, &job); err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("job record unreadable, dropping")
		_ = s.kv.Delete(ctx, kv.JobKey(id))
		return nil, ErrNotFound
	}
	return &job, nil
}

// Delete removes the job record. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, kv.JobKey(id))
}
