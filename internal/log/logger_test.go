// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// Configure is once-only per process, so every test here shares the buffer
// installed by the first call.
var buf bytes.Buffer

func configureForTest(t *testing.T) {
	t.Helper()
	Configure(Config{Level: "debug", Output: &buf, Service: "ytsum-test"})
	buf.Reset()
}

func lastEntry(t *testing.T) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	return m
}

func TestWithComponent(t *testing.T) {
	configureForTest(t)

	logger := WithComponent("kv")
	logger.Info().Msg("hello")

	entry := lastEntry(t)
	if entry[FieldComponent] != "kv" {
		t.Errorf("component = %v, want kv", entry[FieldComponent])
	}
	if entry["service"] != "ytsum-test" {
		t.Errorf("service = %v", entry["service"])
	}
}

func TestFromContextCarriesIdentifiers(t *testing.T) {
	configureForTest(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithJobID(ctx, "job-1")

	logger := FromContext(ctx)
	logger.Info().Msg("hello")

	entry := lastEntry(t)
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("request id = %v, want req-1", entry[FieldRequestID])
	}
	if entry[FieldJobID] != "job-1" {
		t.Errorf("job id = %v, want job-1", entry[FieldJobID])
	}
}

func TestFromContextWithoutIdentifiers(t *testing.T) {
	configureForTest(t)

	logger := FromContext(context.Background())
	logger.Info().Msg("hello")

	entry := lastEntry(t)
	if _, ok := entry[FieldRequestID]; ok {
		t.Error("request id present on bare context")
	}
	if _, ok := entry[FieldJobID]; ok {
		t.Error("job id present on bare context")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	configureForTest(t)

	ctx := ContextWithRequestID(context.Background(), "req-2")
	logger := WithComponentFromContext(ctx, "jobs")
	logger.Info().Msg("hello")

	entry := lastEntry(t)
	if entry[FieldComponent] != "jobs" {
		t.Errorf("component = %v, want jobs", entry[FieldComponent])
	}
	if entry[FieldRequestID] != "req-2" {
		t.Errorf("request id = %v, want req-2", entry[FieldRequestID])
	}
}

func TestIdentifierRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-3")
	if got := RequestIDFromContext(ctx); got != "req-3" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
	if got := JobIDFromContext(ctx); got != "" {
		t.Errorf("JobIDFromContext on request-only ctx = %q", got)
	}

	ctx = ContextWithJobID(ctx, "job-3")
	if got := JobIDFromContext(ctx); got != "job-3" {
		t.Errorf("JobIDFromContext = %q", got)
	}

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext on empty ctx = %q", got)
	}
}
