// SPDX-License-Identifier: MIT

// Package apperr defines the error taxonomy surfaced to API clients and
// recorded on failed jobs.
package apperr

import (
	"errors"
	"fmt"
	"regexp"
)

// Code identifies a stable, client-visible error class.
type Code string

const (
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeJobNotFound        Code = "JOB_NOT_FOUND"
	CodeJobCancelled       Code = "JOB_CANCELLED"
	CodeConfiguration      Code = "CONFIGURATION_ERROR"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeVideoUnavailable   Code = "VIDEO_UNAVAILABLE"
	CodeTranscriptMissing  Code = "TRANSCRIPT_UNAVAILABLE"
	CodeSupadataInvalid    Code = "SUPADATA_INVALID_REQUEST"
	CodeSupadataUpstream   Code = "SUPADATA_UPSTREAM_ERROR"
	CodeGeminiAuth         Code = "GEMINI_AUTH"
	CodeGeminiQuota        Code = "GEMINI_QUOTA"
	CodeGeminiUpstream     Code = "GEMINI_UPSTREAM_ERROR"
	CodeGeminiInvalidReply Code = "GEMINI_INVALID_RESPONSE"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Provider attributes a job-scoped failure to the subsystem that produced it.
type Provider string

const (
	ProviderTranscript Provider = "transcript"
	ProviderSummarizer Provider = "summarizer"
	ProviderBackend    Provider = "backend"
)

// Error is a classified failure. Message is already safe to show to clients.
type Error struct {
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Provider Provider `json:"provider,omitempty"`
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a classified error with a sanitized message.
func New(code Code, provider Provider, message string) *Error {
	return &Error{Code: code, Message: Sanitize(message), Provider: provider}
}

// Wrap constructs a classified error keeping cause for logs. The client-facing
// message is sanitized; the cause never reaches the wire.
func Wrap(code Code, provider Provider, message string, cause error) *Error {
	return &Error{Code: code, Message: Sanitize(message), Provider: provider, cause: cause}
}

// From extracts a classified error from err, or wraps it as INTERNAL_ERROR.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(CodeInternal, ProviderBackend, err.Error(), err)
}

var (
	apiKeyRe = regexp.MustCompile(`(?i)api[_-]?key[=:]\s*[^\s&"']+`)
	urlRe    = regexp.MustCompile(`https?://[^\s"']+`)
)

// Sanitize strips credential fragments and absolute URLs from user-visible
// messages. Upstream errors routinely echo request URLs with key parameters.
func Sanitize(msg string) string {
	msg = apiKeyRe.ReplaceAllString(msg, "API_KEY")
	msg = urlRe.ReplaceAllString(msg, "[URL]")
	return msg
}
