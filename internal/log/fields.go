// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldClientID  = "client_id"

	// Process fields
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldStatus    = "status"
	FieldProvider  = "provider"

	// Input fields
	FieldURL     = "url"
	FieldVideoID = "video_id"
	FieldLang    = "lang"
)
