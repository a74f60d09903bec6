// SPDX-License-Identifier: MIT

package types

import "testing"

func TestJobStatusIsTerminal(t *testing.T) {
	if JobStatusProcessing.IsTerminal() {
		t.Error("processing must not be terminal")
	}
	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestOptionsNormalized(t *testing.T) {
	got := Options{}.Normalized()
	want := Options{Length: LengthStandard, Format: FormatBullets, TranscriptMode: TranscriptAuto}
	if got != want {
		t.Errorf("Normalized() = %+v, want %+v", got, want)
	}

	// Explicit values survive normalization.
	explicit := Options{Length: LengthDetailed, Format: FormatParagraph, TranscriptMode: TranscriptNative}
	if explicit.Normalized() != explicit {
		t.Error("Normalized() must keep explicit values")
	}
}

func TestOptionsValid(t *testing.T) {
	valid := []Options{
		{},
		{Length: LengthShort},
		{Length: LengthDetailed, Format: FormatParagraph, TranscriptMode: TranscriptGenerate},
	}
	for _, o := range valid {
		if !o.Valid() {
			t.Errorf("%+v should be valid", o)
		}
	}

	invalid := []Options{
		{Length: "tiny"},
		{Format: "haiku"},
		{TranscriptMode: "psychic"},
	}
	for _, o := range invalid {
		if o.Valid() {
			t.Errorf("%+v should be invalid", o)
		}
	}
}
