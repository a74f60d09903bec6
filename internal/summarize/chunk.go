// SPDX-License-Identifier: MIT

package summarize

import (
	"strings"
	"unicode"
)

// splitSentences breaks text at end-of-sentence punctuation followed by
// whitespace. The punctuation stays with its sentence; surrounding whitespace
// is dropped.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		// Swallow runs of closing punctuation ("?!", "...").
		j := i
		for j+1 < len(runes) && isSentenceEnd(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && !unicode.IsSpace(runes[j+1]) {
			i = j
			continue
		}
		if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = j + 1
		i = j
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// chunkTranscript greedy-packs sentences into chunks bounded by
// [minChars, maxChars]. A sentence that fits whole is appended; one that
// would push past maxChars either starts a new chunk (when the current one
// already meets minChars) or is split across the boundary, so no chunk ever
// exceeds maxChars.
func chunkTranscript(text string, minChars, maxChars int) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	write := func(s string) {
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
	}

	for _, sentence := range sentences {
		needed := len(sentence)
		if current.Len() > 0 {
			needed += 1 // joining space
		}
		if current.Len()+needed <= maxChars {
			write(sentence)
			continue
		}

		if current.Len() >= minChars {
			flush()
		}

		// The sentence does not fit whole. Fill the current chunk to the
		// bound and carry the remainder forward, splitting again as needed.
		remaining := sentence
		for {
			room := maxChars - current.Len()
			if current.Len() > 0 {
				room-- // joining space
			}
			if room <= 0 {
				flush()
				continue
			}
			if len(remaining) <= room {
				write(remaining)
				break
			}
			head, tail := cutAt(remaining, room)
			write(head)
			flush()
			remaining = tail
		}
	}
	flush()
	return chunks
}

// cutAt splits s at the last space at or before limit, falling back to a
// rune-boundary cut when no space exists in range. The separating space is
// dropped.
func cutAt(s string, limit int) (head, tail string) {
	cut := strings.LastIndexByte(s[:limit], ' ')
	if cut > 0 {
		return s[:cut], s[cut+1:]
	}
	cut = limit
	// Back up so we never cut inside a multibyte rune.
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return s[:cut], s[cut:]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
