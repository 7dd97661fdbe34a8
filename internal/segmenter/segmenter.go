// Package segmenter provides word-segmentation strategies for subtitle text.
// Space-delimited scripts split on whitespace; continuous scripts such as
// Thai use dictionary-based longest-match segmentation. The strategy is
// selected through an explicit classifier rather than scattered character
// probing at call sites.
package segmenter

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer splits subtitle text into display tokens.
type Tokenizer interface {
	// Tokens returns the tokens of text in order. Implementations never
	// return an error; unrecognisable input degrades to character chunks.
	Tokens(text string) []string

	// Separator is the string placed between tokens when they are joined
	// back into a display line. Continuous scripts use the empty string.
	Separator() string
}

// Classify selects a tokenizer from a language hint and a text sample.
// The hint wins when present; otherwise the text is probed for Thai
// codepoints. Defaults to space-delimited segmentation.
func Classify(lang, sample string) Tokenizer {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "th", "tha", "thai":
		return NewThaiTokenizer()
	case "", "auto":
		if ContainsThai(sample) {
			return NewThaiTokenizer()
		}
	}
	return SpaceTokenizer{}
}

// ContainsThai reports whether s contains characters in the Thai block
// (U+0E00 through U+0E7F).
func ContainsThai(s string) bool {
	for _, r := range s {
		if r >= 0x0E00 && r <= 0x0E7F {
			return true
		}
	}
	return false
}

// Normalize applies Unicode NFC normalization. Thai combining marks arrive
// from transcription engines in inconsistent forms.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// SpaceTokenizer splits on any whitespace. Suitable for space-delimited
// scripts, which is everything this service handles except Thai.
type SpaceTokenizer struct{}

// Tokens implements Tokenizer.
func (SpaceTokenizer) Tokens(text string) []string {
	return strings.Fields(text)
}

// Separator implements Tokenizer.
func (SpaceTokenizer) Separator() string { return " " }
