package subtitle

import (
	"strings"
	"unicode/utf8"

	"github.com/ptsawat/captionflow/internal/segmenter"
)

// Script alignment thresholds and pacing.
const (
	// matchThreshold accepts a fuzzy match for space-delimited scripts.
	matchThreshold = 0.6
	// thaiMatchThreshold is lower because continuous-script matching has
	// no word boundaries to anchor on.
	thaiMatchThreshold = 0.5
	// thaiRateFactor slows cue pacing for continuous scripts during
	// proportional allocation.
	thaiRateFactor = 0.8
	// fuzzyWindow is how many script words around the cursor are tried
	// when matching a segment.
	fuzzyWindow = 10
)

// sentenceEnders terminate a script sentence for segment-count comparison
// and for expanding Thai matches to natural boundaries.
const sentenceEnders = ".!?\n。？！"

// AlignScript replaces per-segment transcript text with the authoritative
// caller-supplied script. When the script's sentence count is comparable
// to the segment count each segment is fuzzy-matched against a window of
// the script; otherwise the script is distributed over the transcribed
// timeline proportionally by character rate. Timing is never changed,
// only text. The input slice is not modified.
func (s *Synthesizer) AlignScript(segments []Segment, script string) []Segment {
	script = strings.TrimSpace(segmenter.Normalize(script))
	if script == "" || len(segments) == 0 {
		return segments
	}

	work := prepare(segments)
	if len(work) == 0 {
		return segments
	}

	sentences := splitSentences(script)
	if 2*len(sentences) >= len(work) {
		if segmenter.ContainsThai(script) {
			return alignThai(work, script)
		}
		return alignSpaced(work, script)
	}
	return s.allocateByRate(work, script)
}

func splitSentences(script string) []string {
	parts := strings.FieldsFunc(script, func(r rune) bool {
		return strings.ContainsRune(sentenceEnders, r)
	})
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// alignSpaced fuzzy-matches each segment against a sliding window of the
// script's words, advancing a cursor so matches stay roughly monotonic.
func alignSpaced(segments []Segment, script string) []Segment {
	scriptWords := strings.Fields(script)
	out := make([]Segment, len(segments))
	copy(out, segments)

	cursor := 0
	for i, seg := range out {
		segWords := strings.Fields(seg.Text)
		if len(segWords) == 0 {
			continue
		}

		bestScore, bestPos := 0.0, -1
		lo := cursor - fuzzyWindow
		if lo < 0 {
			lo = 0
		}
		hi := cursor + len(segWords) + fuzzyWindow
		for pos := lo; pos <= hi && pos+len(segWords) <= len(scriptWords); pos++ {
			candidate := strings.Join(scriptWords[pos:pos+len(segWords)], " ")
			score := similarity(strings.ToLower(seg.Text), strings.ToLower(candidate))
			if score > bestScore {
				bestScore, bestPos = score, pos
			}
		}

		if bestScore > matchThreshold && bestPos >= 0 {
			out[i].Text = strings.Join(scriptWords[bestPos:bestPos+len(segWords)], " ")
			cursor = bestPos + len(segWords)
		}
		// Below threshold the ASR text stays and the cursor holds.
	}
	return out
}

// alignThai fuzzy-matches at character level since Thai has no word
// boundaries, expanding accepted matches to sentence punctuation.
func alignThai(segments []Segment, script string) []Segment {
	scriptRunes := []rune(script)
	out := make([]Segment, len(segments))
	copy(out, segments)

	cursor := 0
	for i, seg := range out {
		segText := segmenter.Normalize(strings.TrimSpace(seg.Text))
		segLen := utf8.RuneCountInString(segText)
		if segLen == 0 {
			continue
		}

		window := 3 * segLen
		if window < 50 {
			window = 50
		}
		lo := cursor - window
		if lo < 0 {
			lo = 0
		}
		hi := cursor + segLen + window
		if hi > len(scriptRunes) {
			hi = len(scriptRunes)
		}

		bestScore, bestPos := 0.0, -1
		for pos := lo; pos+segLen <= hi; pos++ {
			score := similarity(segText, string(scriptRunes[pos:pos+segLen]))
			if score > bestScore {
				bestScore, bestPos = score, pos
			}
		}

		if bestScore > thaiMatchThreshold && bestPos >= 0 {
			start, end := expandToSentence(scriptRunes, bestPos, bestPos+segLen)
			out[i].Text = strings.TrimSpace(string(scriptRunes[start:end]))
			cursor = end
		}
	}
	return out
}

// expandToSentence widens [start,end) to the surrounding sentence
// punctuation so a cue never begins or ends mid-phrase.
func expandToSentence(runes []rune, start, end int) (int, int) {
	for start > 0 && !strings.ContainsRune(sentenceEnders, runes[start-1]) {
		start--
	}
	for end < len(runes) && !strings.ContainsRune(sentenceEnders, runes[end]) {
		end++
	}
	return start, end
}

// allocateByRate distributes the whole script across the transcribed
// timeline when the script is far coarser than the transcription: the
// character rate is total script length over total transcribed duration,
// slowed for continuous scripts, and each segment takes tokens up to its
// duration's character budget. The final segment absorbs the remainder.
func (s *Synthesizer) allocateByRate(segments []Segment, script string) []Segment {
	tok := segmenter.Classify(s.opts.Language, script)
	tokens := tok.Tokens(script)
	if len(tokens) == 0 {
		return segments
	}
	sep := tok.Separator()

	totalChars := 0
	for _, t := range tokens {
		totalChars += utf8.RuneCountInString(t)
	}

	totalDur := 0.0
	for _, seg := range segments {
		totalDur += seg.Duration()
	}
	if totalDur <= 0 {
		return segments
	}

	rate := float64(totalChars) / totalDur
	if segmenter.ContainsThai(script) {
		rate *= thaiRateFactor
	}

	out := make([]Segment, len(segments))
	copy(out, segments)

	next := 0
	for i := range out {
		if next >= len(tokens) {
			out[i].Text = ""
			continue
		}
		if i == len(out)-1 {
			out[i].Text = strings.Join(tokens[next:], sep)
			next = len(tokens)
			continue
		}

		budget := rate * out[i].Duration()
		taken := 0
		used := 0.0
		for next+taken < len(tokens) {
			width := float64(utf8.RuneCountInString(tokens[next+taken]))
			if taken > 0 && used+width > budget {
				break
			}
			used += width
			taken++
		}
		out[i].Text = strings.Join(tokens[next:next+taken], sep)
		next += taken
	}

	// Drop segments left without text so no empty cues surface.
	filtered := out[:0]
	for _, seg := range out {
		if strings.TrimSpace(seg.Text) != "" {
			filtered = append(filtered, seg)
		}
	}
	return filtered
}
