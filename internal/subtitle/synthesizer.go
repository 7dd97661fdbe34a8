package subtitle

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ptsawat/captionflow/internal/segmenter"
)

// Default synthesis parameters. Durations and gap are in seconds.
const (
	DefaultWrapWidth   = 30
	DefaultMaxLines    = 2
	DefaultMinDuration = 1.0
	DefaultMaxDuration = 7.0
	DefaultGap         = 0.1
)

// Options configures cue synthesis. The zero value is usable; every field
// falls back to its default.
type Options struct {
	// WrapWidth bounds the character count of a display line.
	WrapWidth int
	// MaxLines bounds the number of lines per cue; cues needing more are
	// split into sequential cues.
	MaxLines int
	// MaxWordsPerLine optionally caps tokens per line. Zero means no cap.
	MaxWordsPerLine int
	// MinDuration is the minimum cue length in seconds.
	MinDuration float64
	// MaxDuration is the maximum cue length in seconds.
	MaxDuration float64
	// Gap is the mandatory separation between adjacent cues in seconds.
	Gap float64
	// Language hints the word-segmentation strategy (e.g. "th").
	Language string
}

func (o Options) withDefaults() Options {
	if o.WrapWidth <= 0 {
		o.WrapWidth = DefaultWrapWidth
	}
	if o.MaxLines <= 0 {
		o.MaxLines = DefaultMaxLines
	}
	if o.MinDuration <= 0 {
		o.MinDuration = DefaultMinDuration
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = DefaultMaxDuration
	}
	if o.MaxDuration < o.MinDuration {
		o.MaxDuration = o.MinDuration
	}
	if o.Gap <= 0 {
		o.Gap = DefaultGap
	}
	return o
}

// Synthesizer converts raw transcript segments into finished cues. It is
// polymorphic over the word-segmentation strategy; when none is injected
// the strategy is selected per call from the language hint and the text.
type Synthesizer struct {
	opts Options
	tok  segmenter.Tokenizer
}

// NewSynthesizer creates a Synthesizer that classifies the segmentation
// strategy from the options' language hint and the input text.
func NewSynthesizer(opts Options) *Synthesizer {
	return &Synthesizer{opts: opts.withDefaults()}
}

// NewSynthesizerWithTokenizer creates a Synthesizer with a fixed
// segmentation strategy, bypassing classification.
func NewSynthesizerWithTokenizer(opts Options, tok segmenter.Tokenizer) *Synthesizer {
	return &Synthesizer{opts: opts.withDefaults(), tok: tok}
}

// Options returns the effective (defaulted) synthesis options.
func (s *Synthesizer) Options() Options {
	return s.opts
}

// Synthesize produces cues from segments. The input need not be sorted.
// Output cues are sorted by start, separated by at least the configured
// gap, duration-bounded, line-wrapped and numbered 1..N. Empty input
// yields an empty result.
func (s *Synthesizer) Synthesize(segments []Segment) []Cue {
	work := prepare(segments)
	if len(work) == 0 {
		return nil
	}

	s.spreadSegments(work)

	tok := s.tokenizerFor(work)

	var cues []Cue
	for _, seg := range work {
		cues = append(cues, s.expand(seg, tok)...)
	}
	return s.finalize(cues)
}

// prepare copies the input, drops blank segments and repairs inverted
// time ranges, then sorts by start.
func prepare(segments []Segment) []Segment {
	work := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		work = append(work, Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	sort.SliceStable(work, func(i, j int) bool { return work[i].Start < work[j].Start })
	return work
}

// spreadSegments pushes overlapping segments apart by the gap and applies
// the duration bounds at segment granularity.
func (s *Synthesizer) spreadSegments(work []Segment) {
	for i := range work {
		if i > 0 {
			floor := work[i-1].End + s.opts.Gap
			if work[i].Start < floor {
				work[i].Start = floor
			}
		}
		if work[i].End < work[i].Start+s.opts.MinDuration {
			work[i].End = work[i].Start + s.opts.MinDuration
		}
		if work[i].End > work[i].Start+s.opts.MaxDuration {
			work[i].End = work[i].Start + s.opts.MaxDuration
		}
	}
}

func (s *Synthesizer) tokenizerFor(work []Segment) segmenter.Tokenizer {
	if s.tok != nil {
		return s.tok
	}
	var sample strings.Builder
	for _, seg := range work {
		sample.WriteString(seg.Text)
	}
	return segmenter.Classify(s.opts.Language, sample.String())
}

// wrappedLine is a display line plus the number of tokens it holds, used
// to weight time allocation when a segment splits into several cues.
type wrappedLine struct {
	text   string
	tokens int
}

// expand turns one segment into one or more cues: tokenize, wrap into
// lines, group lines into cues of at most MaxLines, and distribute the
// segment's time range across the cues proportionally by token count.
func (s *Synthesizer) expand(seg Segment, tok segmenter.Tokenizer) []Cue {
	tokens := tok.Tokens(seg.Text)
	if len(tokens) == 0 {
		// Malformed text no strategy could split; chunk by characters.
		tokens = chunkRunes(seg.Text, s.opts.WrapWidth)
	}

	lines := s.wrap(tokens, tok.Separator())

	groups := make([][]wrappedLine, 0, (len(lines)+s.opts.MaxLines-1)/s.opts.MaxLines)
	for start := 0; start < len(lines); start += s.opts.MaxLines {
		end := start + s.opts.MaxLines
		if end > len(lines) {
			end = len(lines)
		}
		groups = append(groups, lines[start:end])
	}

	totalTokens := 0
	for _, ln := range lines {
		totalTokens += ln.tokens
	}

	cues := make([]Cue, 0, len(groups))
	cursor := seg.Start
	span := seg.End - seg.Start
	for _, group := range groups {
		weight := 0
		texts := make([]string, 0, len(group))
		for _, ln := range group {
			weight += ln.tokens
			texts = append(texts, ln.text)
		}
		dur := span
		if totalTokens > 0 {
			dur = span * float64(weight) / float64(totalTokens)
		}
		cues = append(cues, Cue{Start: cursor, End: cursor + dur, Lines: texts})
		cursor += dur
	}
	return cues
}

// wrap greedily packs tokens into lines bounded by WrapWidth characters
// and, when configured, MaxWordsPerLine tokens. A token wider than the
// wrap width is hard-split by characters.
func (s *Synthesizer) wrap(tokens []string, sep string) []wrappedLine {
	sepLen := utf8.RuneCountInString(sep)

	var lines []wrappedLine
	var cur []string
	curLen, curTokens := 0, 0

	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, wrappedLine{text: strings.Join(cur, sep), tokens: curTokens})
			cur, curLen, curTokens = nil, 0, 0
		}
	}

	for _, token := range tokens {
		tl := utf8.RuneCountInString(token)
		if tl > s.opts.WrapWidth {
			flush()
			for _, chunk := range chunkRunes(token, s.opts.WrapWidth) {
				lines = append(lines, wrappedLine{text: chunk, tokens: 1})
			}
			continue
		}

		needed := tl
		if len(cur) > 0 {
			needed += sepLen
		}
		full := curLen+needed > s.opts.WrapWidth ||
			(s.opts.MaxWordsPerLine > 0 && curTokens >= s.opts.MaxWordsPerLine)
		if len(cur) > 0 && full {
			flush()
			needed = tl
		}
		cur = append(cur, token)
		curLen += needed
		curTokens++
	}
	flush()
	return lines
}

// finalize sorts cues, enforces the gap and duration invariants across
// the whole sequence and renumbers 1..N.
func (s *Synthesizer) finalize(cues []Cue) []Cue {
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	for i := range cues {
		if i > 0 {
			floor := cues[i-1].End + s.opts.Gap
			if cues[i].Start < floor {
				cues[i].Start = floor
			}
		}
		if cues[i].End < cues[i].Start+s.opts.MinDuration {
			cues[i].End = cues[i].Start + s.opts.MinDuration
		}
		if cues[i].End > cues[i].Start+s.opts.MaxDuration {
			cues[i].End = cues[i].Start + s.opts.MaxDuration
		}
		cues[i].Index = i + 1
	}
	return cues
}

// chunkRunes splits s into pieces of at most size runes.
func chunkRunes(s string, size int) []string {
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
