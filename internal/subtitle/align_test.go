package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignScript_Empty(t *testing.T) {
	s := NewSynthesizer(Options{})
	segs := []Segment{{Start: 0, End: 2, Text: "hello"}}
	assert.Equal(t, segs, s.AlignScript(segs, ""))
	assert.Empty(t, s.AlignScript(nil, "some script"))
}

func TestAlignScript_ReplacesMisheardWords(t *testing.T) {
	s := NewSynthesizer(Options{})
	segs := []Segment{
		{Start: 0, End: 2, Text: "the quick brown focks jumps"},
		{Start: 2.5, End: 4, Text: "over the lacy dog today"},
	}
	script := "The quick brown fox jumps. Over the lazy dog today."

	out := s.AlignScript(segs, script)
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text, "fox")
	assert.Contains(t, out[1].Text, "lazy")
	// Timing never moves.
	assert.Equal(t, segs[0].Start, out[0].Start)
	assert.Equal(t, segs[1].End, out[1].End)
}

func TestAlignScript_LowSimilarityKeepsTranscript(t *testing.T) {
	s := NewSynthesizer(Options{})
	segs := []Segment{{Start: 0, End: 2, Text: "completely unrelated babble"}}
	script := "Quarterly revenue grew nine percent. Margins held steady."

	out := s.AlignScript(segs, script)
	require.Len(t, out, 1)
	assert.Equal(t, "completely unrelated babble", out[0].Text)
}

func TestAlignScript_Thai(t *testing.T) {
	s := NewSynthesizer(Options{Language: "th"})
	segs := []Segment{
		{Start: 0, End: 2, Text: "สวัสดีครับ"},
		{Start: 2.5, End: 5, Text: "วันนี้อากาศดี"},
	}
	script := "สวัสดีครับ。วันนี้อากาศดีมาก。"

	out := s.AlignScript(segs, script)
	require.Len(t, out, 2)
	assert.Equal(t, "สวัสดีครับ", out[0].Text)
	assert.Equal(t, "วันนี้อากาศดีมาก", out[1].Text)
}

func TestAlignScript_RateAllocation(t *testing.T) {
	// One long unpunctuated script against many segments forces the
	// proportional path: every script word lands in some segment and
	// segment order is preserved.
	s := NewSynthesizer(Options{})
	segs := []Segment{
		{Start: 0, End: 2, Text: "a"},
		{Start: 2, End: 4, Text: "b"},
		{Start: 4, End: 6, Text: "c"},
		{Start: 6, End: 8, Text: "d"},
		{Start: 8, End: 10, Text: "e"},
	}
	script := "one two three four five six seven eight nine ten"

	out := s.AlignScript(segs, script)
	require.NotEmpty(t, out)

	var words []string
	for _, seg := range out {
		words = append(words, strings.Fields(seg.Text)...)
	}
	assert.Equal(t, strings.Fields(script), words)
}

func TestAlignScript_RateAllocationLastAbsorbsRemainder(t *testing.T) {
	s := NewSynthesizer(Options{})
	segs := []Segment{
		{Start: 0, End: 1, Text: "x"},
		{Start: 1, End: 2, Text: "y"},
		{Start: 2, End: 3, Text: "z"},
	}
	script := "alpha beta gamma delta epsilon zeta eta theta"

	out := s.AlignScript(segs, script)
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.True(t, strings.HasSuffix(last.Text, "theta"))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity("hello", "hello"), 1e-9)
	assert.InDelta(t, 0.0, similarity("abc", "xyz"), 1e-9)
	assert.Greater(t, similarity("kitten", "sitting"), 0.5)
	assert.InDelta(t, 0.0, similarity("", "anything"), 1e-9)
}
