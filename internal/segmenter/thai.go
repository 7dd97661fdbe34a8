package segmenter

import "strings"

// fallbackChunkRunes is the chunk size used when a run of characters
// matches nothing in the lexicon.
const fallbackChunkRunes = 5

// thaiLexicon holds common Thai words for longest-match segmentation.
// This is a deliberately small embedded dictionary; segmentation quality
// beyond it is out of scope, and unmatched runs degrade to fixed-size
// character chunks.
var thaiLexicon = []string{
	"สวัสดี", "ขอบคุณ", "ประเทศไทย", "ประเทศ", "ภาษาไทย", "ภาษา",
	"กรุงเทพ", "อาหาร", "โรงเรียน", "โรงแรม", "มหาวิทยาลัย", "หนังสือ",
	"ครอบครัว", "เพื่อน", "ทำงาน", "ตอนนี้", "วันนี้", "พรุ่งนี้",
	"เมื่อวาน", "เวลา", "สบายดี", "อร่อย", "สวยงาม", "ความสุข", "ความ",
	"จริงๆ", "มาก", "น้อย", "ใหญ่", "เล็ก", "ใหม่", "เก่า", "ร้อน",
	"เย็น", "น้ำ", "ข้าว", "บ้าน", "เมือง", "คน", "ครับ", "ค่ะ", "คะ",
	"ไทย", "และ", "หรือ", "แต่", "ที่", "ใน", "ของ", "เป็น", "การ",
	"มี", "ไม่", "ให้", "ได้", "ว่า", "จะ", "มา", "ไป", "กับ", "จาก",
	"ถึง", "แล้ว", "อยู่", "ทำ", "ดู", "กิน", "ดี", "รัก", "เรา",
	"คุณ", "ผม", "ฉัน", "เขา", "มัน", "นี้", "นั้น", "หนึ่ง", "สอง",
	"สาม", "สี่", "ห้า", "วัน", "คืน", "ปี", "เดือน",
}

// ThaiTokenizer segments continuous Thai text by greedy longest match
// against an embedded lexicon, splitting unmatched runs into fixed-size
// character chunks. Spaces, when present, always break tokens.
type ThaiTokenizer struct {
	// byFirstRune indexes lexicon entries by leading rune, longest first.
	byFirstRune map[rune][][]rune
}

// NewThaiTokenizer creates a tokenizer backed by the embedded lexicon.
func NewThaiTokenizer() *ThaiTokenizer {
	idx := make(map[rune][][]rune)
	for _, word := range thaiLexicon {
		runes := []rune(word)
		if len(runes) == 0 {
			continue
		}
		idx[runes[0]] = append(idx[runes[0]], runes)
	}
	for first, words := range idx {
		sortByLengthDesc(words)
		idx[first] = words
	}
	return &ThaiTokenizer{byFirstRune: idx}
}

func sortByLengthDesc(words [][]rune) {
	for i := 1; i < len(words); i++ {
		for j := i; j > 0 && len(words[j]) > len(words[j-1]); j-- {
			words[j], words[j-1] = words[j-1], words[j]
		}
	}
}

// Separator implements Tokenizer. Thai has no inter-word spacing.
func (t *ThaiTokenizer) Separator() string { return "" }

// Tokens implements Tokenizer.
func (t *ThaiTokenizer) Tokens(text string) []string {
	text = Normalize(text)

	var tokens []string
	for _, field := range strings.Fields(text) {
		tokens = append(tokens, t.segmentRun([]rune(field))...)
	}
	return tokens
}

// segmentRun splits a single space-free run of runes.
func (t *ThaiTokenizer) segmentRun(runes []rune) []string {
	var out []string
	var unknown []rune

	flushUnknown := func() {
		for len(unknown) > 0 {
			n := fallbackChunkRunes
			if n > len(unknown) {
				n = len(unknown)
			}
			out = append(out, string(unknown[:n]))
			unknown = unknown[n:]
		}
	}

	i := 0
	for i < len(runes) {
		if word := t.longestMatch(runes[i:]); word > 0 {
			flushUnknown()
			out = append(out, string(runes[i:i+word]))
			i += word
			continue
		}
		unknown = append(unknown, runes[i])
		i++
	}
	flushUnknown()
	return out
}

// longestMatch returns the rune length of the longest lexicon word
// prefixing rest, or 0 when nothing matches.
func (t *ThaiTokenizer) longestMatch(rest []rune) int {
	candidates, ok := t.byFirstRune[rest[0]]
	if !ok {
		return 0
	}
	for _, word := range candidates {
		if len(word) > len(rest) {
			continue
		}
		match := true
		for i, r := range word {
			if rest[i] != r {
				match = false
				break
			}
		}
		if match {
			return len(word)
		}
	}
	return 0
}
