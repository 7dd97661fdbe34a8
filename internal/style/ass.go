package style

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ptsawat/captionflow/internal/segmenter"
	"github.com/ptsawat/captionflow/internal/subtitle"
	"github.com/ptsawat/captionflow/internal/timecode"
)

// assColor converts an "#RRGGBB" hex color to the ASS &HAABBGGRR form.
// Malformed input falls back to opaque white.
func assColor(hex string, alpha uint8) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			r := uint8(v >> 16)
			g := uint8(v >> 8)
			b := uint8(v)
			return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, b, g, r)
		}
	}
	return fmt.Sprintf("&H%02XFFFFFF", alpha)
}

// alignmentCode maps the 3x3 position grid plus a horizontal alignment
// to the ASS \an code and an explicit anchor point. The frame is divided
// into nine cells; alignment picks the anchor within the cell.
func alignmentCode(position, alignment string, res Resolution) (an, x, y int) {
	w, h := float64(res.Width), float64(res.Height)

	var vertBase int
	var anchorY float64
	switch {
	case strings.HasPrefix(position, "top"):
		vertBase, anchorY = 7, h/6
	case strings.HasPrefix(position, "middle"):
		vertBase, anchorY = 4, h/2
	default:
		vertBase, anchorY = 1, 5*h/6
	}

	var left, right, center float64
	switch {
	case strings.HasSuffix(position, "left"):
		left, right, center = 0, w/3, w/6
	case strings.HasSuffix(position, "right"):
		left, right, center = 2*w/3, w, 5*w/6
	default:
		left, right, center = w/3, 2*w/3, w/2
	}

	var horiz int
	var anchorX float64
	switch alignment {
	case "left":
		horiz, anchorX = 1, left
	case "right":
		horiz, anchorX = 3, right
	default:
		horiz, anchorX = 2, center
	}

	return vertBase + horiz - 1, int(anchorX), int(anchorY)
}

func (c Config) effectiveFontSize(res Resolution) int {
	if c.FontSize > 0 {
		return c.FontSize
	}
	return int(float64(res.Height) * 0.05)
}

func assFlag(on bool) int {
	if on {
		return -1
	}
	return 0
}

// assHeader emits [Script Info], the Default style line and the [Events]
// format line. The style line follows the declared V4+ format exactly.
func assHeader(cfg Config, res Resolution, an int) string {
	borderStyle := 1
	if cfg.Variant == VariantBoxed {
		borderStyle = 4
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nScaledBorderAndShadow: yes\n\n", res.Width, res.Height)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,%s,%s,%s,%d,%d,%d,%d,100,100,0,0,%d,%d,%d,%d,10,10,%d,1\n",
		cfg.FontFamily, cfg.effectiveFontSize(res),
		assColor(cfg.LineColor, 0x00), assColor(cfg.WordColor, 0x00),
		assColor(cfg.OutlineColor, 0x00), assColor(cfg.BoxColor, 0x80),
		assFlag(cfg.Bold), assFlag(cfg.Italic), assFlag(cfg.Underline), assFlag(cfg.Strikeout),
		borderStyle, cfg.OutlineWidth, cfg.ShadowOffset, an, cfg.MarginV)
	b.WriteString("\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	return b.String()
}

func assTime(seconds float64) string {
	return timecode.FromSeconds(seconds).ASS()
}

func dialogue(b *strings.Builder, start, end float64, text string) {
	fmt.Fprintf(b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", assTime(start), assTime(end), text)
}

// cueWord is a word with its share of the cue's time range. Cues carry
// no word-level timing, so each cue's duration is subdivided evenly
// across its words.
type cueWord struct {
	text  string
	start float64
	end   float64
}

func subdivide(cue subtitle.Cue, allCaps bool) []cueWord {
	// Continuous scripts carry no spaces, so splitting on whitespace
	// would hand a whole line to a single word slot. The segmenter picks
	// the right tokenizer from the cue text itself.
	tok := segmenter.Classify("", strings.Join(cue.Lines, " "))
	var tokens []string
	for _, line := range cue.Lines {
		tokens = append(tokens, tok.Tokens(line)...)
	}
	if len(tokens) == 0 {
		return nil
	}

	step := cue.Duration() / float64(len(tokens))
	words := make([]cueWord, len(tokens))
	for i, token := range tokens {
		if allCaps {
			token = strings.ToUpper(token)
		}
		words[i] = cueWord{
			text:  token,
			start: cue.Start + float64(i)*step,
			end:   cue.Start + float64(i+1)*step,
		}
	}
	// Guard against float drift on the last boundary.
	words[len(words)-1].end = cue.End
	return words
}

// composeASS renders the cues as a complete ASS document for the
// configured variant.
func composeASS(cues []subtitle.Cue, cfg Config, res Resolution) string {
	an, x, y := alignmentCode(cfg.Position, cfg.Alignment, res)
	posTag := fmt.Sprintf("{\\an%d\\pos(%d,%d)}", an, x, y)

	var b strings.Builder
	b.WriteString(assHeader(cfg, res, an))

	switch cfg.Variant {
	case VariantKaraoke:
		composeKaraoke(&b, cues, cfg, posTag)
	case VariantHighlight:
		composeHighlight(&b, cues, cfg, posTag)
	case VariantWordByWord:
		composeWordByWord(&b, cues, cfg, posTag)
	default: // classic and boxed differ only in the style line
		composeClassic(&b, cues, cfg, posTag)
	}
	return b.String()
}

func composeClassic(b *strings.Builder, cues []subtitle.Cue, cfg Config, posTag string) {
	for _, cue := range cues {
		lines := cue.Lines
		if cfg.AllCaps {
			lines = make([]string, len(cue.Lines))
			for i, line := range cue.Lines {
				lines[i] = strings.ToUpper(line)
			}
		}
		dialogue(b, cue.Start, cue.End, posTag+strings.Join(lines, "\\N"))
	}
}

// composeKaraoke emits one event per cue whose words carry \k duration
// directives in centiseconds, filling with the accent color as time
// passes.
func composeKaraoke(b *strings.Builder, cues []subtitle.Cue, cfg Config, posTag string) {
	accent := assColor(cfg.WordColor, 0x00)
	for _, cue := range cues {
		words := subdivide(cue, cfg.AllCaps)
		if len(words) == 0 {
			continue
		}
		parts := make([]string, len(words))
		for i, w := range words {
			cs := int((w.end-w.start)*100 + 0.5)
			parts[i] = fmt.Sprintf("{\\k%d}%s", cs, w.text)
		}
		dialogue(b, cue.Start, cue.End, fmt.Sprintf("%s{\\c%s}%s", posTag, accent, strings.Join(parts, " ")))
	}
}

// composeHighlight emits one event per word showing the whole cue with
// only the active word recolored.
func composeHighlight(b *strings.Builder, cues []subtitle.Cue, cfg Config, posTag string) {
	accent := assColor(cfg.WordColor, 0x00)
	base := assColor(cfg.LineColor, 0x00)
	for _, cue := range cues {
		words := subdivide(cue, cfg.AllCaps)
		for active := range words {
			parts := make([]string, len(words))
			for i, w := range words {
				if i == active {
					parts[i] = fmt.Sprintf("{\\c%s}%s{\\c%s}", accent, w.text, base)
				} else {
					parts[i] = w.text
				}
			}
			dialogue(b, words[active].start, words[active].end,
				fmt.Sprintf("%s{\\c%s}%s", posTag, base, strings.Join(parts, " ")))
		}
	}
}

// composeWordByWord emits one event per word showing only that word.
func composeWordByWord(b *strings.Builder, cues []subtitle.Cue, cfg Config, posTag string) {
	accent := assColor(cfg.WordColor, 0x00)
	for _, cue := range cues {
		for _, w := range subdivide(cue, cfg.AllCaps) {
			dialogue(b, w.start, w.end, fmt.Sprintf("%s{\\c%s}%s", posTag, accent, w.text))
		}
	}
}
