package style

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptsawat/captionflow/internal/subtitle"
)

func testCues() []subtitle.Cue {
	return []subtitle.Cue{
		{Index: 1, Start: 0, End: 2, Lines: []string{"hello world"}},
		{Index: 2, Start: 2.5, End: 5, Lines: []string{"second cue", "two lines"}},
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = ParseConfig([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig_Overrides(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"variant":"karaoke","font_size":36,"position":"top_left","bold":true,"max_width":24,"max_words_per_line":3}`))
	require.NoError(t, err)
	assert.Equal(t, VariantKaraoke, cfg.Variant)
	assert.Equal(t, 36, cfg.FontSize)
	assert.Equal(t, "top_left", cfg.Position)
	assert.True(t, cfg.Bold)
	assert.Equal(t, 24, cfg.MaxWidth)
	assert.Equal(t, 3, cfg.WordsPerLine)
	// Untouched fields keep their defaults.
	assert.Equal(t, "Arial", cfg.FontFamily)
}

func TestParseConfig_UnknownField(t *testing.T) {
	_, err := ParseConfig([]byte(`{"font_sze": 20}`))
	assert.Error(t, err)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad color":    `{"line_color":"notacolor"}`,
		"bad variant":  `{"variant":"sparkle"}`,
		"bad position": `{"position":"center_stage"}`,
		"bad json":     `{"variant":`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestConvert_SRTClassic(t *testing.T) {
	doc, err := Convert(testCues(), DefaultConfig(), FormatSRT, Resolution{1920, 1080})
	require.NoError(t, err)
	assert.Equal(t, FormatSRT, doc.Format)
	assert.Contains(t, doc.Body, "00:00:00,000 --> 00:00:02,000")
	assert.Contains(t, doc.Body, "hello world")
}

func TestConvert_SRTRejectsStyledVariants(t *testing.T) {
	for _, variant := range []string{VariantBoxed, VariantKaraoke, VariantHighlight, VariantWordByWord} {
		cfg := DefaultConfig()
		cfg.Variant = variant
		_, err := Convert(testCues(), cfg, FormatSRT, Resolution{1920, 1080})
		assert.ErrorIs(t, err, ErrUnsupportedStyle, "variant %s", variant)
	}
}

func TestConvert_UnknownFormat(t *testing.T) {
	_, err := Convert(testCues(), DefaultConfig(), "vtt", Resolution{1920, 1080})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestConvert_ASSHeader(t *testing.T) {
	doc, err := Convert(testCues(), DefaultConfig(), FormatASS, Resolution{1280, 720})
	require.NoError(t, err)
	assert.Equal(t, FormatASS, doc.Format)
	assert.Contains(t, doc.Body, "[Script Info]")
	assert.Contains(t, doc.Body, "PlayResX: 1280")
	assert.Contains(t, doc.Body, "PlayResY: 720")
	assert.Contains(t, doc.Body, "Style: Default,Arial,36,") // 5% of 720
	assert.Contains(t, doc.Body, "[Events]")
}

func TestConvert_ASSDefaultResolution(t *testing.T) {
	doc, err := Convert(testCues(), DefaultConfig(), FormatASS, Resolution{})
	require.NoError(t, err)
	assert.Contains(t, doc.Body, "PlayResX: 384")
	assert.Contains(t, doc.Body, "PlayResY: 288")
	assert.Equal(t, DefaultResolution, doc.Resolution)
}

func TestConvert_ASSClassicEvents(t *testing.T) {
	doc, err := Convert(testCues(), DefaultConfig(), FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	assert.Contains(t, doc.Body, `Dialogue: 0,0:00:00.00,0:00:02.00,Default,,0,0,0,,`)
	assert.Contains(t, doc.Body, `second cue\Ntwo lines`)
	// bottom_center with center alignment anchors at (w/2, 5h/6).
	assert.Contains(t, doc.Body, `{\an2\pos(960,900)}`)
}

func TestConvert_ASSAllCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllCaps = true
	doc, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	assert.Contains(t, doc.Body, "HELLO WORLD")
	assert.NotContains(t, doc.Body, "hello world")
}

func TestConvert_ASSKaraoke(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = VariantKaraoke
	doc, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	// Two words over a two-second cue split into two 100 cs sweeps.
	assert.Contains(t, doc.Body, `{\k100}hello {\k100}world`)
	assert.Contains(t, doc.Body, `{\c&H0000FFFF}`) // yellow accent
}

func TestConvert_ASSWordByWord(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = VariantWordByWord
	doc, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	// One event per word: 2 + 4 words across the two cues.
	assert.Equal(t, 6, strings.Count(doc.Body, "Dialogue:"))
	assert.Contains(t, doc.Body, "0:00:00.00,0:00:01.00") // first half of cue one
}

func TestConvert_ASSWordByWordThai(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = VariantWordByWord
	cues := []subtitle.Cue{
		{Index: 1, Start: 0, End: 2, Lines: []string{"สวัสดีครับ"}},
	}
	doc, err := Convert(cues, cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	// Thai has no spaces between words; the cue still splits into its
	// two dictionary words rather than one event for the whole line.
	assert.Equal(t, 2, strings.Count(doc.Body, "Dialogue:"))
	assert.Contains(t, doc.Body, "สวัสดี")
	assert.Contains(t, doc.Body, "0:00:00.00,0:00:01.00")
}

func TestConvert_ASSHighlight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = VariantHighlight
	doc, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(doc.Body, "Dialogue:"))
	// Active word recolored inside the full line.
	assert.Contains(t, doc.Body, `{\c&H0000FFFF}hello{\c&H00FFFFFF} world`)
	assert.Contains(t, doc.Body, `hello {\c&H0000FFFF}world{\c&H00FFFFFF}`)
}

func TestConvert_ASSBoxed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = VariantBoxed
	doc, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	// Opaque box border style with a semi-transparent back colour.
	assert.Contains(t, doc.Body, ",&H80000000,")
	classic, err := Convert(testCues(), DefaultConfig(), FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	assert.NotEqual(t, classic.Body, doc.Body)
}

func TestConvert_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = VariantKaraoke
	first, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	second, err := Convert(testCues(), cfg, FormatASS, Resolution{1920, 1080})
	require.NoError(t, err)
	assert.Equal(t, first.Body, second.Body)
}

func TestAlignmentCode(t *testing.T) {
	res := Resolution{Width: 900, Height: 600}
	tests := []struct {
		position, alignment string
		an, x, y            int
	}{
		{"bottom_center", "center", 2, 450, 500},
		{"top_left", "left", 7, 0, 100},
		{"top_right", "right", 9, 900, 100},
		{"middle_center", "center", 5, 450, 300},
		{"bottom_left", "right", 3, 300, 500},
		{"top_center", "left", 7, 300, 100},
	}
	for _, tt := range tests {
		an, x, y := alignmentCode(tt.position, tt.alignment, res)
		assert.Equal(t, tt.an, an, "%s/%s an", tt.position, tt.alignment)
		assert.Equal(t, tt.x, x, "%s/%s x", tt.position, tt.alignment)
		assert.Equal(t, tt.y, y, "%s/%s y", tt.position, tt.alignment)
	}
}

func TestASSColor(t *testing.T) {
	assert.Equal(t, "&H00FFFFFF", assColor("#FFFFFF", 0))
	assert.Equal(t, "&H0000FFFF", assColor("#FFFF00", 0))
	assert.Equal(t, "&H80000000", assColor("#000000", 0x80))
	assert.Equal(t, "&H004080C0", assColor("#C08040", 0))
	assert.Equal(t, "&H00FFFFFF", assColor("garbage", 0))
}
