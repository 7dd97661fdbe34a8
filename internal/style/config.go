// Package style converts finished cues plus a caption style configuration
// into renderable subtitle documents. Two target formats are supported:
// SRT for plain timed text and ASS for positioned, typographic captions.
// Conversion is deterministic so identical inputs always produce
// byte-identical documents.
package style

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Caption style variants.
const (
	VariantClassic    = "classic"
	VariantBoxed      = "boxed"
	VariantKaraoke    = "karaoke"
	VariantHighlight  = "highlight"
	VariantWordByWord = "word_by_word"
)

// Output document formats.
const (
	FormatSRT = "srt"
	FormatASS = "ass"
)

var (
	ErrUnsupportedStyle = errors.New("style: unsupported style for target format")
	ErrUnknownFormat    = errors.New("style: unknown output format")
)

// Config holds every recognized caption styling option. Colors are RGB
// hex strings. The zero value is not valid; use DefaultConfig or
// ParseConfig, both of which fill defaults.
type Config struct {
	FontFamily   string `json:"font_family" validate:"required"`
	FontSize     int    `json:"font_size" validate:"min=0,max=500"`
	LineColor    string `json:"line_color" validate:"hexcolor"`
	WordColor    string `json:"word_color" validate:"hexcolor"`
	OutlineColor string `json:"outline_color" validate:"hexcolor"`
	BoxColor     string `json:"box_color" validate:"hexcolor"`
	Position     string `json:"position" validate:"oneof=bottom_left bottom_center bottom_right middle_left middle_center middle_right top_left top_center top_right"`
	Alignment    string `json:"alignment" validate:"oneof=left center right"`
	MarginV      int    `json:"margin_v" validate:"min=0,max=1000"`
	MaxWidth     int    `json:"max_width" validate:"min=0,max=100"`
	WordsPerLine int    `json:"max_words_per_line" validate:"min=0,max=50"`
	Bold         bool   `json:"bold"`
	Italic       bool   `json:"italic"`
	Underline    bool   `json:"underline"`
	Strikeout    bool   `json:"strikeout"`
	OutlineWidth int    `json:"outline_width" validate:"min=0,max=20"`
	ShadowOffset int    `json:"shadow_offset" validate:"min=0,max=20"`
	AllCaps      bool   `json:"all_caps"`
	Variant      string `json:"variant" validate:"oneof=classic boxed karaoke highlight word_by_word"`
}

// DefaultConfig returns the baseline style: white text with a black
// outline, yellow word accent, bottom-center classic captions. FontSize
// zero means "derive from video height" at conversion time.
func DefaultConfig() Config {
	return Config{
		FontFamily:   "Arial",
		FontSize:     0,
		LineColor:    "#FFFFFF",
		WordColor:    "#FFFF00",
		OutlineColor: "#000000",
		BoxColor:     "#000000",
		Position:     "bottom_center",
		Alignment:    "center",
		MarginV:      30,
		MaxWidth:     0,
		OutlineWidth: 2,
		ShadowOffset: 1,
		Variant:      VariantClassic,
	}
}

var validate = validator.New()

// Validate checks field constraints via the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("style: invalid config: %w", err)
	}
	return nil
}

// ParseConfig decodes a JSON style object over the defaults. Unknown
// fields are rejected so client typos surface instead of being silently
// dropped. An empty document yields the defaults.
func ParseConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("style: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CanonicalJSON serializes the config with a stable field order, suitable
// for fingerprinting in cache keys.
func (c Config) CanonicalJSON() []byte {
	// Struct fields marshal in declaration order, which is stable.
	b, _ := json.Marshal(c)
	return b
}

// Resolution is a video frame size in pixels, used for PlayRes and the
// position grid.
type Resolution struct {
	Width  int
	Height int
}

// DefaultResolution is assumed when probing the source video fails.
var DefaultResolution = Resolution{Width: 384, Height: 288}

// Document is a finished renderable subtitle document. It is opaque to
// the scheduler and handed to the renderer verbatim.
type Document struct {
	Format     string
	Body       string
	Resolution Resolution
}
