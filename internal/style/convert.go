package style

import (
	"fmt"
	"strings"

	"github.com/ptsawat/captionflow/internal/subtitle"
)

// Convert renders cues into a subtitle document in the requested format.
// SRT carries no styling directives, so it accepts only the classic
// variant; every variant is expressible in ASS.
func Convert(cues []subtitle.Cue, cfg Config, format string, res Resolution) (Document, error) {
	if err := cfg.Validate(); err != nil {
		return Document{}, err
	}
	if res.Width <= 0 || res.Height <= 0 {
		res = DefaultResolution
	}

	switch format {
	case FormatSRT:
		if cfg.Variant != VariantClassic {
			return Document{}, fmt.Errorf("%w: only %q is supported for srt captions, got %q",
				ErrUnsupportedStyle, VariantClassic, cfg.Variant)
		}
		return Document{Format: FormatSRT, Body: composeSRT(cues, cfg), Resolution: res}, nil
	case FormatASS:
		return Document{Format: FormatASS, Body: composeASS(cues, cfg, res), Resolution: res}, nil
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func composeSRT(cues []subtitle.Cue, cfg Config) string {
	if !cfg.AllCaps {
		return subtitle.ComposeSRT(cues)
	}
	upper := make([]subtitle.Cue, len(cues))
	copy(upper, cues)
	for i := range upper {
		lines := make([]string, len(upper[i].Lines))
		for j, line := range upper[i].Lines {
			lines[j] = strings.ToUpper(line)
		}
		upper[i].Lines = lines
	}
	return subtitle.ComposeSRT(upper)
}
