package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/ptsawat/captionflow/internal/timecode"
)

// ErrNoCues is returned when SRT content contains no parseable cues.
var ErrNoCues = errors.New("no cues found in subtitle content")

const srtTimingSeparator = "-->"

// ParseSRT converts SRT caption content into Segments so caller-supplied
// captions and transcription output share one processing path. Index lines
// are ignored; the cue text becomes the segment text with internal line
// breaks collapsed to spaces.
func ParseSRT(content string) ([]Segment, error) {
	var segments []Segment

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		inCue     bool
		start     timecode.Timecode
		end       timecode.Timecode
		textLines []string
	)

	flush := func() {
		if inCue && len(textLines) > 0 {
			segments = append(segments, Segment{
				Start: start.Seconds(),
				End:   end.Seconds(),
				Text:  strings.Join(textLines, " "),
			})
		}
		inCue = false
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))
		switch {
		case line == "":
			flush()
		case strings.Contains(line, srtTimingSeparator):
			flush()
			parts := strings.SplitN(line, srtTimingSeparator, 2)
			from, err := timecode.ParseSRT(parts[0])
			if err != nil {
				return nil, fmt.Errorf("parse cue start: %w", err)
			}
			to, err := timecode.ParseSRT(parts[1])
			if err != nil {
				return nil, fmt.Errorf("parse cue end: %w", err)
			}
			inCue = true
			start, end = from, to
		case inCue:
			textLines = append(textLines, line)
		default:
			// Index line or stray text before the first timing line.
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan subtitle content: %w", err)
	}
	if len(segments) == 0 {
		return nil, ErrNoCues
	}
	return segments, nil
}

// ComposeSRT renders cues as SRT text. Used for cache fingerprinting and
// for the simple timed-text output format.
func ComposeSRT(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n", cue.Index)
		fmt.Fprintf(&b, "%s %s %s\n", timecode.FromSeconds(cue.Start).SRT(), srtTimingSeparator, timecode.FromSeconds(cue.End).SRT())
		for _, line := range cue.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
