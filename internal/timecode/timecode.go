// Package timecode provides the subtitle timestamp value type and its
// SRT and ASS textual representations.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTimecode is returned when a timestamp string cannot be parsed.
var ErrInvalidTimecode = errors.New("invalid timecode")

// Timecode represents a point on the subtitle timeline in seconds.
// Negative values are treated as zero when formatted.
type Timecode float64

// FromSeconds creates a Timecode from a seconds value.
func FromSeconds(s float64) Timecode {
	return Timecode(s)
}

// Seconds returns the timecode as float seconds, clamped at zero.
func (t Timecode) Seconds() float64 {
	if t < 0 {
		return 0
	}
	return float64(t)
}

// SRT formats the timecode as HH:MM:SS,mmm.
func (t Timecode) SRT() string {
	s := t.Seconds()
	hours := int(s) / 3600
	minutes := (int(s) % 3600) / 60
	secs := int(s) % 60
	millis := int(math.Round((s - math.Floor(s)) * 1000))
	if millis >= 1000 {
		millis -= 1000
		secs++
	}
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ASS formats the timecode as H:MM:SS.cc (centisecond precision).
func (t Timecode) ASS() string {
	s := t.Seconds()
	hours := int(s) / 3600
	minutes := (int(s) % 3600) / 60
	secs := int(s) % 60
	centis := int(math.Round((s - math.Floor(s)) * 100))
	if centis >= 100 {
		centis -= 100
		secs++
	}
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

// ParseSRT parses an SRT timestamp (HH:MM:SS,mmm). A dot is accepted in
// place of the comma since both appear in the wild.
func ParseSRT(s string) (Timecode, error) {
	s = strings.TrimSpace(s)
	normalized := strings.Replace(s, ".", ",", 1)

	var rest, msPart string
	if idx := strings.IndexByte(normalized, ','); idx >= 0 {
		rest, msPart = normalized[:idx], normalized[idx+1:]
	} else {
		rest, msPart = normalized, "0"
	}

	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}
	secs, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}
	millis, err := strconv.Atoi(msPart)
	if err != nil || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || secs < 0 || secs > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}

	total := float64(hours)*3600 + float64(minutes)*60 + float64(secs) + float64(millis)/1000
	return Timecode(total), nil
}
