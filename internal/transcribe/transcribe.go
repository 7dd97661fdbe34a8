// Package transcribe obtains timed transcript segments for a media file
// through the OpenAI speech-to-text API.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ptsawat/captionflow/internal/segmenter"
	"github.com/ptsawat/captionflow/internal/subtitle"
)

// Transcriber converts spoken audio into timed transcript segments.
// It acts as a port so the pipeline can be tested without the network.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, language string) ([]subtitle.Segment, error)
}

// OpenAI transcribes through the hosted whisper-1 model, requesting
// verbose JSON for per-segment timestamps.
type OpenAI struct {
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a transcriber using the given API key.
func NewOpenAI(apiKey string, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{client: openai.NewClient(apiKey), logger: logger}
}

// Transcribe runs speech-to-text on the media file. An empty or "auto"
// language lets the model detect it.
func (o *OpenAI) Transcribe(ctx context.Context, mediaPath, language string) ([]subtitle.Segment, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: mediaPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if language != "" && language != "auto" {
		req.Language = language
	}

	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	segments := make([]subtitle.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, subtitle.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}
	segments = sanitize(segments, language)

	o.logger.Info("transcription completed",
		slog.String("media", mediaPath),
		slog.String("language", language),
		slog.Int("segments", len(segments)))
	return segments, nil
}

// sanitize trims segment text and, for Thai, normalizes to NFC and
// strips characters the model sometimes hallucinates outside the Thai
// block. A segment whose text is emptied by cleaning is dropped.
func sanitize(segments []subtitle.Segment, language string) []subtitle.Segment {
	thai := language == "th" || language == "thai"

	out := segments[:0]
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if thai {
			text = cleanThai(text)
		}
		if text == "" {
			continue
		}
		seg.Text = text
		out = append(out, seg)
	}
	return out
}

// cleanThai keeps Thai-block runes, whitespace and basic punctuation.
func cleanThai(text string) string {
	text = segmenter.Normalize(text)
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= 0x0E00 && r <= 0x0E7F:
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteRune(r)
		case strings.ContainsRune(".!?,;:", r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
