package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrFFprobeExecution is returned when an ffprobe command fails.
var ErrFFprobeExecution = errors.New("ffprobe execution failed")

// Compile-time checks that FFmpeg implements both ports.
var (
	_ Renderer  = (*FFmpeg)(nil)
	_ Prober    = (*FFmpeg)(nil)
	_ Extractor = (*FFmpeg)(nil)
)

// Fallback frame size when the source cannot be probed.
const (
	DefaultWidth  = 384
	DefaultHeight = 288
)

// FFmpeg implements Renderer and Prober using the ffmpeg and ffprobe
// CLIs.
type FFmpeg struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	logger      *slog.Logger
}

// NewFFmpeg creates an FFmpeg processor. Empty binary paths resolve
// through PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string, logger *slog.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// Burn renders the subtitle file onto the video. Audio streams are
// copied through untouched.
func (f *FFmpeg) Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", subtitleFilter(subtitlePath),
		"-c:a", "copy",
		outputPath,
	}
	return f.runFFmpeg(ctx, args)
}

// ExtractAudio pulls the audio track out of videoPath as 16 kHz mono
// MP3, keeping uploads to the transcription API small.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "64k",
		outputPath,
	}
	return f.runFFmpeg(ctx, args)
}

// subtitleFilter builds the -vf expression for a subtitle file. Filter
// option separators in the path must be escaped.
func subtitleFilter(subtitlePath string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`).Replace(subtitlePath)
	if strings.EqualFold(filepath.Ext(subtitlePath), ".ass") {
		return "ass=" + escaped
	}
	return "subtitles=" + escaped
}

// Resolution probes the first video stream's frame size. Probe failures
// log and fall back to 384x288.
func (f *FFmpeg) Resolution(ctx context.Context, videoPath string) (int, int) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		videoPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		f.logger.Warn("probing resolution failed, using default",
			slog.String("video", videoPath),
			slog.String("stderr", strings.TrimSpace(stderr.String())))
		return DefaultWidth, DefaultHeight
	}

	var width, height int
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%d,%d", &width, &height); err != nil || width <= 0 || height <= 0 {
		f.logger.Warn("unparseable resolution, using default",
			slog.String("video", videoPath),
			slog.String("output", strings.TrimSpace(stdout.String())))
		return DefaultWidth, DefaultHeight
	}
	return width, height
}

// Duration returns the media duration in seconds via ffprobe.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(stdout.String()), err)
	}
	return duration, nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an
// error containing stderr output if the command fails.
func (f *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the
// stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
