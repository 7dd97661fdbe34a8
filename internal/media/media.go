// Package media burns subtitles into video and probes source metadata.
// Implementations shell out to the ffmpeg CLI.
package media

import "context"

// Renderer burns a subtitle file into a video.
type Renderer interface {
	// Burn renders subtitlePath onto videoPath, writing outputPath.
	// The subtitle filter is chosen from the file extension: .ass files
	// go through the ass filter, everything else through subtitles.
	Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) error
}

// Extractor pulls the audio track out of a video as compressed mono
// audio, sized for upload to a speech-to-text API.
type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string) error
}

// Prober reads source video metadata.
type Prober interface {
	// Resolution returns the video's width and height in pixels. When
	// probing fails the default 384x288 is returned; captioning should
	// proceed rather than fail on a metadata read.
	Resolution(ctx context.Context, videoPath string) (width, height int)

	// Duration returns the media duration in seconds.
	Duration(ctx context.Context, videoPath string) (float64, error)
}
