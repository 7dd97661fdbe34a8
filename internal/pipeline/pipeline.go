// Package pipeline runs the captioning stages for a single job: resolve
// the source video, obtain timed segments, synthesize cues, convert them
// into a renderable subtitle document and burn it into the video. Errors
// are prefixed with the failing stage so job status shows where a run
// died.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ptsawat/captionflow/internal/media"
	"github.com/ptsawat/captionflow/internal/rendercache"
	"github.com/ptsawat/captionflow/internal/scheduler"
	"github.com/ptsawat/captionflow/internal/storage"
	"github.com/ptsawat/captionflow/internal/style"
	"github.com/ptsawat/captionflow/internal/subtitle"
	"github.com/ptsawat/captionflow/internal/transcribe"
)

// ErrNoTranscriber is returned when a job needs speech-to-text but no
// transcription backend was configured.
var ErrNoTranscriber = errors.New("pipeline: transcription is not configured")

// assHeaderMarker identifies pre-authored ASS caption payloads, which are
// burned as-is instead of going through synthesis.
const assHeaderMarker = "[Script Info]"

// Options configures an Orchestrator.
type Options struct {
	// OutputDir receives rendered videos. Defaults to a captionflow
	// directory under the system temp dir.
	OutputDir string
	// Synthesis tunes cue wrapping and timing.
	Synthesis subtitle.Options
	// Upload pushes finished artifacts to object storage when the
	// storage backend supports it.
	Upload bool
}

// Orchestrator glues the captioning collaborators together and implements
// the scheduler's Runner port.
type Orchestrator struct {
	store       storage.Storage
	transcriber transcribe.Transcriber
	renderer    media.Renderer
	prober      media.Prober
	extractor   media.Extractor
	cache       *rendercache.Cache
	opts        Options
	logger      *slog.Logger
}

var _ scheduler.Runner = (*Orchestrator)(nil)

// New creates an Orchestrator. transcriber may be nil when speech-to-text
// is not configured; jobs that need it fail permanently. extractor may be
// nil, in which case the full video is sent for transcription.
func New(
	store storage.Storage,
	transcriber transcribe.Transcriber,
	renderer media.Renderer,
	prober media.Prober,
	extractor media.Extractor,
	cache *rendercache.Cache,
	opts Options,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(os.TempDir(), "captionflow", "renders")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       store,
		transcriber: transcriber,
		renderer:    renderer,
		prober:      prober,
		extractor:   extractor,
		cache:       cache,
		opts:        opts,
		logger:      logger,
	}, nil
}

// Run executes the full captioning pipeline for one job.
func (o *Orchestrator) Run(ctx context.Context, jobID string, params scheduler.Params) (scheduler.Result, error) {
	var scratch []string
	defer func() {
		if len(scratch) == 0 {
			return
		}
		if err := o.store.Cleanup(context.WithoutCancel(ctx), scratch); err != nil {
			o.logger.Warn("scratch cleanup failed", "job_id", jobID, "error", err)
		}
	}()

	videoPath, temp, err := o.store.Resolve(ctx, params.MediaRef)
	if err != nil {
		return scheduler.Result{}, fmt.Errorf("resolve video: %w", err)
	}
	if temp {
		scratch = append(scratch, videoPath)
	}

	cfg, err := style.ParseConfig(params.Style)
	if err != nil {
		return scheduler.Result{}, scheduler.Permanent(fmt.Errorf("convert: %w", err))
	}

	doc, err := o.buildDocument(ctx, videoPath, params, cfg, &scratch)
	if err != nil {
		return scheduler.Result{}, err
	}

	key := o.cache.Key(videoPath, []byte(doc.Body), cfg.CanonicalJSON())
	if cached, ok := o.cache.Lookup(key); ok {
		o.logger.Info("render cache hit", "job_id", jobID, "key", key)
		return o.finish(ctx, jobID, cached)
	}

	subtitlePath, err := o.store.SaveScratch(ctx, "subtitle."+doc.Format, strings.NewReader(doc.Body))
	if err != nil {
		return scheduler.Result{}, fmt.Errorf("render: %w", err)
	}
	scratch = append(scratch, subtitlePath)

	outputPath := filepath.Join(o.opts.OutputDir, jobID+".mp4")
	if err := o.renderer.Burn(ctx, videoPath, subtitlePath, outputPath); err != nil {
		return scheduler.Result{}, fmt.Errorf("render: %w", err)
	}
	o.cache.Store(key, outputPath)

	o.logger.Info("render complete",
		"job_id", jobID,
		"format", doc.Format,
		"output", outputPath,
	)
	return o.finish(ctx, jobID, outputPath)
}

// buildDocument turns job params into a renderable subtitle document.
// Pre-authored ASS captions pass through untouched; everything else goes
// segments -> cues -> styled document.
func (o *Orchestrator) buildDocument(ctx context.Context, videoPath string, params scheduler.Params, cfg style.Config, scratch *[]string) (style.Document, error) {
	captions := params.Captions
	if captions != "" && storage.IsURL(captions) {
		body, err := o.store.FetchText(ctx, captions)
		if err != nil {
			return style.Document{}, fmt.Errorf("fetch captions: %w", err)
		}
		captions = body
	}

	width, height := o.prober.Resolution(ctx, videoPath)
	res := style.Resolution{Width: width, Height: height}

	if strings.Contains(captions, assHeaderMarker) {
		return style.Document{Format: style.FormatASS, Body: captions, Resolution: res}, nil
	}

	var segments []subtitle.Segment
	switch {
	case captions != "":
		segs, err := subtitle.ParseSRT(captions)
		if err != nil {
			return style.Document{}, scheduler.Permanent(fmt.Errorf("parse captions: %w", err))
		}
		segments = segs
	default:
		if o.transcriber == nil {
			return style.Document{}, scheduler.Permanent(fmt.Errorf("transcribe: %w", ErrNoTranscriber))
		}
		mediaPath := videoPath
		if o.extractor != nil {
			audioPath, err := o.store.SaveScratch(ctx, "audio.mp3", strings.NewReader(""))
			if err != nil {
				return style.Document{}, fmt.Errorf("transcribe: %w", err)
			}
			*scratch = append(*scratch, audioPath)
			if err := o.extractor.ExtractAudio(ctx, videoPath, audioPath); err != nil {
				return style.Document{}, fmt.Errorf("transcribe: extract audio: %w", err)
			}
			mediaPath = audioPath
		}
		segs, err := o.transcriber.Transcribe(ctx, mediaPath, params.Language)
		if err != nil {
			return style.Document{}, fmt.Errorf("transcribe: %w", err)
		}
		segments = segs
	}

	synthOpts := o.opts.Synthesis
	synthOpts.Language = params.Language
	if cfg.MaxWidth > 0 {
		synthOpts.WrapWidth = cfg.MaxWidth
	}
	if cfg.WordsPerLine > 0 {
		synthOpts.MaxWordsPerLine = cfg.WordsPerLine
	}
	synth := subtitle.NewSynthesizer(synthOpts)

	if params.Script != "" {
		segments = synth.AlignScript(segments, params.Script)
	}

	cues := synth.Synthesize(segments)
	if len(cues) == 0 {
		return style.Document{}, scheduler.Permanent(fmt.Errorf("synthesize: %w", subtitle.ErrNoCues))
	}

	format := params.OutputFormat
	if format == "" {
		format = style.FormatASS
	}
	doc, err := style.Convert(cues, cfg, format, res)
	if err != nil {
		return style.Document{}, scheduler.Permanent(fmt.Errorf("convert: %w", err))
	}
	return doc, nil
}

// finish builds the job result and pushes the artifact to object storage
// when enabled. Upload problems never fail a finished render; the local
// path is always returned.
func (o *Orchestrator) finish(ctx context.Context, jobID, outputPath string) (scheduler.Result, error) {
	result := scheduler.Result{OutputPath: outputPath}
	if !o.opts.Upload {
		return result, nil
	}

	f, err := os.Open(outputPath)
	if err != nil {
		o.logger.Warn("upload skipped, artifact unreadable", "job_id", jobID, "error", err)
		return result, nil
	}
	defer f.Close()

	url, err := o.store.Upload(ctx, "renders/"+filepath.Base(outputPath), f)
	if err != nil {
		if !errors.Is(err, storage.ErrS3NotConfigured) {
			o.logger.Warn("artifact upload failed", "job_id", jobID, "error", err)
		}
		return result, nil
	}
	result.OutputURL = url
	return result, nil
}
