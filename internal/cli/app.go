package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/config"
	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/pipeline"
	"github.com/alnah/go-ytclips/internal/segment"
	"github.com/alnah/go-ytclips/internal/transcribe"
	"github.com/alnah/go-ytclips/internal/transcript"
)

// app bundles the stores every command works against.
type app struct {
	cfg         config.Config
	media       *media.Store
	transcripts *transcript.Store
	catalog     *catalog.Store
	events      *eventSink
}

// openApp loads the configuration and opens the stores under its data dir.
// The caller must Close the result.
func openApp(env *Env) (*app, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, err
	}
	m, err := media.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(filepath.Join(cfg.DataDir, catalog.DBName), m)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:         cfg,
		media:       m,
		transcripts: transcript.NewStore(m),
		catalog:     cat,
		events:      newEventSink(env.Stderr, cfg.Language),
	}, nil
}

// Close releases the catalog database.
func (a *app) Close() error {
	return a.catalog.Close()
}

// stepOptions carries per-command overrides of configured behavior.
type stepOptions struct {
	format   audio.Format // "" uses the configured split format
	parallel int          // concurrent engine requests per item
}

// steps builds the collaborators for the given stages only, so commands
// that never transcribe don't need an API key and read-only commands don't
// need ffmpeg.
func (a *app) steps(ctx context.Context, env *Env, opts stepOptions, stages ...pipeline.Stage) (pipeline.Steps, error) {
	var s pipeline.Steps
	if len(stages) == 0 {
		return s, nil
	}

	// Fail on a missing key before spending time on tool lookup.
	if slices.Contains(stages, pipeline.StageTranscribe) && a.cfg.OpenAIAPIKey == "" {
		return s, fmt.Errorf("%w (set it with: ytclips config set %s sk-...)",
			transcribe.ErrAPIKeyMissing, config.KeyOpenAIAPIKey)
	}

	ffmpegPath, err := env.ToolResolver.ResolveTool(ctx, ffmpeg.FFmpeg)
	if err != nil {
		return s, err
	}
	env.ToolResolver.CheckVersion(ctx, ffmpegPath)

	for _, stage := range stages {
		switch stage {
		case pipeline.StageDownload:
			ytdlpPath, err := env.ToolResolver.ResolveTool(ctx, ffmpeg.YtDlp)
			if err != nil {
				return s, err
			}
			if s.Download, err = env.StepFactory.NewDownloader(ytdlpPath, ffmpegPath, a.media); err != nil {
				return s, err
			}

		case pipeline.StageConvert:
			if s.Convert, err = env.StepFactory.NewNormalizer(ffmpegPath, a.media); err != nil {
				return s, err
			}

		case pipeline.StageTranscribe:
			engine, err := env.EngineFactory.NewEngine(a.cfg.OpenAIAPIKey)
			if err != nil {
				return s, err
			}
			chunker, err := env.StepFactory.NewChunker(ffmpegPath, a.media, a.events.warn)
			if err != nil {
				return s, err
			}
			s.Transcribe = transcribe.New(engine, chunker, a.media, a.transcripts,
				transcribe.WithLanguage(a.cfg.Language),
				transcribe.WithParallel(clampParallel(opts.parallel)),
				transcribe.WithProgress(a.events.chunkProgress),
			)

		case pipeline.StageSplit:
			cutter, err := env.StepFactory.NewCutter(ffmpegPath)
			if err != nil {
				return s, err
			}
			format := opts.format
			if format == "" {
				format = a.cfg.SplitFormat
			}
			s.Split = segment.New(cutter, a.media, a.transcripts,
				segment.WithFormat(format),
				segment.WithWarnFunc(a.events.warn),
			)
		}
	}
	return s, nil
}

// runner wires steps to the stores, the catalog and the terminal.
func (a *app) runner(env *Env, steps pipeline.Steps) *pipeline.Runner {
	opts := []pipeline.RunnerOption{
		pipeline.WithRecorder(a.catalog),
		pipeline.WithObserver(a.events.observe),
		pipeline.WithWarnFunc(a.events.warn),
	}
	if env.StopRequested != nil {
		opts = append(opts, pipeline.WithStopCheck(env.StopRequested))
	}
	return pipeline.NewRunner(a.media, a.transcripts, steps, opts...)
}

// clampParallel constrains parallel request count to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// closeApp closes a and folds a close failure into err.
func closeApp(a *app, err *error) {
	if cerr := a.Close(); cerr != nil {
		*err = errors.Join(*err, cerr)
	}
}
