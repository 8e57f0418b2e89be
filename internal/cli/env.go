// Package cli implements the ytclips commands on top of the pipeline core.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/go-ytclips/internal/apierr"
	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/config"
	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/pipeline"
	"github.com/alnah/go-ytclips/internal/segment"
	"github.com/alnah/go-ytclips/internal/transcribe"
	"github.com/alnah/go-ytclips/internal/youtube"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// StopRequested is polled between stages; main wires it to the
	// interrupt handler.
	StopRequested func() bool

	// Factories for domain objects
	ToolResolver    ToolResolver
	ConfigLoader    ConfigLoader
	EngineFactory   EngineFactory
	SearcherFactory SearcherFactory
	StepFactory     StepFactory
}

// ToolResolver locates external binaries.
type ToolResolver interface {
	ResolveTool(ctx context.Context, tool ffmpeg.Tool) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// EngineFactory creates speech-to-text engines.
type EngineFactory interface {
	NewEngine(apiKey string) (transcribe.Engine, error)
}

// VideoSearcher finds videos to catalog.
type VideoSearcher interface {
	Search(ctx context.Context, q youtube.Query) (youtube.Page, error)
}

// SearcherFactory creates video searchers.
type SearcherFactory interface {
	NewSearcher(ctx context.Context, apiKey string) (VideoSearcher, error)
}

// StepFactory creates the binary-backed pipeline collaborators.
type StepFactory interface {
	NewDownloader(ytdlpPath, ffmpegPath string, m *media.Store) (pipeline.Downloader, error)
	NewNormalizer(ffmpegPath string, m *media.Store) (pipeline.Normalizer, error)
	NewChunker(ffmpegPath string, m *media.Store, warn func(string)) (transcribe.ChunkPlanner, error)
	NewCutter(ffmpegPath string) (segment.ClipCutter, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithStopRequested sets the between-stages stop check.
func WithStopRequested(fn func() bool) EnvOption {
	return func(e *Env) {
		e.StopRequested = fn
	}
}

// WithToolResolver sets the tool resolver.
func WithToolResolver(r ToolResolver) EnvOption {
	return func(e *Env) {
		e.ToolResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithEngineFactory sets the engine factory.
func WithEngineFactory(f EngineFactory) EnvOption {
	return func(e *Env) {
		e.EngineFactory = f
	}
}

// WithSearcherFactory sets the searcher factory.
func WithSearcherFactory(f SearcherFactory) EnvOption {
	return func(e *Env) {
		e.SearcherFactory = f
	}
}

// WithStepFactory sets the step factory.
func WithStepFactory(f StepFactory) EnvOption {
	return func(e *Env) {
		e.StepFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		Getenv:          os.Getenv,
		Now:             time.Now,
		StopRequested:   func() bool { return false },
		ToolResolver:    &defaultToolResolver{},
		ConfigLoader:    &defaultConfigLoader{},
		EngineFactory:   &defaultEngineFactory{},
		SearcherFactory: &defaultSearcherFactory{},
		StepFactory:     &defaultStepFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultToolResolver implements ToolResolver using the ffmpeg package.
type defaultToolResolver struct{}

func (defaultToolResolver) ResolveTool(ctx context.Context, tool ffmpeg.Tool) (string, error) {
	return ffmpeg.NewResolver().ResolveTool(ctx, tool)
}

func (defaultToolResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	ffmpeg.NewVersionChecker().Check(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultEngineFactory implements EngineFactory with Whisper and the
// default retry policy.
type defaultEngineFactory struct{}

func (defaultEngineFactory) NewEngine(apiKey string) (transcribe.Engine, error) {
	return transcribe.NewWhisperEngine(apiKey, transcribe.WithRetry(apierr.DefaultRetryConfig()))
}

// defaultSearcherFactory implements SearcherFactory with the Data API.
type defaultSearcherFactory struct{}

func (defaultSearcherFactory) NewSearcher(ctx context.Context, apiKey string) (VideoSearcher, error) {
	return youtube.NewSearcher(ctx, apiKey)
}

// defaultStepFactory implements StepFactory with ffmpeg and yt-dlp.
type defaultStepFactory struct{}

func (defaultStepFactory) NewDownloader(ytdlpPath, ffmpegPath string, m *media.Store) (pipeline.Downloader, error) {
	return youtube.NewDownloader(ytdlpPath, m, youtube.WithFFmpegLocation(ffmpegPath))
}

func (defaultStepFactory) NewNormalizer(ffmpegPath string, m *media.Store) (pipeline.Normalizer, error) {
	return audio.NewTranscoder(ffmpegPath, m)
}

func (defaultStepFactory) NewChunker(ffmpegPath string, m *media.Store, warn func(string)) (transcribe.ChunkPlanner, error) {
	return audio.NewSizeChunker(ffmpegPath, m, audio.WithWarnFunc(warn))
}

func (defaultStepFactory) NewCutter(ffmpegPath string) (segment.ClipCutter, error) {
	return audio.NewCutter(ffmpegPath)
}

// Compile-time interface verification.
var (
	_ ToolResolver    = (*defaultToolResolver)(nil)
	_ ConfigLoader    = (*defaultConfigLoader)(nil)
	_ EngineFactory   = (*defaultEngineFactory)(nil)
	_ SearcherFactory = (*defaultSearcherFactory)(nil)
	_ StepFactory     = (*defaultStepFactory)(nil)
	_ VideoSearcher   = (*youtube.Searcher)(nil)
)
