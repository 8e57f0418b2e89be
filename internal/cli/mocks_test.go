package cli

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/config"
	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/pipeline"
	"github.com/alnah/go-ytclips/internal/segment"
	"github.com/alnah/go-ytclips/internal/transcribe"
	"github.com/alnah/go-ytclips/internal/youtube"
)

// ---------------------------------------------------------------------------
// Mock ToolResolver
// ---------------------------------------------------------------------------

type mockToolResolver struct {
	ResolveFunc func(ctx context.Context, tool ffmpeg.Tool) (string, error)

	mu       sync.Mutex
	resolved []string
}

func (m *mockToolResolver) ResolveTool(ctx context.Context, tool ffmpeg.Tool) (string, error) {
	m.mu.Lock()
	m.resolved = append(m.resolved, tool.Binary)
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, tool)
	}
	return "/usr/bin/" + tool.Binary, nil
}

func (m *mockToolResolver) CheckVersion(context.Context, string) {}

func (m *mockToolResolver) Resolved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolved...)
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	mu  sync.Mutex
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, m.err
}

func (m *mockConfigLoader) Update(fn func(*config.Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.cfg)
}

// ---------------------------------------------------------------------------
// Mock EngineFactory + Engine
// ---------------------------------------------------------------------------

type mockEngineFactory struct {
	engine *mockEngine
	err    error

	mu   sync.Mutex
	keys []string
}

func (m *mockEngineFactory) NewEngine(apiKey string) (transcribe.Engine, error) {
	m.mu.Lock()
	m.keys = append(m.keys, apiKey)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return m.engine, nil
}

func (m *mockEngineFactory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

type mockEngine struct {
	err error

	mu    sync.Mutex
	calls int
}

func (m *mockEngine) Transcribe(_ context.Context, _, _ string) (transcribe.EngineResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.err != nil {
		return transcribe.EngineResult{}, m.err
	}
	return transcribe.EngineResult{
		Text: "selamat pagi apa kabar",
		Segments: []transcribe.EngineSegment{
			{Start: 0, End: 1.5, Text: "selamat pagi"},
			{Start: 1.5, End: 3.25, Text: "apa kabar"},
		},
	}, nil
}

func (m *mockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ---------------------------------------------------------------------------
// Mock SearcherFactory + Searcher
// ---------------------------------------------------------------------------

type mockSearcherFactory struct {
	searcher *mockSearcher
	err      error
}

func (m *mockSearcherFactory) NewSearcher(context.Context, string) (VideoSearcher, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.searcher, nil
}

type mockSearcher struct {
	page youtube.Page
	err  error

	mu      sync.Mutex
	queries []youtube.Query
}

func (m *mockSearcher) Search(_ context.Context, q youtube.Query) (youtube.Page, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	if m.err != nil {
		return youtube.Page{}, m.err
	}
	return m.page, nil
}

func (m *mockSearcher) Queries() []youtube.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]youtube.Query(nil), m.queries...)
}

// ---------------------------------------------------------------------------
// Mock StepFactory
// ---------------------------------------------------------------------------

// mockStepFactory builds steps that write placeholder artifacts at their
// canonical paths, so stage presence checks behave as in production.
type mockStepFactory struct {
	downloadErr error
	convertErr  error
	cutErr      error

	mu        sync.Mutex
	downloads []string
	converts  []string
	cuts      []audio.Format
}

func (f *mockStepFactory) NewDownloader(_, _ string, m *media.Store) (pipeline.Downloader, error) {
	return &stepDownloader{f: f, m: m}, nil
}

func (f *mockStepFactory) NewNormalizer(_ string, m *media.Store) (pipeline.Normalizer, error) {
	return &stepNormalizer{f: f, m: m}, nil
}

func (f *mockStepFactory) NewChunker(_ string, m *media.Store, _ func(string)) (transcribe.ChunkPlanner, error) {
	return stepChunker{}, nil
}

func (f *mockStepFactory) NewCutter(string) (segment.ClipCutter, error) {
	return &stepCutter{f: f}, nil
}

func (f *mockStepFactory) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}

func (f *mockStepFactory) Converts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.converts...)
}

func (f *mockStepFactory) Cuts() []audio.Format {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audio.Format(nil), f.cuts...)
}

type stepDownloader struct {
	f *mockStepFactory
	m *media.Store
}

func (d *stepDownloader) Download(_ context.Context, id string, onProgress func(float64)) (string, error) {
	d.f.mu.Lock()
	d.f.downloads = append(d.f.downloads, id)
	d.f.mu.Unlock()

	if d.f.downloadErr != nil {
		return "", d.f.downloadErr
	}
	onProgress(50)
	path, err := d.m.PathFor(id, media.StageRaw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("raw audio of "+id), 0600); err != nil {
		return "", err
	}
	onProgress(100)
	return path, nil
}

type stepNormalizer struct {
	f *mockStepFactory
	m *media.Store
}

func (n *stepNormalizer) Normalize(_ context.Context, id string) (string, error) {
	n.f.mu.Lock()
	n.f.converts = append(n.f.converts, id)
	n.f.mu.Unlock()

	if n.f.convertErr != nil {
		return "", n.f.convertErr
	}
	if _, err := n.m.Stat(id, media.StageRaw); err != nil {
		return "", err
	}
	path, err := n.m.PathFor(id, media.StageNormalized)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte("ogg"), 0600)
}

// stepChunker plans one identity chunk of ten seconds.
type stepChunker struct{}

func (stepChunker) PlanChunks(_ context.Context, _, audioPath string) ([]audio.Chunk, error) {
	return []audio.Chunk{{Path: audioPath, EndTime: 10 * time.Second, Identity: true}}, nil
}

type stepCutter struct {
	f *mockStepFactory
}

func (c *stepCutter) Cut(_ context.Context, _, dst string, _, _ time.Duration, format audio.Format) error {
	c.f.mu.Lock()
	c.f.cuts = append(c.f.cuts, format)
	c.f.mu.Unlock()

	if c.f.cutErr != nil {
		return c.f.cutErr
	}
	return os.WriteFile(dst, []byte("clip"), 0600)
}

var errMock = errors.New("mock failure")

// Compile-time interface verification.
var (
	_ ToolResolver    = (*mockToolResolver)(nil)
	_ ConfigLoader    = (*mockConfigLoader)(nil)
	_ EngineFactory   = (*mockEngineFactory)(nil)
	_ SearcherFactory = (*mockSearcherFactory)(nil)
	_ StepFactory     = (*mockStepFactory)(nil)
)
