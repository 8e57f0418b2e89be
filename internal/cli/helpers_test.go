package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/config"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/transcript"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	tools    *mockToolResolver
	config   *mockConfigLoader
	engines  *mockEngineFactory
	engine   *mockEngine
	searcher *mockSearcher
	steps    *mockStepFactory
	stdout   *syncBuffer
	stderr   *syncBuffer
	dataDir  string
}

// testEnv creates an Env with every dependency mocked and a fresh data dir.
func testEnv(t *testing.T) (*Env, *testMocks) {
	t.Helper()

	m := &testMocks{
		tools:    &mockToolResolver{},
		engine:   &mockEngine{},
		searcher: &mockSearcher{},
		steps:    &mockStepFactory{},
		stdout:   &syncBuffer{},
		stderr:   &syncBuffer{},
		dataDir:  t.TempDir(),
	}
	m.engines = &mockEngineFactory{engine: m.engine}
	m.config = &mockConfigLoader{cfg: config.Config{
		DataDir:       m.dataDir,
		Language:      "id",
		SplitFormat:   audio.FormatWAV,
		YouTubeAPIKey: "AIzaTestKey",
		OpenAIAPIKey:  "sk-test",
	}}

	env := NewEnv(
		WithStdout(m.stdout),
		WithStderr(m.stderr),
		WithGetenv(staticEnv(nil)),
		WithNow(fixedTime(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))),
		WithStopRequested(func() bool { return false }),
		WithToolResolver(m.tools),
		WithConfigLoader(m.config),
		WithEngineFactory(m.engines),
		WithSearcherFactory(&mockSearcherFactory{searcher: m.searcher}),
		WithStepFactory(m.steps),
	)
	return env, m
}

// stores opens the media and transcript stores of the mocked data dir.
func (m *testMocks) stores(t *testing.T) (*media.Store, *transcript.Store) {
	t.Helper()
	ms, err := media.NewStore(m.dataDir)
	if err != nil {
		t.Fatalf("media.NewStore: %v", err)
	}
	return ms, transcript.NewStore(ms)
}

// writeArtifact puts a placeholder file at the canonical path of stage.
func (m *testMocks) writeArtifact(t *testing.T, id string, stage media.Stage) string {
	t.Helper()
	ms, _ := m.stores(t)
	path, err := ms.PathFor(id, stage)
	if err != nil {
		t.Fatalf("PathFor(%s, %v): %v", id, stage, err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// execute runs cmd with args, keeping cobra's own output out of the test log.
func execute(cmd *cobra.Command, args ...string) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// openCatalog opens the catalog of the mocked data dir. It is closed when
// the test ends.
func (m *testMocks) openCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	ms, _ := m.stores(t)
	cat, err := catalog.Open(filepath.Join(m.dataDir, catalog.DBName), ms)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

// seedCatalog upserts items and closes the catalog again.
func (m *testMocks) seedCatalog(t *testing.T, items ...catalog.Item) {
	t.Helper()
	ms, _ := m.stores(t)
	cat, err := catalog.Open(filepath.Join(m.dataDir, catalog.DBName), ms)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer func() { _ = cat.Close() }()
	if _, err := cat.Upsert(context.Background(), items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}
