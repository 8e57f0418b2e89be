package audio_test

import (
	"context"
	"os"
	"slices"
	"sync"
)

// ---------------------------------------------------------------------------
// Mocks for testing
// ---------------------------------------------------------------------------

type mockCommandRunner struct {
	mu         sync.Mutex
	outputFunc func(ctx context.Context, name string, args []string) ([]byte, error)
	calls      []mockCall
}

type mockCall struct {
	name string
	args []string
}

func (m *mockCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{name: name, args: args})
	m.mu.Unlock()
	if m.outputFunc != nil {
		return m.outputFunc(ctx, name, args)
	}
	return nil, nil
}

func (m *mockCommandRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// exportCalls returns the calls that write an output file (not probes).
func (m *mockCommandRunner) exportCalls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockCall
	for _, c := range m.calls {
		if !isProbe(c.args) {
			out = append(out, c)
		}
	}
	return out
}

// fakeFFmpeg answers probes with the given ffmpeg stderr and writes a small
// file at the output path of every other invocation.
func fakeFFmpeg(probeOutput string) *mockCommandRunner {
	return &mockCommandRunner{
		outputFunc: func(_ context.Context, _ string, args []string) ([]byte, error) {
			if isProbe(args) {
				return []byte(probeOutput), nil
			}
			return nil, os.WriteFile(args[len(args)-1], []byte("OggS"), 0600)
		},
	}
}

func isProbe(args []string) bool {
	return slices.Contains(args, "null")
}

// argAfter returns the argument following flag, or "".
func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

type mockFileMover struct {
	renameErr error
	removed   []string
}

func (m *mockFileMover) Rename(oldpath, newpath string) error {
	if m.renameErr != nil {
		return m.renameErr
	}
	return os.Rename(oldpath, newpath)
}

func (m *mockFileMover) Remove(name string) error {
	m.removed = append(m.removed, name)
	return os.Remove(name)
}
