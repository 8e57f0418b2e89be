package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// minFFmpegMajorVersion is the oldest ffmpeg whose libvorbis and -to
// handling the audio package relies on.
const minFFmpegMajorVersion = 4

// ---------------------------------------------------------------------------
// Executor - testable command execution with dependency injection
// ---------------------------------------------------------------------------

// runOutputFn runs a command and returns its combined output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs version probes with injectable dependencies.
type Executor struct {
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{runOutput: defaultRunOutput}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes path and captures stdout and stderr together.
func (e *Executor) RunOutput(ctx context.Context, path string, args []string) (string, error) {
	return e.runOutput(ctx, path, args)
}

// defaultRunOutput returns the output even when the command fails, since
// diagnostics are often the useful part.
func defaultRunOutput(ctx context.Context, path string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...) // #nosec G204 -- path is a resolved tool binary
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// ---------------------------------------------------------------------------
// VersionChecker
// ---------------------------------------------------------------------------

// VersionChecker reports tool versions and warns about outdated ffmpeg.
type VersionChecker struct {
	executor *Executor
	stderr   io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor used for probes.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionStderr sets the writer for warning messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check verifies that ffmpeg meets the minimum version.
// It prints a warning if the version is below the minimum but doesn't fail.
// Returns true if the version was parsed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) bool {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return false
	}

	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return false
	}

	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err != nil {
		// Git builds print "ffmpeg version n6.1.1-..."
		if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err != nil {
			return false
		}
	}

	if major < minFFmpegMajorVersion {
		fmt.Fprintf(vc.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minFFmpegMajorVersion)
	}
	return true
}

// YtDlpVersion returns the version string printed by yt-dlp --version,
// e.g. "2024.08.06".
func (vc *VersionChecker) YtDlpVersion(ctx context.Context, ytdlpPath string) (string, error) {
	output, err := vc.executor.RunOutput(ctx, ytdlpPath, []string{"--version"})
	if err != nil {
		return "", fmt.Errorf("%w: %s --version: %v", ErrYtDlpNotFound, ytdlpPath, err)
	}
	v := strings.TrimSpace(output)
	if v == "" {
		return "", fmt.Errorf("%w: %s printed no version", ErrYtDlpNotFound, ytdlpPath)
	}
	return v, nil
}
