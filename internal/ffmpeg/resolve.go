// Package ffmpeg locates the external binaries the pipeline drives: ffmpeg
// for every audio operation and yt-dlp for downloads.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Tool describes an external binary and how to find it.
type Tool struct {
	Binary string // base name, without .exe
	EnvVar string // explicit path override
	err    error  // returned when the tool cannot be found
}

// Known tools.
var (
	FFmpeg = Tool{Binary: "ffmpeg", EnvVar: "FFMPEG_PATH", err: ErrNotFound}
	YtDlp  = Tool{Binary: "yt-dlp", EnvVar: "YTDLP_PATH", err: ErrYtDlpNotFound}
)

// binaryExtWindows is the file extension for Windows executables.
const binaryExtWindows = ".exe"

// installDirName is where users may drop binaries under their home directory.
const installDirName = ".ytclips"

// ---------------------------------------------------------------------------
// Resolver - testable binary resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds external binaries.
type Resolver struct {
	files  fileStatter
	env    envProvider
	stderr io.Writer
	goos   string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(res *Resolver) { res.files = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(res *Resolver) { res.env = e }
}

// WithStderr sets the writer for status messages.
func WithStderr(w io.Writer) ResolverOption {
	return func(res *Resolver) { res.stderr = w }
}

// WithPlatform sets the target OS (for testing cross-platform behavior).
func WithPlatform(goos string) ResolverOption {
	return func(res *Resolver) { res.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		files:  osFileStatter{},
		env:    osEnvProvider{},
		stderr: os.Stderr,
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	return r.ResolveTool(ctx, FFmpeg)
}

// ResolveTool finds a binary using the following precedence:
//  1. the tool's environment variable (error if set but invalid)
//  2. ~/.ytclips/bin/<binary>
//  3. system PATH
func (r *Resolver) ResolveTool(ctx context.Context, tool Tool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if envPath := strings.TrimSpace(r.env.Getenv(tool.EnvVar)); envPath != "" {
		if _, err := r.files.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", tool.notFound(), tool.EnvVar, envPath)
		}
		return envPath, nil
	}

	if path, err := r.installedPath(tool); err == nil {
		if _, err := r.files.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := r.env.LookPath(tool.Binary); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w\n\n%s", tool.notFound(), r.manualInstallInstructions(tool))
}

func (t Tool) notFound() error {
	if t.err != nil {
		return t.err
	}
	return fmt.Errorf("%s not found", t.Binary)
}

// installedPath returns where a user-installed copy of tool would live.
func (r *Resolver) installedPath(tool Tool) (string, error) {
	home, err := r.env.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	name := tool.Binary
	if r.goos == "windows" {
		name += binaryExtWindows
	}
	return filepath.Join(home, installDirName, "bin", name), nil
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions(tool Tool) string {
	var pkg string
	switch r.goos {
	case "darwin":
		pkg = "  brew install " + tool.Binary
	case "linux":
		if tool.Binary == YtDlp.Binary {
			pkg = "  pipx install yt-dlp\n  or download from https://github.com/yt-dlp/yt-dlp/releases"
		} else {
			pkg = `  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg`
		}
	case "windows":
		pkg = "  winget install " + tool.Binary
	default:
		if tool.Binary == YtDlp.Binary {
			pkg = "  download from https://github.com/yt-dlp/yt-dlp/releases"
		} else {
			pkg = "  download from https://ffmpeg.org/download.html"
		}
	}
	return fmt.Sprintf("To install %s manually:\n%s\n\nOr set %s to your %s binary.",
		tool.Binary, pkg, tool.EnvVar, tool.Binary)
}

// IsNotFound reports whether err means a tool could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrYtDlpNotFound)
}
