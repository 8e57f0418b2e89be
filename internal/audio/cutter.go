package audio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-ytclips/internal/ffmpeg"
)

// Format is an output encoding for segment clips.
type Format string

// Supported segment formats.
const (
	// FormatWAV is lossless 24-bit PCM at 48 kHz.
	FormatWAV Format = "wav"
	// FormatMP3 is 192 kbps MP3, for space savings.
	FormatMP3 Format = "mp3"
	// FormatOGG is Ogg Vorbis at the normalized quality.
	FormatOGG Format = "ogg"
)

// DefaultFormat is the segment format used when none is configured.
const DefaultFormat = FormatWAV

// ParseFormat validates and normalizes a format name ("WAV", ".wav", "wav").
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatWAV, FormatMP3, FormatOGG:
		return f, nil
	case "":
		return DefaultFormat, nil
	default:
		return "", fmt.Errorf("%w: %q (expected wav, mp3 or ogg)", ErrInvalidFormat, s)
	}
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// encodingArgs returns the FFmpeg arguments producing this format.
func (f Format) encodingArgs() []string {
	switch f {
	case FormatMP3:
		return []string{"-c:a", "libmp3lame", "-b:a", "192k", "-f", "mp3"}
	case FormatOGG:
		return []string{"-c:a", "libvorbis", "-q:a", "4", "-f", "ogg"}
	default:
		return []string{"-c:a", "pcm_s24le", "-ar", "48000", "-f", "wav"}
	}
}

// Cutter exports time ranges of an audio file as standalone clips.
type Cutter struct {
	ffmpegPath string
	cmd        commandRunner
}

// CutterOption configures a Cutter.
type CutterOption func(*Cutter)

// WithCutterCommandRunner sets the command runner (for testing).
func WithCutterCommandRunner(r commandRunner) CutterOption {
	return func(c *Cutter) { c.cmd = r }
}

// NewCutter creates a Cutter.
func NewCutter(ffmpegPath string, opts ...CutterOption) (*Cutter, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}
	c := &Cutter{ffmpegPath: ffmpegPath, cmd: osCommandRunner{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cut writes [start, end) of src to dst encoded as f.
// An empty or inverted range is rejected with ErrSplit without running ffmpeg.
func (c *Cutter) Cut(ctx context.Context, src, dst string, start, end time.Duration, f Format) error {
	if end <= start {
		return fmt.Errorf("%w: empty range %s-%s", ErrSplit, formatFFmpegTime(start), formatFFmpegTime(end))
	}
	if start < 0 {
		return fmt.Errorf("%w: negative start %v", ErrSplit, start)
	}
	if err := runExtract(ctx, c.cmd, c.ffmpegPath, src, dst, start, end, f.encodingArgs()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrSplit, err)
	}
	return nil
}
