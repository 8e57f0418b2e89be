package audio

import (
	"context"
	"fmt"

	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/media"
)

// Transcoder re-encodes an item's raw artifact to the normalized codec.
//
// It converts unconditionally when called. Skipping an item whose normalized
// artifact already exists is the caller's job.
type Transcoder struct {
	ffmpegPath string
	store      *media.Store
	quality    string

	cmd   commandRunner
	files fileMover
}

// TranscoderOption configures a Transcoder.
type TranscoderOption func(*Transcoder)

// WithTranscoderCommandRunner sets the command runner (for testing).
func WithTranscoderCommandRunner(r commandRunner) TranscoderOption {
	return func(t *Transcoder) { t.cmd = r }
}

// WithTranscoderFileMover sets the file mover (for testing).
func WithTranscoderFileMover(m fileMover) TranscoderOption {
	return func(t *Transcoder) { t.files = m }
}

// WithQuality sets the Vorbis quality level (-q:a), "4" by default.
func WithQuality(q string) TranscoderOption {
	return func(t *Transcoder) { t.quality = q }
}

// NewTranscoder creates a Transcoder writing into store.
func NewTranscoder(ffmpegPath string, store *media.Store, opts ...TranscoderOption) (*Transcoder, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}
	if store == nil {
		return nil, fmt.Errorf("media store cannot be nil")
	}
	t := &Transcoder{
		ffmpegPath: ffmpegPath,
		store:      store,
		quality:    "4",
		cmd:        osCommandRunner{},
		files:      osFileMover{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Normalize converts the raw artifact of itemID and returns the normalized path.
//
// Errors:
//   - media.ErrNotFound when the raw artifact is missing
//   - ErrDecode when the raw file is unreadable or corrupt
//   - ErrEncode when the encoder fails; no partial output is left behind
func (t *Transcoder) Normalize(ctx context.Context, itemID string) (string, error) {
	src, err := t.store.Stat(itemID, media.StageRaw)
	if err != nil {
		return "", err
	}
	dst, err := t.store.PathFor(itemID, media.StageNormalized)
	if err != nil {
		return "", err
	}

	if _, err := probeDuration(ctx, t.cmd, t.ffmpegPath, src); err != nil {
		return "", err
	}

	// Encode under a temporary name so a crash never leaves a truncated
	// file at the canonical path (presence means done).
	tmp := dst + ".part"
	args := []string{
		"-y",
		"-hide_banner",
		"-i", src,
		"-vn",
		"-c:a", "libvorbis",
		"-q:a", t.quality,
		"-f", "ogg",
		tmp,
	}
	output, err := t.cmd.CombinedOutput(ctx, t.ffmpegPath, args)
	if err != nil {
		_ = t.files.Remove(tmp) // best-effort cleanup; original error takes precedence
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v: %s", ErrEncode, itemID, err, lastLine(output))
	}
	if err := t.files.Rename(tmp, dst); err != nil {
		_ = t.files.Remove(tmp)
		return "", fmt.Errorf("%w: %s: %v", ErrEncode, itemID, err)
	}
	return dst, nil
}
