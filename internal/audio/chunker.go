package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/format"
	"github.com/alnah/go-ytclips/internal/media"
)

// DefaultCeiling is the speech-to-text upload limit (25 MiB).
const DefaultCeiling int64 = 25 * 1024 * 1024

// Chunk is a time slice of an audio artifact sent to the speech engine as one
// payload. Offsets are positions in the source timeline.
type Chunk struct {
	Path      string        // File to upload.
	Index     int           // Zero-based position in the plan.
	StartTime time.Duration // Start offset in the source audio.
	EndTime   time.Duration // End offset in the source audio.
	Identity  bool          // Path is the source itself, not an exported copy.
}

// Duration returns the length of this chunk.
func (c Chunk) Duration() time.Duration {
	return c.EndTime - c.StartTime
}

// StartMs returns the start offset in whole milliseconds.
func (c Chunk) StartMs() int64 {
	return c.StartTime.Milliseconds()
}

// EndMs returns the end offset in whole milliseconds.
func (c Chunk) EndMs() int64 {
	return c.EndTime.Milliseconds()
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(c.StartTime),
		format.Duration(c.EndTime))
}

// WarnFunc is a callback for non-fatal warnings.
// Set to nil to suppress warnings, or provide a custom handler.
type WarnFunc func(msg string)

// defaultWarnFunc writes warnings to stderr.
func defaultWarnFunc(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// SizeChunker plans chunks so that no upload exceeds a byte ceiling.
//
// A source under the ceiling yields one identity chunk (no copy). Otherwise
// the duration is cut into ceil(size/ceiling) equal slices, each re-encoded
// to a lower-bitrate Ogg Vorbis file in the item's chunk area. The slice
// count derives from the source size, not the encoded chunk size, so a
// highly variable bitrate source can still produce an oversized chunk; such
// chunks are reported through the warn callback.
type SizeChunker struct {
	ffmpegPath string
	store      *media.Store
	ceiling    int64
	warn       WarnFunc

	cmd   commandRunner
	files fileStatter
}

// SizeChunkerOption configures a SizeChunker.
type SizeChunkerOption func(*SizeChunker)

// WithCeiling sets the maximum upload size in bytes.
func WithCeiling(bytes int64) SizeChunkerOption {
	return func(sc *SizeChunker) { sc.ceiling = bytes }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) SizeChunkerOption {
	return func(sc *SizeChunker) { sc.cmd = r }
}

// WithFileStatter sets the file statter (for testing).
func WithFileStatter(s fileStatter) SizeChunkerOption {
	return func(sc *SizeChunker) { sc.files = s }
}

// WithWarnFunc sets the warning callback. Pass nil to suppress warnings.
func WithWarnFunc(fn WarnFunc) SizeChunkerOption {
	return func(sc *SizeChunker) { sc.warn = fn }
}

// NewSizeChunker creates a SizeChunker that exports chunks into store.
func NewSizeChunker(ffmpegPath string, store *media.Store, opts ...SizeChunkerOption) (*SizeChunker, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}
	if store == nil {
		return nil, fmt.Errorf("media store cannot be nil")
	}
	sc := &SizeChunker{
		ffmpegPath: ffmpegPath,
		store:      store,
		ceiling:    DefaultCeiling,
		warn:       defaultWarnFunc,
		cmd:        osCommandRunner{},
		files:      osFileStatter{},
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.ceiling <= 0 {
		return nil, fmt.Errorf("ceiling must be positive, got %d", sc.ceiling)
	}
	return sc, nil
}

// ChunkCount returns how many slices a source of size bytes needs:
// 1 below the ceiling, ceil(size/ceiling) otherwise.
func ChunkCount(size, ceiling int64) int {
	if size < ceiling || ceiling <= 0 {
		return 1
	}
	return int((size + ceiling - 1) / ceiling)
}

// PlanChunks returns the ordered chunk plan for audioPath, owned by itemID.
//
// Stale chunk files from a prior attempt are removed first. On error no
// chunk files are left in place. Offsets are contiguous: chunk i ends where
// chunk i+1 starts, and the last chunk ends at the source duration.
func (sc *SizeChunker) PlanChunks(ctx context.Context, itemID, audioPath string) ([]Chunk, error) {
	if _, err := sc.store.Purge(itemID, media.StageChunk); err != nil {
		return nil, fmt.Errorf("cannot clear stale chunks: %w", err)
	}

	info, err := sc.files.Stat(audioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", audioPath, media.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrSplit, err)
	}

	total, err := probeDuration(ctx, sc.cmd, sc.ffmpegPath, audioPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrSplit, err)
	}

	count := ChunkCount(info.Size(), sc.ceiling)
	if count == 1 {
		return []Chunk{{Path: audioPath, Index: 0, StartTime: 0, EndTime: total, Identity: true}}, nil
	}

	chunks, err := sc.export(ctx, itemID, audioPath, sliceBounds(total, count))
	if err != nil {
		_, _ = sc.store.Purge(itemID, media.StageChunk) // no partial set survives
		return nil, err
	}
	return chunks, nil
}

// sliceBounds cuts total into count equal slices at millisecond resolution.
// It returns count+1 boundaries; the last is exactly total.
func sliceBounds(total time.Duration, count int) []time.Duration {
	totalMs := total.Milliseconds()
	sliceMs := totalMs / int64(count)
	bounds := make([]time.Duration, count+1)
	for i := range count {
		bounds[i] = time.Duration(int64(i)*sliceMs) * time.Millisecond
	}
	bounds[count] = total
	return bounds
}

func (sc *SizeChunker) export(ctx context.Context, itemID, audioPath string, bounds []time.Duration) ([]Chunk, error) {
	chunks := make([]Chunk, 0, len(bounds)-1)
	for i := range len(bounds) - 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := sc.store.ChunkPath(itemID, i)
		if err != nil {
			return nil, err
		}
		start, end := bounds[i], bounds[i+1]
		if err := runExtract(ctx, sc.cmd, sc.ffmpegPath, audioPath, path, start, end, chunkEncodingArgs()); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: chunk %d of %s: %w", ErrSplit, i, itemID, err)
		}

		if info, err := sc.files.Stat(path); err == nil && info.Size() > sc.ceiling && sc.warn != nil {
			sc.warn(fmt.Sprintf("Warning: chunk %d of %s is %s, above the %s upload limit",
				i, itemID, format.Size(info.Size()), format.Size(sc.ceiling)))
		}

		chunks = append(chunks, Chunk{Path: path, Index: i, StartTime: start, EndTime: end})
	}
	return chunks, nil
}

// chunkEncodingArgs returns the FFmpeg arguments for chunk export.
// Re-encoding to Ogg Vorbis keeps chunks valid even from truncated sources
// and shrinks them well below the raw bitrate.
func chunkEncodingArgs() []string {
	return []string{
		"-c:a", "libvorbis",
		"-q:a", "3",
		"-f", "ogg",
	}
}

// runExtract exports [start, end) of src to dst with the given encoding.
func runExtract(ctx context.Context, cmd commandRunner, ffmpegPath, src, dst string, start, end time.Duration, encoding []string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-i", src,
		"-ss", formatFFmpegTime(start),
		"-to", formatFFmpegTime(end),
		"-vn",
	}
	args = append(args, encoding...)
	args = append(args, dst)

	output, err := cmd.CombinedOutput(ctx, ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, lastLine(output))
	}
	return nil
}
