// Package segment cuts an item's normalized audio into one clip per
// transcript row and links each clip back into the transcript table.
package segment

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/transcript"
)

// Reasons a row can be dropped.
const (
	ReasonEmptyRange   = "empty time range"
	ReasonExportFailed = "export failed"
)

// ClipCutter exports a time range of an audio file. *audio.Cutter implements it.
type ClipCutter interface {
	Cut(ctx context.Context, src, dst string, start, end time.Duration, f audio.Format) error
}

var _ ClipCutter = (*audio.Cutter)(nil)

// WarnFunc is a callback for non-fatal warnings.
type WarnFunc func(msg string)

func defaultWarnFunc(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// ProgressFunc receives clip progress: done of total rows processed.
type ProgressFunc func(done, total int)

// Dropped describes a transcript row that produced no clip.
type Dropped struct {
	Index  int
	Text   string
	Reason string
	Err    error
}

// SplitResult summarizes one Split run.
type SplitResult struct {
	Count   int // Clips exported.
	Dropped []Dropped
	Format  audio.Format
}

// Segmenter turns transcript rows into clip files.
type Segmenter struct {
	cutter      ClipCutter
	media       *media.Store
	transcripts *transcript.Store
	format      audio.Format
	warn        WarnFunc
	progress    ProgressFunc
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithFormat sets the clip encoding. The zero value keeps audio.DefaultFormat.
func WithFormat(f audio.Format) Option {
	return func(s *Segmenter) {
		if f != "" {
			s.format = f
		}
	}
}

// WithWarnFunc sets the warning callback. Pass nil to suppress warnings.
func WithWarnFunc(fn WarnFunc) Option {
	return func(s *Segmenter) { s.warn = fn }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Segmenter) { s.progress = fn }
}

// New creates a Segmenter.
func New(cutter ClipCutter, m *media.Store, ts *transcript.Store, opts ...Option) *Segmenter {
	s := &Segmenter{
		cutter:      cutter,
		media:       m,
		transcripts: ts,
		format:      audio.DefaultFormat,
		warn:        defaultWarnFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split exports row i of t to the canonical segment i path of itemID and
// rewrites the transcript so every surviving row carries its audio_file.
// When t is nil the saved transcript is loaded.
//
// Existing clips of every format are purged first. A row whose range rounds
// to zero milliseconds, or whose export fails, is dropped from the rewritten
// table and reported in SplitResult.Dropped. Zero exported clips returns
// ErrNoValidSplits and leaves the transcript untouched.
func (s *Segmenter) Split(ctx context.Context, itemID string, t *transcript.Transcript) (SplitResult, error) {
	src, err := s.media.Stat(itemID, media.StageNormalized)
	if err != nil {
		return SplitResult{}, err
	}
	if t == nil {
		if t, err = s.transcripts.Load(itemID); err != nil {
			return SplitResult{}, err
		}
	}
	if _, err := s.media.Purge(itemID, media.StageSegment); err != nil {
		return SplitResult{}, fmt.Errorf("cannot clear previous segments: %w", err)
	}

	result := SplitResult{Format: s.format}
	kept := make([]transcript.Segment, 0, t.Len())

	for i, row := range t.Segments {
		if err := ctx.Err(); err != nil {
			_, _ = s.media.Purge(itemID, media.StageSegment) // clips without a table row are orphans
			return SplitResult{}, err
		}

		rel, err := s.export(ctx, itemID, src, i, row)
		if err != nil {
			if ctx.Err() != nil {
				_, _ = s.media.Purge(itemID, media.StageSegment)
				return SplitResult{}, ctx.Err()
			}
			d := Dropped{Index: i, Text: row.Text, Reason: ReasonExportFailed, Err: err}
			if row.EndMs() <= row.StartMs() {
				d.Reason = ReasonEmptyRange
			}
			result.Dropped = append(result.Dropped, d)
			if s.warn != nil {
				s.warn(fmt.Sprintf("Warning: segment %d of %s dropped (%s): %q", i, itemID, d.Reason, row.Text))
			}
		} else {
			row.AudioFile = rel
			kept = append(kept, row)
			result.Count++
		}

		if s.progress != nil {
			s.progress(i+1, t.Len())
		}
	}

	if result.Count == 0 {
		return result, fmt.Errorf("%s: %w", itemID, ErrNoValidSplits)
	}

	rewritten := &transcript.Transcript{ItemID: itemID, Language: t.Language, Segments: kept, Text: t.Text}
	if err := s.transcripts.Save(rewritten); err != nil {
		return result, fmt.Errorf("cannot rewrite transcript: %w", err)
	}
	return result, nil
}

// export cuts one row and returns the clip path relative to the item directory.
func (s *Segmenter) export(ctx context.Context, itemID, src string, index int, row transcript.Segment) (string, error) {
	startMs, endMs := row.StartMs(), row.EndMs()
	if endMs <= startMs {
		return "", fmt.Errorf("%w: row %d spans %dms-%dms", audio.ErrSplit, index, startMs, endMs)
	}
	dst, err := s.media.SegmentPath(itemID, index, s.format.Ext())
	if err != nil {
		return "", err
	}
	start := time.Duration(startMs) * time.Millisecond
	end := time.Duration(endMs) * time.Millisecond
	if err := s.cutter.Cut(ctx, src, dst, start, end, s.format); err != nil {
		_ = os.Remove(dst) // a half-written clip must not count as present
		return "", err
	}
	return s.media.RelPath(itemID, dst)
}

// GetSegments returns the saved rows of itemID whose clip is still on disk,
// in table order.
func (s *Segmenter) GetSegments(itemID string) ([]transcript.Segment, error) {
	t, err := s.transcripts.Load(itemID)
	if err != nil {
		return nil, err
	}
	var out []transcript.Segment
	for _, row := range t.Segments {
		if row.AudioFile == "" {
			continue
		}
		info, err := os.Stat(s.media.Resolve(itemID, row.AudioFile))
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
