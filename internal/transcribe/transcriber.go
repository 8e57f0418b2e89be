// Package transcribe drives a speech-to-text engine over the chunks of an
// item's normalized audio and assembles one globally timed transcript.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/transcript"
)

// MaxRecommendedParallel is the recommended upper limit for concurrent
// engine requests. Higher values may trigger rate limiting.
const MaxRecommendedParallel = 10

// DefaultLanguage is the transcription language when none is configured.
const DefaultLanguage = "id"

// ChunkPlanner produces the upload plan for one audio file.
// *audio.SizeChunker implements it.
type ChunkPlanner interface {
	PlanChunks(ctx context.Context, itemID, audioPath string) ([]audio.Chunk, error)
}

var _ ChunkPlanner = (*audio.SizeChunker)(nil)

// ProgressFunc receives chunk progress for itemID: done of total chunks
// transcribed. It may be called from several goroutines when transcribers
// run items concurrently.
type ProgressFunc func(itemID string, done, total int)

// Transcriber turns an item's normalized artifact into a persisted transcript.
//
// It performs no retry of its own; a failed engine call aborts the item and
// nothing is persisted. Retry policy belongs to the engine configuration.
type Transcriber struct {
	engine      Engine
	chunker     ChunkPlanner
	media       *media.Store
	transcripts *transcript.Store
	language    string
	parallel    int
	progress    ProgressFunc
	now         func() time.Time
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the ISO 639-1 language passed to the engine.
func WithLanguage(code string) Option {
	return func(t *Transcriber) {
		if code != "" {
			t.language = code
		}
	}
}

// WithParallel sets how many chunks are sent to the engine at once.
// Segment order is preserved regardless of completion order.
func WithParallel(n int) Option {
	return func(t *Transcriber) {
		if n >= 1 {
			t.parallel = n
		}
	}
}

// WithProgress sets the chunk progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(t *Transcriber) { t.progress = fn }
}

// WithClock sets the time source for row timestamps (for testing).
func WithClock(now func() time.Time) Option {
	return func(t *Transcriber) { t.now = now }
}

// New creates a Transcriber.
func New(engine Engine, chunker ChunkPlanner, m *media.Store, ts *transcript.Store, opts ...Option) *Transcriber {
	t := &Transcriber{
		engine:      engine,
		chunker:     chunker,
		media:       m,
		transcripts: ts,
		language:    DefaultLanguage,
		parallel:    1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasTranscript reports whether a transcript table exists for itemID.
func (t *Transcriber) HasTranscript(itemID string) bool {
	return t.transcripts.Exists(itemID)
}

// Transcribe transcribes the normalized artifact of itemID, saves the
// transcript (replacing any previous one) and returns it.
//
// Exported chunk files are deleted afterwards, whether or not the run
// succeeded. An identity chunk is the normalized artifact itself and is
// never deleted.
func (t *Transcriber) Transcribe(ctx context.Context, itemID string) (*transcript.Transcript, error) {
	src, err := t.media.Stat(itemID, media.StageNormalized)
	if err != nil {
		return nil, err
	}

	chunks, err := t.chunker.PlanChunks(ctx, itemID, src)
	if err != nil {
		return nil, err
	}
	defer t.cleanup(itemID, chunks)

	results, err := t.transcribeAll(ctx, itemID, chunks)
	if err != nil {
		return nil, err
	}

	sourceRel, err := t.media.RelPath(itemID, src)
	if err != nil {
		sourceRel = filepath.Base(src)
	}
	tr := assemble(itemID, t.language, sourceRel, t.now().UTC(), chunks, results)

	if err := t.transcripts.Save(tr); err != nil {
		return nil, fmt.Errorf("cannot save transcript: %w", err)
	}
	return tr, nil
}

// transcribeAll sends chunks to the engine with at most t.parallel requests
// in flight. Results are indexed like chunks. The first failure cancels the
// remaining requests.
func (t *Transcriber) transcribeAll(ctx context.Context, itemID string, chunks []audio.Chunk) ([]EngineResult, error) {
	results := make([]EngineResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.parallel)

	var (
		mu   sync.Mutex
		done int
	)
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if t.progress != nil {
			t.progress(itemID, done, len(chunks))
		}
	}

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := t.engine.Transcribe(gctx, chunk.Path, t.language)
			if err != nil {
				if !errors.Is(err, ErrEngine) && !errors.Is(err, context.Canceled) {
					err = fmt.Errorf("%w: %w", ErrEngine, err)
				}
				return fmt.Errorf("chunk %d/%d (%s): %w", chunk.Index+1, len(chunks), filepath.Base(chunk.Path), err)
			}
			results[i] = res
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return results, nil
}

// assemble shifts every engine segment by its chunk's start offset and
// concatenates in chunk order, then engine order. Nothing is re-sorted: a
// row that starts before its predecessor (the engine ran past the end of
// the previous chunk) is clamped to the predecessor's start.
func assemble(itemID, language, sourcePath string, ts time.Time, chunks []audio.Chunk, results []EngineResult) *transcript.Transcript {
	tr := &transcript.Transcript{ItemID: itemID, Language: language}
	var texts []string

	for i, res := range results {
		offsetMs := chunks[i].StartMs()
		for _, es := range res.Segments {
			seg := transcript.Segment{
				ItemID:     itemID,
				SourcePath: sourcePath,
				Start:      decimal.NewFromFloat(es.Start),
				End:        decimal.NewFromFloat(es.End),
				Text:       strings.TrimSpace(es.Text),
				Language:   language,
				Timestamp:  ts,
			}
			seg = seg.Shift(offsetMs)
			if n := len(tr.Segments); n > 0 && seg.Start.LessThan(tr.Segments[n-1].Start) {
				seg.Start = tr.Segments[n-1].Start
			}
			// Durations are never negative.
			if seg.End.LessThan(seg.Start) {
				seg.End = seg.Start
			}
			tr.Segments = append(tr.Segments, seg)
		}
		if txt := strings.TrimSpace(res.Text); txt != "" {
			texts = append(texts, txt)
		}
	}

	tr.Text = strings.Join(texts, " ")
	return tr
}

// cleanup removes exported chunk files. A single-chunk plan points at the
// source and is left alone.
func (t *Transcriber) cleanup(itemID string, chunks []audio.Chunk) {
	if len(chunks) < 2 {
		return
	}
	_, _ = t.media.Purge(itemID, media.StageChunk) // best-effort; chunks are transient
}
