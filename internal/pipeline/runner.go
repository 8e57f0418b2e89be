package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/segment"
	"github.com/alnah/go-ytclips/internal/transcript"
)

// Downloader fetches an item's audio into the media store's raw slot.
type Downloader interface {
	Download(ctx context.Context, itemID string, onProgress func(percent float64)) (string, error)
}

// Normalizer produces the normalized artifact. *audio.Transcoder implements it.
type Normalizer interface {
	Normalize(ctx context.Context, itemID string) (string, error)
}

// TranscriptMaker produces and saves the transcript. *transcribe.Transcriber
// implements it.
type TranscriptMaker interface {
	Transcribe(ctx context.Context, itemID string) (*transcript.Transcript, error)
}

// Splitter cuts segment clips. *segment.Segmenter implements it.
type Splitter interface {
	Split(ctx context.Context, itemID string, t *transcript.Transcript) (segment.SplitResult, error)
}

// DownloadRecorder fingerprints a fresh download. *catalog.Store implements it.
type DownloadRecorder interface {
	RecordDownload(ctx context.Context, itemID string) (catalog.Download, error)
}

// Steps holds the collaborator for each stage. A nil step makes its stage
// fail when it has work to do.
type Steps struct {
	Download   Downloader
	Convert    Normalizer
	Transcribe TranscriptMaker
	Split      Splitter
}

// EventKind classifies a progress Event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventSkipped
	EventDone
	EventFailed
	EventWarning
)

// Event is one progress notification from a run.
type Event struct {
	ItemID  string
	Stage   Stage
	Kind    EventKind
	Percent float64 // EventProgress only
	Done    int     // EventProgress: parts finished, when counted in parts
	Total   int
	Detail  string // EventDone: human summary; EventWarning: message
	Err     error  // EventFailed only
}

// ObserverFunc receives run events. Calls are serialized.
type ObserverFunc func(Event)

// WarnFunc is a callback for non-fatal warnings.
type WarnFunc func(msg string)

// Options selects what one run does.
type Options struct {
	From  Stage // first stage to consider
	Force bool  // invalidate From and everything after it first
}

// Runner executes stages for items, skipping any stage whose output exists.
type Runner struct {
	media       *media.Store
	transcripts *transcript.Store
	steps       Steps
	registry    *Registry
	recorder    DownloadRecorder
	stop        func() bool
	warn        WarnFunc

	obsMu    sync.Mutex
	observer ObserverFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRegistry shares a job registry across runners.
func WithRegistry(r *Registry) RunnerOption {
	return func(rn *Runner) { rn.registry = r }
}

// WithObserver sets the event callback.
func WithObserver(fn ObserverFunc) RunnerOption {
	return func(rn *Runner) { rn.observer = fn }
}

// WithStopCheck sets the function polled before each stage. Once it reports
// true no further stage starts and the run returns ErrStopped.
func WithStopCheck(fn func() bool) RunnerOption {
	return func(rn *Runner) { rn.stop = fn }
}

// WithRecorder records finished downloads, e.g. in the catalog.
func WithRecorder(rec DownloadRecorder) RunnerOption {
	return func(rn *Runner) { rn.recorder = rec }
}

// WithWarnFunc sets the warning callback. Pass nil to suppress warnings.
func WithWarnFunc(fn WarnFunc) RunnerOption {
	return func(rn *Runner) { rn.warn = fn }
}

// NewRunner creates a Runner.
func NewRunner(m *media.Store, ts *transcript.Store, steps Steps, opts ...RunnerOption) *Runner {
	rn := &Runner{
		media:       m,
		transcripts: ts,
		steps:       steps,
		registry:    NewRegistry(),
		stop:        func() bool { return false },
		warn:        func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	}
	for _, opt := range opts {
		opt(rn)
	}
	return rn
}

// Registry returns the runner's job registry.
func (rn *Runner) Registry() *Registry {
	return rn.registry
}

// Status returns the derived status of itemID.
func (rn *Runner) Status(itemID string) Status {
	return ComputeStatus(rn.media, rn.transcripts, itemID)
}

// Run executes the stages of itemID from opts.From through split, in order.
// Stages are never started speculatively: each one starts only after the
// previous one returned.
func (rn *Runner) Run(ctx context.Context, itemID string, opts Options) error {
	release, err := rn.acquire(itemID, opts)
	if err != nil {
		return err
	}
	defer release()

	for _, stage := range Stages {
		if stage < opts.From {
			continue
		}
		if err := rn.checkpoint(ctx); err != nil {
			return err
		}
		if err := rn.runStage(ctx, itemID, stage); err != nil {
			return err
		}
	}
	return nil
}

// RunStage executes a single stage of itemID. With force, the stage and
// everything after it are invalidated first.
func (rn *Runner) RunStage(ctx context.Context, itemID string, stage Stage, force bool) error {
	release, err := rn.acquire(itemID, Options{From: stage, Force: force})
	if err != nil {
		return err
	}
	defer release()

	if err := rn.checkpoint(ctx); err != nil {
		return err
	}
	return rn.runStage(ctx, itemID, stage)
}

// RunAll runs distinct items with at most parallel runs at once. A failing
// item does not stop the others. Duplicate ids run once.
func (rn *Runner) RunAll(ctx context.Context, itemIDs []string, opts Options, parallel int) error {
	if parallel < 1 {
		parallel = 1
	}
	ids := slices.Clone(itemIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = rn.Run(ctx, id, opts)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (rn *Runner) acquire(itemID string, opts Options) (func(), error) {
	if err := media.ValidateID(itemID); err != nil {
		return nil, err
	}
	release, err := rn.registry.TryAcquire(itemID)
	if err != nil {
		return nil, err
	}
	if opts.Force {
		if err := InvalidateDownstream(rn.media, rn.transcripts, itemID, opts.From); err != nil {
			release()
			return nil, &StageError{ItemID: itemID, Stage: opts.From, Err: err}
		}
	}
	return release, nil
}

func (rn *Runner) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rn.stop() {
		return ErrStopped
	}
	return nil
}

func (rn *Runner) runStage(ctx context.Context, itemID string, stage Stage) error {
	if stageDone(rn.media, rn.transcripts, itemID, stage) {
		rn.emit(Event{ItemID: itemID, Stage: stage, Kind: EventSkipped})
		return nil
	}

	jobID, err := rn.registry.Begin(itemID, stage)
	if err != nil {
		return err
	}
	rn.emit(Event{ItemID: itemID, Stage: stage, Kind: EventStarted})

	detail, err := rn.execute(ctx, itemID, stage)
	rn.registry.End(jobID, err)
	if err != nil {
		rn.emit(Event{ItemID: itemID, Stage: stage, Kind: EventFailed, Err: err})
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		return &StageError{ItemID: itemID, Stage: stage, Err: err}
	}
	rn.emit(Event{ItemID: itemID, Stage: stage, Kind: EventDone, Detail: detail})
	return nil
}

func (rn *Runner) execute(ctx context.Context, itemID string, stage Stage) (string, error) {
	switch stage {
	case StageDownload:
		if rn.steps.Download == nil {
			return "", errors.New("no downloader configured")
		}
		path, err := rn.steps.Download.Download(ctx, itemID, func(pct float64) {
			rn.emit(Event{ItemID: itemID, Stage: stage, Kind: EventProgress, Percent: pct})
		})
		if err != nil {
			return "", err
		}
		if rn.recorder != nil {
			if _, err := rn.recorder.RecordDownload(ctx, itemID); err != nil && rn.warn != nil {
				rn.warn(fmt.Sprintf("Warning: cannot record download of %s: %v", itemID, err))
			}
		}
		rel, _ := rn.media.RelPath(itemID, path)
		return rel, nil

	case StageConvert:
		if rn.steps.Convert == nil {
			return "", errors.New("no transcoder configured")
		}
		path, err := rn.steps.Convert.Normalize(ctx, itemID)
		if err != nil {
			return "", err
		}
		rel, _ := rn.media.RelPath(itemID, path)
		return rel, nil

	case StageTranscribe:
		if rn.steps.Transcribe == nil {
			return "", errors.New("no transcriber configured")
		}
		t, err := rn.steps.Transcribe.Transcribe(ctx, itemID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d segments", t.Len()), nil

	case StageSplit:
		if rn.steps.Split == nil {
			return "", errors.New("no segmenter configured")
		}
		res, err := rn.steps.Split.Split(ctx, itemID, nil)
		if err != nil {
			return "", err
		}
		if len(res.Dropped) > 0 {
			return fmt.Sprintf("%d clips, %d rows dropped", res.Count, len(res.Dropped)), nil
		}
		return fmt.Sprintf("%d clips", res.Count), nil

	default:
		return "", fmt.Errorf("unknown stage %v", stage)
	}
}

func (rn *Runner) emit(e Event) {
	if rn.observer == nil {
		return
	}
	rn.obsMu.Lock()
	defer rn.obsMu.Unlock()
	rn.observer(e)
}
