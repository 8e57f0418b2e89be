// Package pipeline derives each item's progress from the artifacts on disk
// and drives the download, convert, transcribe and split stages in order.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/transcript"
)

// Stage is one step of the per-item pipeline.
type Stage int

const (
	StageDownload Stage = iota
	StageConvert
	StageTranscribe
	StageSplit
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageDownload, StageConvert, StageTranscribe, StageSplit}

func (s Stage) String() string {
	switch s {
	case StageDownload:
		return "download"
	case StageConvert:
		return "convert"
	case StageTranscribe:
		return "transcribe"
	case StageSplit:
		return "split"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ParseStage parses a stage name as printed by Stage.String.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if strings.EqualFold(strings.TrimSpace(s), st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q (expected download, convert, transcribe or split)", s)
}

// Status is the furthest point an item has reached.
type Status int

const (
	StatusUnknown Status = iota
	StatusDownloaded
	StatusNormalized
	StatusTranscribed
	StatusSegmented
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusDownloaded:
		return "DOWNLOADED"
	case StatusNormalized:
		return "NORMALIZED"
	case StatusTranscribed:
		return "TRANSCRIBED"
	case StatusSegmented:
		return "SEGMENTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Done reports whether status means stage has its output on disk.
func (s Status) Done(stage Stage) bool {
	return s > Status(stage)
}

// ComputeStatus returns the furthest stage whose output exists for itemID.
// Later artifacts win: an item whose raw file was removed after splitting is
// still SEGMENTED.
func ComputeStatus(m *media.Store, ts *transcript.Store, itemID string) Status {
	switch {
	case m.Exists(itemID, media.StageSegment) && ts.Exists(itemID):
		return StatusSegmented
	case ts.Exists(itemID):
		return StatusTranscribed
	case m.Exists(itemID, media.StageNormalized):
		return StatusNormalized
	case m.Exists(itemID, media.StageRaw):
		return StatusDownloaded
	default:
		return StatusUnknown
	}
}

// stageDone reports whether one stage's own output is present, independent of
// the others.
func stageDone(m *media.Store, ts *transcript.Store, itemID string, stage Stage) bool {
	switch stage {
	case StageDownload:
		return m.Exists(itemID, media.StageRaw)
	case StageConvert:
		return m.Exists(itemID, media.StageNormalized)
	case StageTranscribe:
		return ts.Exists(itemID)
	case StageSplit:
		return m.Exists(itemID, media.StageSegment)
	default:
		return false
	}
}

// InvalidateDownstream removes the outputs of from and of every later stage,
// so the next run redoes them in order. Stages before from are untouched.
//
// Invalidating split also strips the audio_file links from the transcript.
func InvalidateDownstream(m *media.Store, ts *transcript.Store, itemID string, from Stage) error {
	if err := media.ValidateID(itemID); err != nil {
		return err
	}

	var errs []error
	purge := func(stage media.Stage) {
		if _, err := m.Purge(itemID, stage); err != nil {
			errs = append(errs, err)
		}
	}

	if from <= StageSplit {
		purge(media.StageSegment)
	}
	if from <= StageTranscribe {
		purge(media.StageChunk)
		if err := ts.Remove(itemID); err != nil {
			errs = append(errs, err)
		}
	} else if ts.Exists(itemID) {
		if err := unlinkClips(ts, itemID); err != nil {
			errs = append(errs, err)
		}
	}
	if from <= StageConvert {
		purge(media.StageNormalized)
	}
	if from <= StageDownload {
		purge(media.StageRaw)
	}
	return errors.Join(errs...)
}

func unlinkClips(ts *transcript.Store, itemID string) error {
	t, err := ts.Load(itemID)
	if err != nil {
		return err
	}
	if !t.HasAudio() {
		return nil
	}
	for i := range t.Segments {
		t.Segments[i].AudioFile = ""
	}
	return ts.Save(t)
}
