package media

import "fmt"

// Stage identifies which pipeline output an artifact belongs to.
type Stage int

const (
	// StageRaw is the downloaded audio, as produced by the download service.
	StageRaw Stage = iota
	// StageNormalized is the raw audio re-encoded to the intermediate codec.
	StageNormalized
	// StageChunk is a transient sub-clip used only during transcription.
	StageChunk
	// StageSegment is a transcript-aligned clip, one per transcript row.
	StageSegment
)

// String returns the stage name used in paths, logs and error messages.
func (s Stage) String() string {
	switch s {
	case StageRaw:
		return "raw"
	case StageNormalized:
		return "normalized"
	case StageChunk:
		return "chunk"
	case StageSegment:
		return "segment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// File extensions for each artifact kind.
const (
	RawExt        = ".mp3"
	NormalizedExt = ".ogg"
	ChunkExt      = ".ogg"
)

// SegmentExts lists every extension a segment clip may have been exported with.
// Purging segments removes all of them so a format switch leaves no orphans.
var SegmentExts = []string{".wav", ".mp3", ".ogg"}

// ValidSegmentExt reports whether ext (with leading dot) is a known segment format.
func ValidSegmentExt(ext string) bool {
	for _, e := range SegmentExts {
		if e == ext {
			return true
		}
	}
	return false
}
