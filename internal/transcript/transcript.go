// Package transcript defines the timed text table produced for one item and
// its on-disk CSV form.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Segment is one transcript row. Times are seconds in the item's global
// timeline, held as decimals so offset shifts never accumulate float error.
type Segment struct {
	ItemID     string
	SourcePath string
	Start      decimal.Decimal
	End        decimal.Decimal
	Text       string
	Language   string
	Timestamp  time.Time
	// AudioFile is the clip path relative to the item directory, set once the
	// segment has been exported. Empty before splitting.
	AudioFile string
}

// Duration returns End - Start.
func (s Segment) Duration() decimal.Decimal {
	return s.End.Sub(s.Start)
}

// StartMs returns the start rounded to the nearest millisecond.
func (s Segment) StartMs() int64 {
	return s.Start.Shift(3).Round(0).IntPart()
}

// EndMs returns the end rounded to the nearest millisecond.
func (s Segment) EndMs() int64 {
	return s.End.Shift(3).Round(0).IntPart()
}

// Shift returns a copy of s moved forward by offsetMs milliseconds.
func (s Segment) Shift(offsetMs int64) Segment {
	off := decimal.New(offsetMs, -3)
	s.Start = s.Start.Add(off)
	s.End = s.End.Add(off)
	return s
}

// Transcript is the ordered sequence of segments for one item.
type Transcript struct {
	ItemID   string
	Language string
	Segments []Segment
	// Text is the engine's full text, chunk blobs joined by a single space.
	// It is not persisted in the table.
	Text string
}

// Len returns the number of segments.
func (t *Transcript) Len() int {
	return len(t.Segments)
}

// HasAudio reports whether any row links to an exported clip.
func (t *Transcript) HasAudio() bool {
	for _, s := range t.Segments {
		if s.AudioFile != "" {
			return true
		}
	}
	return false
}

// Validate checks the ordering and non-negative duration of every row.
func (t *Transcript) Validate() error {
	for i, s := range t.Segments {
		if s.End.LessThan(s.Start) {
			return fmt.Errorf("%w: row %d ends before it starts (%s < %s)", ErrInvalid, i, s.End, s.Start)
		}
		if i > 0 && s.Start.LessThan(t.Segments[i-1].Start) {
			return fmt.Errorf("%w: row %d starts before row %d", ErrInvalid, i, i-1)
		}
	}
	return nil
}

// FullText joins segment texts with a single space, used when the engine
// blob is unavailable (e.g. after loading from disk).
func (t *Transcript) FullText() string {
	if t.Text != "" {
		return t.Text
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}
