package transcript

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alnah/go-ytclips/internal/media"
)

// Column names of the persisted table, in write order.
const (
	ColItemID    = "video_id"
	ColSource    = "source_path"
	ColStart     = "start_time_seconds"
	ColEnd       = "end_time_seconds"
	ColDuration  = "duration_seconds"
	ColText      = "text"
	ColLanguage  = "language"
	ColTimestamp = "timestamp"
	ColAudioFile = "audio_file"

	// Older tables used these names for the time columns.
	legacyColStart = "start_time"
	legacyColEnd   = "end_time"
)

var baseHeader = []string{ColItemID, ColSource, ColStart, ColEnd, ColDuration, ColText, ColLanguage, ColTimestamp}

// Store reads and writes one transcript table per item under a media.Store.
type Store struct {
	media *media.Store
}

// NewStore creates a transcript Store backed by m.
func NewStore(m *media.Store) *Store {
	return &Store{media: m}
}

// Exists reports whether a non-empty transcript table is present for itemID.
func (s *Store) Exists(itemID string) bool {
	if media.ValidateID(itemID) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.media.ItemDir(itemID), media.TranscriptName(itemID)))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Path returns the transcript table path for itemID.
func (s *Store) Path(itemID string) (string, error) {
	return s.media.TranscriptPath(itemID)
}

// Save replaces the item's table with t. The write goes to a temporary file
// that is renamed into place, so readers see either the old or the new table.
// The audio_file column is written only when some row has a clip.
func (s *Store) Save(t *Transcript) error {
	path, err := s.media.TranscriptPath(t.ItemID)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+t.ItemID+"-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("cannot create transcript: %w", err)
	}
	tmp := f.Name()

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if err := Write(f, t); err != nil {
			return err
		}
		return f.Sync()
	}()
	if writeErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot write transcript: %w", writeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot replace transcript: %w", err)
	}
	return nil
}

// Load reads the item's table. A missing table returns media.ErrNotFound.
func (s *Store) Load(itemID string) (*Transcript, error) {
	path, err := s.media.TranscriptPath(itemID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) // #nosec G304 -- path derived from a validated item id
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("transcript for %s: %w", itemID, media.ErrNotFound)
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.ItemID == "" {
		t.ItemID = itemID
	}
	return t, nil
}

// Remove deletes the item's table. A missing table is not an error.
func (s *Store) Remove(itemID string) error {
	path, err := s.media.TranscriptPath(itemID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Write encodes t as CSV with a header row.
func Write(w io.Writer, t *Transcript) error {
	header := baseHeader
	withAudio := t.HasAudio()
	if withAudio {
		header = append(append([]string{}, baseHeader...), ColAudioFile)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, seg := range t.Segments {
		lang := seg.Language
		if lang == "" {
			lang = t.Language
		}
		id := seg.ItemID
		if id == "" {
			id = t.ItemID
		}
		row := []string{
			id,
			seg.SourcePath,
			seg.Start.String(),
			seg.End.String(),
			seg.Duration().String(),
			seg.Text,
			lang,
			formatTimestamp(seg.Timestamp),
		}
		if withAudio {
			row = append(row, seg.AudioFile)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a CSV table. Columns are matched by header name, so extra
// columns are ignored and the legacy start_time/end_time names are accepted.
func Read(r io.Reader) (*Transcript, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cols := indexColumns(header)
	startCol, ok := firstColumn(cols, ColStart, legacyColStart)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s column", ErrMalformed, ColStart)
	}
	endCol, ok := firstColumn(cols, ColEnd, legacyColEnd)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s column", ErrMalformed, ColEnd)
	}

	t := &Transcript{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		cell := func(i int) string {
			if i < len(rec) {
				return rec[i]
			}
			return ""
		}

		start, err := decimal.NewFromString(strings.TrimSpace(cell(startCol)))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad start %q", ErrMalformed, line, cell(startCol))
		}
		end, err := decimal.NewFromString(strings.TrimSpace(cell(endCol)))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad end %q", ErrMalformed, line, cell(endCol))
		}

		seg := Segment{
			ItemID:     field(ColItemID),
			SourcePath: field(ColSource),
			Start:      start,
			End:        end,
			Text:       field(ColText),
			Language:   field(ColLanguage),
			Timestamp:  parseTimestamp(field(ColTimestamp)),
			AudioFile:  field(ColAudioFile),
		}
		if t.ItemID == "" {
			t.ItemID = seg.ItemID
		}
		if t.Language == "" {
			t.Language = seg.Language
		}
		t.Segments = append(t.Segments, seg)
	}
	return t, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func firstColumn(cols map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

// parseTimestamp accepts RFC 3339 and the space-separated form older tables
// used. Unparseable values become the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
