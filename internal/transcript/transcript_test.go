package transcript_test

// Notes:
// - Seconds are decimals; fixtures use decimal.RequireFromString so the
//   expected values are exact.
// - Store tests run against a media.Store rooted in t.TempDir().

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/transcript"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seg(start, end, text string) transcript.Segment {
	return transcript.Segment{Start: dec(start), End: dec(end), Text: text}
}

// ---------------------------------------------------------------------------
// Segment arithmetic
// ---------------------------------------------------------------------------

func TestSegment_Shift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		seg       transcript.Segment
		offsetMs  int64
		wantStart string
		wantEnd   string
	}{
		{"no offset", seg("0", "5", "hi"), 0, "0", "5"},
		{"whole seconds", seg("0", "4", "there"), 10000, "10", "14"},
		{"fractional", seg("0.1", "0.2", "x"), 20000, "20.1", "20.2"},
		{"sub-second offset", seg("1.25", "2", "y"), 1500, "2.75", "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.seg.Shift(tt.offsetMs)
			if !got.Start.Equal(dec(tt.wantStart)) || !got.End.Equal(dec(tt.wantEnd)) {
				t.Errorf("Shift(%d) = %s-%s, want %s-%s", tt.offsetMs, got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
			if !got.Duration().Equal(tt.seg.Duration()) {
				t.Errorf("Shift changed duration: %s != %s", got.Duration(), tt.seg.Duration())
			}
		})
	}
}

func TestSegment_Milliseconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		start, end string
		wantStart  int64
		wantEnd    int64
	}{
		{"0", "2.5", 0, 2500},
		{"1.0004", "1.0005", 1000, 1001},
		{"12.3456", "13.9999", 12346, 14000},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			t.Parallel()
			s := seg(tt.start, tt.end, "")
			if s.StartMs() != tt.wantStart || s.EndMs() != tt.wantEnd {
				t.Errorf("ms = %d-%d, want %d-%d", s.StartMs(), s.EndMs(), tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestTranscript_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		segs    []transcript.Segment
		wantErr bool
	}{
		{"empty", nil, false},
		{"ordered", []transcript.Segment{seg("0", "2.5", "a"), seg("2.5", "2.5", "b")}, false},
		{"equal starts", []transcript.Segment{seg("1", "2", "a"), seg("1", "3", "b")}, false},
		{"negative duration", []transcript.Segment{seg("3", "2", "a")}, true},
		{"out of order", []transcript.Segment{seg("5", "6", "a"), seg("1", "2", "b")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := &transcript.Transcript{ItemID: "x", Segments: tt.segs}
			err := tr.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, transcript.ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestTranscript_FullText(t *testing.T) {
	t.Parallel()

	tr := &transcript.Transcript{Segments: []transcript.Segment{seg("0", "1", " hi "), seg("1", "2", ""), seg("2", "3", "there")}}
	if got := tr.FullText(); got != "hi there" {
		t.Errorf("FullText() = %q, want %q", got, "hi there")
	}
	tr.Text = "engine blob"
	if got := tr.FullText(); got != "engine blob" {
		t.Errorf("FullText() = %q, want engine blob", got)
	}
}

// ---------------------------------------------------------------------------
// Write / Read - CSV layout
// ---------------------------------------------------------------------------

func TestWrite_Header(t *testing.T) {
	t.Parallel()

	tr := &transcript.Transcript{ItemID: "abc", Language: "id", Segments: []transcript.Segment{seg("0", "2.5", "halo")}}

	var buf bytes.Buffer
	if err := transcript.Write(&buf, tr); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantHeader := "video_id,source_path,start_time_seconds,end_time_seconds,duration_seconds,text,language,timestamp"
	if lines[0] != wantHeader {
		t.Errorf("header = %q, want %q", lines[0], wantHeader)
	}
	if lines[1] != "abc,,0,2.5,2.5,halo,id," {
		t.Errorf("row = %q", lines[1])
	}

	tr.Segments[0].AudioFile = "split/abc_segment_000.wav"
	buf.Reset()
	if err := transcript.Write(&buf, tr); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), wantHeader+",audio_file\n") {
		t.Errorf("header with clips = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
}

func TestRead_LegacyHeader(t *testing.T) {
	t.Parallel()

	in := "video_id,start_time,end_time,text,language,timestamp\n" +
		"abc,0.0,2.5,\"hello, world\",id,2024-03-01 10:00:00.123456\n"

	tr, err := transcript.Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tr.ItemID != "abc" || tr.Language != "id" || tr.Len() != 1 {
		t.Fatalf("Read() = %+v", tr)
	}
	s := tr.Segments[0]
	if !s.End.Equal(dec("2.5")) || s.Text != "hello, world" {
		t.Errorf("segment = %+v", s)
	}
	if s.Timestamp.IsZero() {
		t.Error("legacy timestamp not parsed")
	}

	var buf bytes.Buffer
	if err := transcript.Write(&buf, tr); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "start_time_seconds") {
		t.Error("rewrite did not upgrade to the current header")
	}
}

func TestRead_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no time columns", "video_id,text\nabc,hi\n"},
		{"bad number", "start_time_seconds,end_time_seconds\nzero,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := transcript.Read(strings.NewReader(tt.in)); !errors.Is(err, transcript.ErrMalformed) {
				t.Errorf("Read() error = %v, want ErrMalformed", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Store - atomic save, load, overwrite
// ---------------------------------------------------------------------------

func newStore(t *testing.T) (*transcript.Store, *media.Store) {
	t.Helper()
	m, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("media.NewStore() error = %v", err)
	}
	return transcript.NewStore(m), m
}

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	s, m := newStore(t)
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	in := &transcript.Transcript{
		ItemID:   "abc123",
		Language: "id",
		Segments: []transcript.Segment{
			{ItemID: "abc123", Start: dec("0"), End: dec("5"), Text: "hi", Timestamp: ts},
			{ItemID: "abc123", Start: dec("10"), End: dec("14"), Text: "there", Timestamp: ts},
		},
	}

	if s.Exists("abc123") {
		t.Fatal("Exists() = true before Save()")
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists("abc123") {
		t.Error("Exists() = false after Save()")
	}

	out, err := s.Load("abc123")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Len() != 2 || out.Segments[1].Text != "there" || !out.Segments[1].Start.Equal(dec("10")) {
		t.Errorf("Load() = %+v", out.Segments)
	}
	if !out.Segments[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", out.Segments[0].Timestamp, ts)
	}

	entries, _ := os.ReadDir(m.ItemDir("abc123"))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	first := &transcript.Transcript{ItemID: "abc", Segments: []transcript.Segment{seg("0", "1", "a"), seg("1", "2", "b")}}
	second := &transcript.Transcript{ItemID: "abc", Segments: []transcript.Segment{seg("0", "3", "c")}}

	if err := s.Save(first); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(second); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load("abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 1 || got.Segments[0].Text != "c" {
		t.Errorf("Load() after overwrite = %+v", got.Segments)
	}
}

func TestStore_SaveInvalidKeepsPrevious(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	good := &transcript.Transcript{ItemID: "abc", Segments: []transcript.Segment{seg("0", "1", "a")}}
	bad := &transcript.Transcript{ItemID: "abc", Segments: []transcript.Segment{seg("2", "1", "oops")}}

	if err := s.Save(good); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(bad); !errors.Is(err, transcript.ErrInvalid) {
		t.Fatalf("Save(bad) error = %v, want ErrInvalid", err)
	}
	got, _ := s.Load("abc")
	if got.Len() != 1 || got.Segments[0].Text != "a" {
		t.Errorf("previous table not preserved: %+v", got.Segments)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	if _, err := s.Load("nothing"); !errors.Is(err, media.ErrNotFound) {
		t.Errorf("Load() error = %v, want media.ErrNotFound", err)
	}
	if err := s.Remove("nothing"); err != nil {
		t.Errorf("Remove() of missing table error = %v", err)
	}
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	s, m := newStore(t)
	if err := s.Save(&transcript.Transcript{ItemID: "abc", Segments: []transcript.Segment{seg("0", "1", "a")}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("abc"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.ItemDir("abc"), media.TranscriptName("abc"))); !os.IsNotExist(err) {
		t.Error("table still present after Remove()")
	}
}
