package cli

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/lang"
	"github.com/alnah/go-ytclips/internal/pipeline"
)

// stageVerb names a stage in progress lines.
func stageVerb(s pipeline.Stage) string {
	switch s {
	case pipeline.StageDownload:
		return "Downloading"
	case pipeline.StageConvert:
		return "Converting"
	case pipeline.StageTranscribe:
		return "Transcribing"
	case pipeline.StageSplit:
		return "Splitting"
	default:
		return s.String()
	}
}

// progressPrinter returns an observer that writes one status line per
// event. Download progress is reported in quarter steps to keep logs short.
// language, when set, is named on the line that starts a transcription.
func progressPrinter(w io.Writer, language string) pipeline.ObserverFunc {
	quarters := make(map[string]int)
	return func(e pipeline.Event) {
		verb := stageVerb(e.Stage)
		switch e.Kind {
		case pipeline.EventStarted:
			if e.Stage == pipeline.StageTranscribe && language != "" {
				_, _ = fmt.Fprintf(w, "%s %s (%s)...\n", verb, e.ItemID, lang.DisplayName(language))
				return
			}
			_, _ = fmt.Fprintf(w, "%s %s...\n", verb, e.ItemID)
		case pipeline.EventProgress:
			if e.Total > 0 {
				if e.Total > 1 {
					_, _ = fmt.Fprintf(w, "  %s: chunk %d/%d transcribed\n", e.ItemID, e.Done, e.Total)
				}
				return
			}
			key := e.ItemID + "/" + e.Stage.String()
			if q := int(e.Percent) / 25; q > quarters[key] {
				quarters[key] = q
				_, _ = fmt.Fprintf(w, "  %s: %.0f%%\n", e.ItemID, e.Percent)
			}
		case pipeline.EventSkipped:
			_, _ = fmt.Fprintf(w, "%s %s: already done, skipping\n", verb, e.ItemID)
		case pipeline.EventDone:
			_, _ = fmt.Fprintf(w, "%s %s: done (%s)\n", verb, e.ItemID, e.Detail)
		case pipeline.EventFailed:
			_, _ = fmt.Fprintf(w, "%s %s: failed: %v\n", verb, e.ItemID, e.Err)
		case pipeline.EventWarning:
			_, _ = fmt.Fprintln(w, e.Detail)
		}
	}
}

// eventSink is the single writer of run output. Runner events, chunk
// progress and warnings from steps all pass through it, so lines from
// concurrent items never interleave.
type eventSink struct {
	mu    sync.Mutex
	print pipeline.ObserverFunc
}

func newEventSink(w io.Writer, language string) *eventSink {
	return &eventSink{print: progressPrinter(w, language)}
}

func (s *eventSink) observe(e pipeline.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.print(e)
}

func (s *eventSink) warn(msg string) {
	s.observe(pipeline.Event{Kind: pipeline.EventWarning, Detail: msg})
}

func (s *eventSink) chunkProgress(itemID string, done, total int) {
	s.observe(pipeline.Event{
		ItemID: itemID,
		Stage:  pipeline.StageTranscribe,
		Kind:   pipeline.EventProgress,
		Done:   done,
		Total:  total,
	})
}

// printItems writes catalog items as an aligned table.
func printItems(w io.Writer, items []catalog.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tPUBLISHED\tDURATION\tLICENSE\tCHANNEL\tTITLE")
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, publishedDate(it), it.Duration, dash(it.License), dash(it.Channel), it.Title)
	}
	return tw.Flush()
}

func publishedDate(it catalog.Item) string {
	if it.PublishedAt.IsZero() {
		return "-"
	}
	return it.PublishedAt.Format("2006-01-02")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
