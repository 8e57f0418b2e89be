package cli

import (
	"context"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/format"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/pipeline"
	"github.com/alnah/go-ytclips/internal/segment"
)

// StatusCmd creates the status command.
func StatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]...",
		Short: "Show how far items have progressed",
		Long: `Show the furthest stage each item has reached, computed from the files on
disk: UNKNOWN, DOWNLOADED, NORMALIZED, TRANSCRIBED or SEGMENTED.

Without ids every item in the catalog or on disk is listed.`,
		Example: `  ytclips status
  ytclips status abc123 def456`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), env, args)
		},
	}
}

// SegmentsCmd creates the segments command.
func SegmentsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "segments <id>",
		Short: "List the clips of a split item",
		Long: `List the transcript rows of an item whose clip file is present, with the
clip path relative to the item directory.`,
		Example: `  ytclips segments abc123`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegments(env, args[0])
		},
	}
}

func runStatus(ctx context.Context, env *Env, ids []string) (err error) {
	for _, id := range ids {
		if err := media.ValidateID(id); err != nil {
			return err
		}
	}

	a, err := openApp(env)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	items, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}
	titles := make(map[string]string, len(items))
	for _, it := range items {
		titles[it.ID] = it.Title
	}

	if len(ids) == 0 {
		onDisk, err := a.media.Items()
		if err != nil {
			return err
		}
		ids = knownIDs(items, onDisk)
		if len(ids) == 0 {
			_, _ = fmt.Fprintln(env.Stderr, "No items yet. Find some with: ytclips search")
			return nil
		}
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, id := range ids {
		st := pipeline.ComputeStatus(a.media, a.transcripts, id)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", id, st, dash(titles[id]))
	}
	return tw.Flush()
}

// knownIDs merges catalog order with items only present on disk, which are
// appended sorted.
func knownIDs(items []catalog.Item, onDisk []string) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items)+len(onDisk))
	for _, it := range items {
		seen[it.ID] = true
		ids = append(ids, it.ID)
	}
	extra := slices.Clone(onDisk)
	slices.Sort(extra)
	for _, id := range extra {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func runSegments(env *Env, id string) (err error) {
	if err := media.ValidateID(id); err != nil {
		return err
	}

	a, err := openApp(env)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	// Listing never cuts, so no cutter is needed.
	rows, err := segment.New(nil, a.media, a.transcripts).GetSegments(id)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintf(env.Stderr, "%s has no clips yet. Create them with: ytclips split %s\n", id, id)
		return nil
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "START\tEND\tFILE\tTEXT")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			format.Clock(r.Start.IntPart()), format.Clock(r.End.IntPart()), r.AudioFile, r.Text)
	}
	return tw.Flush()
}
