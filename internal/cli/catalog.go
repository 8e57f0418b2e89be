package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/format"
	"github.com/alnah/go-ytclips/internal/media"
)

// CatalogCmd creates the catalog command with subcommands.
func CatalogCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the video catalog",
		Long: `Inspect and maintain the catalog of searched and downloaded videos.

The catalog lives in catalog.sqlite under the data dir. Deleting it loses
only metadata; the item tree stays intact and reconcile rebuilds the
downloads table from it.`,
		Example: `  ytclips catalog list
  ytclips catalog downloads
  ytclips catalog reconcile`,
	}

	cmd.AddCommand(catalogListCmd(env))
	cmd.AddCommand(catalogDownloadsCmd(env))
	cmd.AddCommand(catalogCompleteCmd(env))
	cmd.AddCommand(catalogReconcileCmd(env))
	cmd.AddCommand(catalogPruneCmd(env))

	return cmd
}

func catalogListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every cataloged video, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(env, func(a *app) error {
				items, err := a.catalog.List(cmd.Context())
				if err != nil {
					return err
				}
				return showItems(env, items, "The catalog is empty. Fill it with: ytclips search")
			})
		},
	}
}

func catalogCompleteCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "List cataloged videos that have clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(env, func(a *app) error {
				items, err := a.catalog.Complete(cmd.Context())
				if err != nil {
					return err
				}
				return showItems(env, items, "No cataloged video has clips yet.")
			})
		},
	}
}

func catalogDownloadsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "downloads",
		Short: "List downloaded audio with size and fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(env, func(a *app) error {
				return runCatalogDownloads(cmd.Context(), env, a)
			})
		},
	}
}

func catalogReconcileCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Record downloads found on disk",
		Long: `Fingerprint every downloaded audio file in the item tree and record it in
the downloads table. Use it after copying items in from elsewhere or after
deleting catalog.sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(env, func(a *app) error {
				n, err := a.catalog.ReconcileWithDownloads(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(env.Stderr, "%d downloads recorded\n", n)
				return nil
			})
		},
	}
}

func catalogPruneCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop catalog rows whose audio is not downloaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(env, func(a *app) error {
				before, after, err := a.catalog.PruneMissingArtifacts(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(env.Stderr, "Pruned %d of %d catalog rows\n", before-after, before)
				return nil
			})
		},
	}
}

// DeleteCmd creates the delete command.
func DeleteCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove items from the catalog and disk",
		Long: `Remove each item's catalog rows and every file it owns: downloaded audio,
converted audio, transcript, clips and leftover chunks.`,
		Example: `  ytclips delete abc123`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(env, func(a *app) error {
				var errs []error
				for _, id := range args {
					if err := deleteItem(cmd.Context(), env, a, id); err != nil {
						errs = append(errs, err)
					}
				}
				return errors.Join(errs...)
			})
		},
	}
}

// withCatalog opens the stores, runs fn and closes them.
func withCatalog(env *Env, fn func(a *app) error) (err error) {
	a, err := openApp(env)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)
	return fn(a)
}

func showItems(env *Env, items []catalog.Item, empty string) error {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(env.Stderr, empty)
		return nil
	}
	return printItems(env.Stdout, items)
}

func runCatalogDownloads(ctx context.Context, env *Env, a *app) error {
	downloads, err := a.catalog.ListDownloaded(ctx)
	if err != nil {
		return err
	}
	if len(downloads) == 0 {
		_, _ = fmt.Fprintln(env.Stderr, "Nothing downloaded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDURATION\tSIZE\tBLAKE3\tTITLE")
	for _, d := range downloads {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Duration, format.Size(d.SizeBytes), shortHash(d.Blake3Hash), d.Title)
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return dash(h)
}

func deleteItem(ctx context.Context, env *Env, a *app, id string) error {
	if err := media.ValidateID(id); err != nil {
		return err
	}

	_, statErr := os.Stat(a.media.ItemDir(id))
	onDisk := statErr == nil

	err := a.catalog.Delete(ctx, id)
	cataloged := err == nil
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return err
	}
	if !cataloged && !onDisk {
		return fmt.Errorf("%s: %w", id, ErrNothingToDelete)
	}

	if err := a.media.RemoveItem(id); err != nil {
		return fmt.Errorf("cannot remove files of %s: %w", id, err)
	}
	_, _ = fmt.Fprintf(env.Stderr, "Deleted %s\n", id)
	return nil
}
