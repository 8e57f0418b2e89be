package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/config"
	"github.com/alnah/go-ytclips/internal/youtube"
)

// SearchCmd creates the search command.
func SearchCmd(env *Env) *cobra.Command {
	var (
		license   string
		pageToken string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find videos and add them to the catalog",
		Long: fmt.Sprintf(`Search YouTube for videos matching query, newest first, and merge the
results into the catalog.

Videos shorter than %d seconds are left out. Without a query every recent
video with the chosen license is listed. The next page token is printed
after the table; pass it back with --page-token to continue.`, youtube.MinDurationSeconds),
		Example: `  ytclips search "berita pagi"
  ytclips search --license youtube --max 50
  ytclips search "berita pagi" --page-token CBkQAA`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > youtube.MaxResults {
				return fmt.Errorf("%w: --max must be between 1 and %d", ErrInvalidFlag, youtube.MaxResults)
			}
			q := youtube.Query{License: license, PageToken: pageToken, MaxResults: limit}
			if len(args) == 1 {
				q.Text = args[0]
			}
			return runSearch(cmd.Context(), env, q)
		},
	}

	cmd.Flags().StringVarP(&license, "license", "l", youtube.LicenseCreativeCommon, "License filter: creativeCommon or youtube")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Continue from a previous result page")
	cmd.Flags().IntVarP(&limit, "max", "n", youtube.DefaultMaxResults, fmt.Sprintf("Results per page (1-%d)", youtube.MaxResults))

	return cmd
}

func runSearch(ctx context.Context, env *Env, q youtube.Query) (err error) {
	if err := youtube.ValidateLicense(q.License); err != nil {
		return err
	}

	a, err := openApp(env)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	if a.cfg.YouTubeAPIKey == "" {
		return fmt.Errorf("%w (set it with: ytclips config set %s AIza...)",
			youtube.ErrAPIKeyMissing, config.KeyYouTubeAPIKey)
	}

	searcher, err := env.SearcherFactory.NewSearcher(ctx, a.cfg.YouTubeAPIKey)
	if err != nil {
		return err
	}
	page, err := searcher.Search(ctx, q)
	if err != nil {
		return err
	}

	total, err := a.catalog.Upsert(ctx, page.Items)
	if err != nil {
		return fmt.Errorf("cannot update catalog: %w", err)
	}

	if len(page.Items) > 0 {
		if err := printItems(env.Stdout, page.Items); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(env.Stderr, "%d videos found, %d shorter than %ds skipped; catalog holds %d\n",
		len(page.Items), page.Filtered, youtube.MinDurationSeconds, total)
	if page.NextPageToken != "" {
		_, _ = fmt.Fprintf(env.Stderr, "Next page: --page-token %s\n", page.NextPageToken)
	}
	return nil
}
