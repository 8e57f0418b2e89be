// Package youtube wraps the two video site collaborators: the Data API v3
// for search and metadata, and yt-dlp for audio downloads.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/alnah/go-ytclips/internal/apierr"
	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/format"
)

// Search limits.
const (
	DefaultMaxResults = 25
	MaxResults        = 50

	// MinDurationSeconds drops shorts and clips too brief to segment.
	MinDurationSeconds = 180
)

// Query selects one page of search results.
type Query struct {
	Text       string // empty searches everything
	License    string // "", LicenseCreativeCommon or LicenseYouTube
	PageToken  string
	MaxResults int // clamped to [1, MaxResults]; 0 means DefaultMaxResults
}

// Page is one page of results. Items shorter than MinDurationSeconds are
// already filtered out, so a page may hold fewer items than requested.
type Page struct {
	Items         []catalog.Item
	NextPageToken string
	Filtered      int // results dropped for being too short or lacking a duration
}

// Searcher queries the Data API.
type Searcher struct {
	svc *yt.Service
}

// NewSearcher creates a Searcher authenticated with apiKey. Extra client
// options (endpoint, HTTP client) are passed through to the API client.
func NewSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Searcher, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create client: %v", ErrSearchFailed, err)
	}
	return &Searcher{svc: svc}, nil
}

// Search runs search.list for videos ordered by date, then videos.list to
// fetch durations and licenses.
func (s *Searcher) Search(ctx context.Context, q Query) (Page, error) {
	if err := ValidateLicense(q.License); err != nil {
		return Page{}, err
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		text = "*"
	}

	call := s.svc.Search.List([]string{"snippet"}).
		Q(text).
		Type("video").
		Order("date").
		MaxResults(int64(clampResults(q.MaxResults))).
		Context(ctx)
	if q.License != "" {
		call = call.VideoLicense(q.License)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return Page{}, classify(ctx, "search", err)
	}

	page := Page{NextPageToken: resp.NextPageToken}
	var ids []string
	bySearch := make(map[string]*yt.SearchResult, len(resp.Items))
	for _, r := range resp.Items {
		if r.Id == nil || r.Id.VideoId == "" || r.Snippet == nil {
			continue
		}
		if _, dup := bySearch[r.Id.VideoId]; dup {
			continue
		}
		bySearch[r.Id.VideoId] = r
		ids = append(ids, r.Id.VideoId)
	}
	if len(ids) == 0 {
		return page, nil
	}

	details, err := s.details(ctx, ids)
	if err != nil {
		return Page{}, err
	}

	for _, id := range ids {
		d, ok := details[id]
		if !ok || d.seconds < MinDurationSeconds {
			page.Filtered++
			continue
		}
		sn := bySearch[id].Snippet
		license := d.license
		if license == "" {
			license = q.License
		}
		page.Items = append(page.Items, catalog.Item{
			ID:              id,
			Title:           sn.Title,
			Channel:         sn.ChannelTitle,
			Duration:        format.Clock(d.seconds),
			DurationSeconds: d.seconds,
			PublishedAt:     parsePublished(sn.PublishedAt),
			License:         LicenseLabel(license),
		})
	}
	return page, nil
}

type videoDetails struct {
	seconds int64
	license string
}

// details fetches contentDetails and status for up to 50 ids.
func (s *Searcher) details(ctx context.Context, ids []string) (map[string]videoDetails, error) {
	resp, err := s.svc.Videos.List([]string{"contentDetails", "status"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(ctx, "videos", err)
	}

	out := make(map[string]videoDetails, len(resp.Items))
	for _, v := range resp.Items {
		if v.ContentDetails == nil {
			continue
		}
		secs, err := ParseDuration(v.ContentDetails.Duration)
		if err != nil {
			continue
		}
		d := videoDetails{seconds: secs}
		if v.Status != nil {
			d.license = v.Status.License
		}
		out[v.Id] = d
	}
	return out, nil
}

func clampResults(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResults:
		return MaxResults
	}
	return n
}

func parsePublished(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// classify maps API errors to apierr sentinels, always keeping ErrSearchFailed
// in the chain.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if mapped := apierr.FromStatus(gerr.Code, gerr.Message); mapped != nil {
			return fmt.Errorf("%w: %s: %w", ErrSearchFailed, op, mapped)
		}
		return fmt.Errorf("%w: %s: HTTP %d: %s", ErrSearchFailed, op, gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%w: %s: %v", ErrSearchFailed, op, err)
}
