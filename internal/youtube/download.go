package youtube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/media"
)

// WatchURL is the page yt-dlp downloads from.
const WatchURL = "https://www.youtube.com/watch?v="

// progressPattern matches yt-dlp --newline progress lines such as
// "[download]  42.3% of 3.21MiB at 1.02MiB/s ETA 00:02".
var progressPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// Downloader fetches the best audio stream of a video and extracts it to MP3.
//
// The file is written in a private staging directory under the data root and
// only adopted as the item's raw artifact once yt-dlp succeeded, so a failed
// or cancelled download never leaves a partial raw file behind.
type Downloader struct {
	ytdlpPath  string
	ffmpegPath string
	store      *media.Store
	quality    string
	run        lineRunner
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithFFmpegLocation points yt-dlp at the resolved ffmpeg binary.
func WithFFmpegLocation(path string) DownloaderOption {
	return func(d *Downloader) { d.ffmpegPath = path }
}

// WithAudioQuality sets the MP3 bitrate passed to --audio-quality.
func WithAudioQuality(q string) DownloaderOption {
	return func(d *Downloader) { d.quality = q }
}

// WithLineRunner sets the command runner (for testing).
func WithLineRunner(r lineRunner) DownloaderOption {
	return func(d *Downloader) { d.run = r }
}

// NewDownloader creates a Downloader writing into store.
func NewDownloader(ytdlpPath string, store *media.Store, opts ...DownloaderOption) (*Downloader, error) {
	if ytdlpPath == "" {
		return nil, fmt.Errorf("ytdlpPath cannot be empty: %w", ffmpeg.ErrYtDlpNotFound)
	}
	if store == nil {
		return nil, fmt.Errorf("media store cannot be nil")
	}
	d := &Downloader{
		ytdlpPath: ytdlpPath,
		store:     store,
		quality:   "192K",
		run:       osLineRunner{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Download fetches itemID and returns the raw artifact path. onProgress, when
// not nil, receives percentages in [0, 100] in non-decreasing order.
func (d *Downloader) Download(ctx context.Context, itemID string, onProgress func(float64)) (string, error) {
	if err := media.ValidateID(itemID); err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp(d.store.Root(), ".download-"+itemID+"-")
	if err != nil {
		return "", fmt.Errorf("%w: cannot create staging directory: %v", ErrDownloadFailed, err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	last := -1.0
	report := func(p float64) {
		if onProgress == nil || p <= last {
			return
		}
		last = p
		onProgress(p)
	}

	stderr, err := d.run.Run(ctx, d.ytdlpPath, d.args(staging, itemID), func(line string) {
		if p, ok := parseProgress(line); ok {
			report(p)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v: %s", ErrDownloadFailed, itemID, err, lastLine(stderr))
	}

	out, err := stagedFile(staging, itemID)
	if err != nil {
		return "", err
	}
	path, err := d.store.Adopt(itemID, out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	report(100)
	return path, nil
}

func (d *Downloader) args(staging, itemID string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", d.quality,
		"--no-playlist",
		"--newline",
		"--no-part",
		"-o", filepath.Join(staging, itemID+".%(ext)s"),
	}
	if d.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", d.ffmpegPath)
	}
	return append(args, WatchURL+itemID)
}

// stagedFile finds the extracted file. yt-dlp names it <id>.mp3 after
// extraction; any other non-empty <id>.* is accepted as a fallback.
func stagedFile(staging, itemID string) (string, error) {
	want := filepath.Join(staging, itemID+".mp3")
	if info, err := os.Stat(want); err == nil && info.Size() > 0 {
		return want, nil
	}
	matches, _ := filepath.Glob(filepath.Join(staging, itemID+".*"))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %s: yt-dlp produced no audio file", ErrDownloadFailed, itemID)
}

func parseProgress(line string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return min(max(p, 0), 100), true
}

// lastLine returns the last non-empty line of output, for error messages.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no output"
}
