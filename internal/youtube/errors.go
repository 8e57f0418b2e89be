package youtube

import "errors"

// Sentinel errors for the video site collaborators.
var (
	// ErrAPIKeyMissing indicates no Data API key is configured.
	ErrAPIKeyMissing = errors.New("YOUTUBE_API_KEY not set")

	// ErrSearchFailed indicates a search or metadata request failed.
	ErrSearchFailed = errors.New("search failed")

	// ErrDownloadFailed indicates yt-dlp could not fetch the audio.
	ErrDownloadFailed = errors.New("download failed")

	// ErrInvalidLicense indicates an unknown license filter.
	ErrInvalidLicense = errors.New("invalid license")

	// ErrInvalidDuration indicates a malformed ISO 8601 duration.
	ErrInvalidDuration = errors.New("invalid duration")
)
