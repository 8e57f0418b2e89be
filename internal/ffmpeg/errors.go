package ffmpeg

import "errors"

// ErrNotFound indicates the ffmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrYtDlpNotFound indicates the yt-dlp binary could not be located.
var ErrYtDlpNotFound = errors.New("yt-dlp not found")
