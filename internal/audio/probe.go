// Package audio drives ffmpeg to probe, re-encode, chunk and cut audio files.
package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	progressRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	noStreamRe = regexp.MustCompile(`(?i)(invalid data found|does not contain any stream|no such file|could not find codec)`)
)

// probeDuration returns the duration of an audio file by running ffmpeg with
// a null muxer. ffprobe is not assumed to be installed.
func probeDuration(ctx context.Context, cmd commandRunner, ffmpegPath, audioPath string) (time.Duration, error) {
	args := []string{
		"-hide_banner",
		"-i", audioPath,
		"-f", "null", "-",
	}
	output, err := cmd.CombinedOutput(ctx, ffmpegPath, args)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err != nil && len(output) == 0 {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, audioPath, err)
	}
	if noStreamRe.Match(output) {
		return 0, fmt.Errorf("%w: %s: %s", ErrDecode, audioPath, lastLine(output))
	}

	d, perr := parseDurationFromFFmpegOutput(string(output))
	if perr != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDecode, audioPath, perr)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s: empty audio stream", ErrDecode, audioPath)
	}
	return d, nil
}

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for "Duration: HH:MM:SS.ms", falling back to the last "time=HH:MM:SS.ms".
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	if m := durationRe.FindStringSubmatch(output); m != nil {
		return parseTimeComponents(m[1], m[2], m[3], m[4])
	}

	all := progressRe.FindAllStringSubmatch(output, -1)
	if len(all) > 0 {
		m := all[len(all)-1]
		return parseTimeComponents(m[1], m[2], m[3], m[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.frac strings to a Duration with
// millisecond precision. The fractional part may have any number of digits.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}

	// Pad or truncate to exactly three digits.
	frac := fractional
	for len(frac) < 3 {
		frac += "0"
	}
	ms, err := strconv.Atoi(frac[:3])
	if err != nil {
		return 0, err
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// formatFFmpegTime formats a duration for FFmpeg -ss/-to arguments.
func formatFFmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// lastLine returns the last non-empty line of tool output, used to keep
// error messages short.
func lastLine(output []byte) string {
	end := len(output)
	for end > 0 && (output[end-1] == '\n' || output[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && output[start-1] != '\n' {
		start--
	}
	return string(output[start:end])
}
