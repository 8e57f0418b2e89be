package audio

import (
	"context"
	"time"
)

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// FormatFFmpegTime exports formatFFmpegTime for testing.
var FormatFFmpegTime = formatFFmpegTime

// SliceBounds exports sliceBounds for testing.
var SliceBounds = sliceBounds

// ChunkEncodingArgs exports chunkEncodingArgs for testing.
var ChunkEncodingArgs = chunkEncodingArgs

// LastLine exports lastLine for testing.
var LastLine = lastLine

// EncodingArgs exports Format.encodingArgs for testing.
func EncodingArgs(f Format) []string {
	return f.encodingArgs()
}

// ProbeDuration exports probeDuration for testing.
func ProbeDuration(ctx context.Context, cmd CommandRunner, ffmpegPath, audioPath string) (time.Duration, error) {
	return probeDuration(ctx, cmd, ffmpegPath, audioPath)
}

// --- Dependency injection exports ---

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// FileMover exports fileMover interface for testing.
type FileMover = fileMover
