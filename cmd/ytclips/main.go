package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/apierr"
	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/catalog"
	"github.com/alnah/go-ytclips/internal/cli"
	"github.com/alnah/go-ytclips/internal/config"
	"github.com/alnah/go-ytclips/internal/ffmpeg"
	"github.com/alnah/go-ytclips/internal/interrupt"
	"github.com/alnah/go-ytclips/internal/lang"
	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/pipeline"
	"github.com/alnah/go-ytclips/internal/segment"
	"github.com/alnah/go-ytclips/internal/transcribe"
	"github.com/alnah/go-ytclips/internal/transcript"
	"github.com/alnah/go-ytclips/internal/youtube"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitEngine     = 5
	ExitMedia      = 6
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C stops between stages, the second cancels in-flight work.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	env := cli.NewEnv(cli.WithStopRequested(handler.StopRequested))

	rootCmd := &cobra.Command{
		Use:   "ytclips",
		Short: "Turn YouTube videos into transcript-aligned audio clips",
		Long: `Find videos, download their audio, transcribe it and cut one clip per
transcript row. Every stage writes under the data dir and is skipped when
its output already exists.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.SearchCmd(env))
	rootCmd.AddCommand(cli.DownloadCmd(env))
	rootCmd.AddCommand(cli.ConvertCmd(env))
	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.StatusCmd(env))
	rootCmd.AddCommand(cli.SegmentsCmd(env))
	rootCmd.AddCommand(cli.CatalogCmd(env))
	rootCmd.AddCommand(cli.DeleteCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		handler.Stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, pipeline.ErrStopped) {
		return ExitInterrupt
	}

	// Cobra doesn't expose typed errors for flag and argument parsing.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	if ffmpeg.IsNotFound(err) || errors.Is(err, transcribe.ErrAPIKeyMissing) ||
		errors.Is(err, youtube.ErrAPIKeyMissing) {
		return ExitSetup
	}

	if errors.Is(err, media.ErrInvalidID) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, audio.ErrInvalidFormat) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, config.ErrInvalidValue) || errors.Is(err, config.ErrNotDirectory) ||
		errors.Is(err, config.ErrNotWritable) || errors.Is(err, youtube.ErrInvalidLicense) ||
		errors.Is(err, cli.ErrInvalidFlag) || errors.Is(err, cli.ErrNothingToDelete) ||
		errors.Is(err, catalog.ErrNotFound) || errors.Is(err, media.ErrNotFound) ||
		errors.Is(err, transcript.ErrMalformed) || errors.Is(err, transcript.ErrInvalid) {
		return ExitValidation
	}

	if errors.Is(err, transcribe.ErrEngine) || errors.Is(err, youtube.ErrSearchFailed) ||
		errors.Is(err, youtube.ErrDownloadFailed) || errors.Is(err, apierr.ErrRateLimit) ||
		errors.Is(err, apierr.ErrQuotaExceeded) || errors.Is(err, apierr.ErrTimeout) ||
		errors.Is(err, apierr.ErrAuthFailed) || errors.Is(err, apierr.ErrBadRequest) {
		return ExitEngine
	}

	if errors.Is(err, audio.ErrDecode) || errors.Is(err, audio.ErrEncode) ||
		errors.Is(err, audio.ErrSplit) || errors.Is(err, segment.ErrNoValidSplits) {
		return ExitMedia
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
