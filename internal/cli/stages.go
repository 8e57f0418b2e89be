package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/pipeline"
	"github.com/alnah/go-ytclips/internal/transcribe"
)

// stageCommand describes one single-stage command.
type stageCommand struct {
	stage   pipeline.Stage
	use     string
	short   string
	long    string
	example string
}

// DownloadCmd creates the download command.
func DownloadCmd(env *Env) *cobra.Command {
	return newStageCmd(env, stageCommand{
		stage: pipeline.StageDownload,
		use:   "download <id>...",
		short: "Download the audio of videos",
		long: `Download the best audio stream of each video with yt-dlp and store it
as items/<id>/original/<id>.mp3 under the data dir.

Items already downloaded are skipped unless --force is given.`,
		example: `  ytclips download dQw4w9WgXcQ
  ytclips download abc123 def456 --force`,
	})
}

// ConvertCmd creates the convert command.
func ConvertCmd(env *Env) *cobra.Command {
	return newStageCmd(env, stageCommand{
		stage: pipeline.StageConvert,
		use:   "convert <id>...",
		short: "Normalize downloaded audio to Ogg Vorbis",
		long: `Re-encode each item's downloaded audio to the normalized Ogg Vorbis
artifact used by transcription and splitting.

Items already converted are skipped unless --force is given. Forcing also
removes the transcript and clips, which derive from the converted audio.`,
		example: `  ytclips convert abc123
  ytclips convert abc123 --force`,
	})
}

// TranscribeCmd creates the transcribe command.
func TranscribeCmd(env *Env) *cobra.Command {
	return newStageCmd(env, stageCommand{
		stage: pipeline.StageTranscribe,
		use:   "transcribe <id>...",
		short: "Transcribe converted audio into a timed table",
		long: `Send each item's converted audio to the speech-to-text engine and save
the timed rows as items/<id>/<id>_transcription.csv.

Audio above the upload limit is cut into chunks first; row times are
always relative to the start of the full audio.`,
		example: `  ytclips transcribe abc123
  ytclips transcribe abc123 --parallel 4`,
	})
}

// SplitCmd creates the split command.
func SplitCmd(env *Env) *cobra.Command {
	return newStageCmd(env, stageCommand{
		stage: pipeline.StageSplit,
		use:   "split <id>...",
		short: "Cut one audio clip per transcript row",
		long: `Export one clip per transcript row into items/<id>/split/ and record each
clip in the transcript's audio_file column.

Rows whose export fails are dropped from the transcript with a warning.
Changing --format re-splits and replaces clips of the previous format.`,
		example: `  ytclips split abc123
  ytclips split abc123 --format mp3 --force`,
	})
}

func newStageCmd(env *Env, sc stageCommand) *cobra.Command {
	var (
		force    bool
		format   string
		parallel int
	)

	cmd := &cobra.Command{
		Use:     sc.use,
		Short:   sc.short,
		Long:    sc.long,
		Example: sc.example,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := stepOptions{parallel: parallel}
			if sc.stage == pipeline.StageSplit && format != "" {
				f, err := audio.ParseFormat(format)
				if err != nil {
					return err
				}
				opts.format = f
			}
			return runStageCmd(cmd.Context(), env, sc.stage, args, force, opts)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Redo the stage even if its output exists")
	switch sc.stage {
	case pipeline.StageSplit:
		cmd.Flags().StringVar(&format, "format", "", "Clip format: wav, mp3, ogg (default: configured split-format)")
	case pipeline.StageTranscribe:
		cmd.Flags().IntVarP(&parallel, "parallel", "p", 1,
			fmt.Sprintf("Max concurrent engine requests per item (1-%d)", transcribe.MaxRecommendedParallel))
	}
	return cmd
}

// runStageCmd runs one stage for each id in order. A failing item does not
// stop the next one; a stop request or cancellation does.
func runStageCmd(ctx context.Context, env *Env, stage pipeline.Stage, ids []string, force bool, opts stepOptions) (err error) {
	a, err := openApp(env)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	steps, err := a.steps(ctx, env, opts, stage)
	if err != nil {
		return err
	}
	rn := a.runner(env, steps)

	var errs []error
	for _, id := range ids {
		err := rn.RunStage(ctx, id, stage, force)
		if err == nil {
			continue
		}
		if errors.Is(err, pipeline.ErrStopped) || ctx.Err() != nil {
			return errors.Join(append(errs, err)...)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
