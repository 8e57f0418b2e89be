package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/format"
	"github.com/alnah/go-ytclips/internal/pipeline"
)

// MaxParallelItems bounds how many items a batch run processes at once.
const MaxParallelItems = 8

// RunCmd creates the run command.
func RunCmd(env *Env) *cobra.Command {
	var (
		from     string
		force    bool
		parallel int
		chunks   int
	)

	cmd := &cobra.Command{
		Use:   "run <id>...",
		Short: "Run every remaining stage for videos",
		Long: `Run download, convert, transcribe and split for each video, in order.

Stages whose output already exists are skipped, so an interrupted run
resumes where it stopped. --from starts at a later stage; with --force that
stage and everything after it are redone.

Distinct videos run concurrently (--parallel); a failing video does not stop
the others. Press Ctrl+C once to stop after the current stage, twice to abort.`,
		Example: `  ytclips run abc123
  ytclips run abc123 def456 ghi789 --parallel 3
  ytclips run abc123 --from transcribe --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := pipeline.StageDownload
			if from != "" {
				s, err := pipeline.ParseStage(from)
				if err != nil {
					return fmt.Errorf("%w: --from: %w", ErrInvalidFlag, err)
				}
				start = s
			}
			if parallel < 1 || parallel > MaxParallelItems {
				return fmt.Errorf("%w: --parallel must be between 1 and %d", ErrInvalidFlag, MaxParallelItems)
			}
			return runRun(cmd.Context(), env, args, pipeline.Options{From: start, Force: force}, parallel, chunks)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First stage: download, convert, transcribe, split")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Redo --from and every later stage")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, fmt.Sprintf("Videos processed at once (1-%d)", MaxParallelItems))
	cmd.Flags().IntVar(&chunks, "chunk-parallel", 1, "Concurrent engine requests per video")

	return cmd
}

func runRun(ctx context.Context, env *Env, ids []string, opts pipeline.Options, parallel, chunkParallel int) (err error) {
	a, err := openApp(env)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	var stages []pipeline.Stage
	for _, s := range pipeline.Stages {
		if s >= opts.From {
			stages = append(stages, s)
		}
	}
	steps, err := a.steps(ctx, env, stepOptions{parallel: chunkParallel}, stages...)
	if err != nil {
		return err
	}

	rn := a.runner(env, steps)
	runErr := rn.RunAll(ctx, ids, opts, parallel)

	printJobs(env, rn.Registry().Jobs())
	for _, id := range ids {
		_, _ = fmt.Fprintf(env.Stderr, "%s: %s\n", id, rn.Status(id))
	}
	return runErr
}

// printJobs summarizes the stages that actually ran.
func printJobs(env *Env, jobs []pipeline.Job) {
	if len(jobs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(env.Stderr, "\nJobs:")
	for _, j := range jobs {
		line := fmt.Sprintf("  %-12s %-10s %-7s", j.ItemID, j.Stage, j.State)
		if !j.Finished.IsZero() {
			line += " " + format.DurationHuman(j.Finished.Sub(j.Started))
		}
		_, _ = fmt.Fprintln(env.Stderr, line)
	}
}
