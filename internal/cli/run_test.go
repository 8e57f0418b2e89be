package cli

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/alnah/go-ytclips/internal/media"
	"github.com/alnah/go-ytclips/internal/pipeline"
)

func TestRunCmd_AllStages(t *testing.T) {
	t.Parallel()
	env, m := testEnv(t)

	if err := execute(RunCmd(env), "abc123", "def456", "abc123", "--parallel", "2"); err != nil {
		t.Fatalf("run: %v", err)
	}

	ms, ts := m.stores(t)
	for _, id := range []string{"abc123", "def456"} {
		if got := pipeline.ComputeStatus(ms, ts, id); got != pipeline.StatusSegmented {
			t.Errorf("status(%s) = %v, want SEGMENTED", id, got)
		}
	}
	downloads := m.steps.Downloads()
	slices.Sort(downloads)
	if !slices.Equal(downloads, []string{"abc123", "def456"}) {
		t.Errorf("downloads = %v, want each id once", downloads)
	}

	out := m.stderr.String()
	for _, want := range []string{"Jobs:", "abc123: SEGMENTED", "def456: SEGMENTED"} {
		if !strings.Contains(out, want) {
			t.Errorf("stderr missing %q:\n%s", want, out)
		}
	}
}

func TestRunCmd_ResumesAfterCompletedStages(t *testing.T) {
	t.Parallel()
	env, m := testEnv(t)
	m.writeArtifact(t, "abc123", media.StageRaw)
	m.writeArtifact(t, "abc123", media.StageNormalized)

	if err := execute(RunCmd(env), "abc123"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := m.steps.Downloads(); len(got) != 0 {
		t.Errorf("downloads = %v, want none", got)
	}
	if got := m.steps.Converts(); len(got) != 0 {
		t.Errorf("converts = %v, want none", got)
	}
	if m.engine.Calls() != 1 {
		t.Errorf("engine calls = %d, want 1", m.engine.Calls())
	}
}

func TestRunCmd_FromStageSkipsEarlierTools(t *testing.T) {
	t.Parallel()
	env, m := testEnv(t)
	m.writeArtifact(t, "abc123", media.StageNormalized)

	if err := execute(RunCmd(env), "abc123", "--from", "transcribe"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := m.tools.Resolved(); !slices.Equal(got, []string{"ffmpeg"}) {
		t.Errorf("resolved tools = %v, want [ffmpeg]", got)
	}
	ms, ts := m.stores(t)
	if got := pipeline.ComputeStatus(ms, ts, "abc123"); got != pipeline.StatusSegmented {
		t.Errorf("status = %v, want SEGMENTED", got)
	}
}

func TestRunCmd_FailingItemDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	env, m := testEnv(t)
	m.steps.convertErr = errMock
	m.writeArtifact(t, "done01", media.StageNormalized)

	err := execute(RunCmd(env), "done01", "fail01", "--parallel", "2")
	if !errors.Is(err, errMock) {
		t.Fatalf("error = %v, want the convert failure", err)
	}
	ms, ts := m.stores(t)
	if got := pipeline.ComputeStatus(ms, ts, "done01"); got != pipeline.StatusSegmented {
		t.Errorf("status(done01) = %v, want SEGMENTED", got)
	}
	if got := pipeline.ComputeStatus(ms, ts, "fail01"); got != pipeline.StatusDownloaded {
		t.Errorf("status(fail01) = %v, want DOWNLOADED", got)
	}
}

func TestRunCmd_FlagValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown stage", []string{"abc123", "--from", "upload"}},
		{"parallel zero", []string{"abc123", "--parallel", "0"}},
		{"parallel too high", []string{"abc123", "--parallel", "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, m := testEnv(t)
			err := execute(RunCmd(env), tt.args...)
			if !errors.Is(err, ErrInvalidFlag) {
				t.Errorf("error = %v, want ErrInvalidFlag", err)
			}
			if got := m.tools.Resolved(); len(got) != 0 {
				t.Errorf("resolved tools = %v, want none", got)
			}
		})
	}
}
