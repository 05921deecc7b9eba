package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	r, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SuccessRoundtrip keeps the artifact fields.
func TestFileRepository_SuccessRoundtrip(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "report.yaml"))

	want := &packaging.Result{
		JobID:            "nightly",
		Outcome:          packaging.OutcomeSuccess,
		ArtifactPath:     "/work/pkg.tar.Z",
		ArtifactChecksum: "sha256:00ff",
		ExtraFiles:       []string{"/work/build.log"},
		Stages:           []packaging.Stage{packaging.StageValidating, packaging.StageDone},
		HookOutcome:      packaging.CleanupOutcome{Status: packaging.CleanupRetained},
		RemovalOutcome:   packaging.CleanupOutcome{Status: packaging.CleanupRetained},
		StartedAt:        time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		FinishedAt:       time.Date(2026, 10, 14, 9, 1, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal result.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "report.yaml")
	repo := NewFileRepository(file)

	started := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	want := &packaging.Result{
		JobID:       "nightly",
		ProcessUID:  "nightly-20261014093000-0a1b2c3d",
		Outcome:     packaging.OutcomeFailure,
		SubmittedBy: packaging.Actor{Hostname: "build-01", Username: "o.shokin"},
		FailedStage: packaging.StageExecutingRemote,
		Error:       `executing-remote: remote execution failed: step "extract archive" (exit 12): exit status 12`,
		Stages: []packaging.Stage{
			packaging.StageValidating,
			packaging.StagePreparingLocal,
			packaging.StageTransferringUp,
			packaging.StageExecutingRemote,
			packaging.StageCleaning,
			packaging.StageDone,
		},
		HookOutcome:    packaging.CleanupOutcome{Status: packaging.CleanupWarning, Message: "exit status 20"},
		RemovalOutcome: packaging.CleanupOutcome{Status: packaging.CleanupDone},
		StartedAt:      started,
		FinishedAt:     started.Add(90 * time.Second),
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(raw), "duration: 1m30s")
	require.Contains(t, string(raw), "status: warning")
}
