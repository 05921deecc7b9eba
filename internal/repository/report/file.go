package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/remote-packager/internal/config"
	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

// Repository defines persistence operations for job results.
type Repository interface {
	Load(ctx context.Context) (*packaging.Result, error)
	Save(ctx context.Context, result *packaging.Result) error
}

// FileRepository persists a job result to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the report file.
	path string
	// mu protects concurrent access to the report file.
	mu sync.Mutex
}

// ErrNotFound is returned when the report file does not exist yet.
var ErrNotFound = errors.New("report not found")

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the result from disk.
func (r *FileRepository) Load(_ context.Context) (*packaging.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var rec record
	if err = yaml.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return fromRecord(&rec), nil
}

// Save writes the result to disk, replacing any previous report.
func (r *FileRepository) Save(_ context.Context, result *packaging.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(toRecord(result))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}

// record is the on-disk shape of a result.
type record struct {
	Job          string        `yaml:"job"`
	ProcessUID   string        `yaml:"process_uid,omitempty"`
	Outcome      string        `yaml:"outcome"`
	SubmittedBy  actorRecord   `yaml:"submitted_by"`
	Artifact     string        `yaml:"artifact,omitempty"`
	Checksum     string        `yaml:"checksum,omitempty"`
	ExtraFiles   []string      `yaml:"extra_files,omitempty"`
	FailedStage  string        `yaml:"failed_stage,omitempty"`
	Error        string        `yaml:"error,omitempty"`
	Stages       []string      `yaml:"stages"`
	Cleanup      cleanupRecord `yaml:"cleanup"`
	StartedAt    time.Time     `yaml:"started_at"`
	FinishedAt   time.Time     `yaml:"finished_at"`
	DurationText string        `yaml:"duration"`
}

type actorRecord struct {
	Hostname string `yaml:"hostname,omitempty"`
	Username string `yaml:"username,omitempty"`
}

type cleanupRecord struct {
	Hook    outcomeRecord `yaml:"hook"`
	Removal outcomeRecord `yaml:"removal"`
}

type outcomeRecord struct {
	Status  string `yaml:"status"`
	Message string `yaml:"message,omitempty"`
}

// toRecord converts the domain Result into its on-disk shape.
func toRecord(result *packaging.Result) *record {
	stages := make([]string, 0, len(result.Stages))
	for _, s := range result.Stages {
		stages = append(stages, s.String())
	}

	return &record{
		Job:         result.JobID,
		ProcessUID:  result.ProcessUID,
		Outcome:     string(result.Outcome),
		SubmittedBy: actorRecord{
			Hostname: result.SubmittedBy.Hostname,
			Username: result.SubmittedBy.Username,
		},
		Artifact:    result.ArtifactPath,
		Checksum:    result.ArtifactChecksum,
		ExtraFiles:  result.ExtraFiles,
		FailedStage: result.FailedStage.String(),
		Error:       result.Error,
		Stages:      stages,
		Cleanup: cleanupRecord{
			Hook:    outcomeRecord{Status: string(result.HookOutcome.Status), Message: result.HookOutcome.Message},
			Removal: outcomeRecord{Status: string(result.RemovalOutcome.Status), Message: result.RemovalOutcome.Message},
		},
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		DurationText: result.FinishedAt.Sub(result.StartedAt).String(),
	}
}

// fromRecord converts the on-disk shape back into the domain Result.
func fromRecord(rec *record) *packaging.Result {
	var stages []packaging.Stage
	for _, s := range rec.Stages {
		stages = append(stages, packaging.Stage(s))
	}

	return &packaging.Result{
		JobID:       rec.Job,
		ProcessUID:  rec.ProcessUID,
		Outcome:     packaging.Outcome(rec.Outcome),
		SubmittedBy: packaging.Actor{
			Hostname: rec.SubmittedBy.Hostname,
			Username: rec.SubmittedBy.Username,
		},
		ArtifactPath:     rec.Artifact,
		ArtifactChecksum: rec.Checksum,
		ExtraFiles:       rec.ExtraFiles,
		FailedStage:      packaging.Stage(rec.FailedStage),
		Error:            rec.Error,
		Stages:           stages,
		HookOutcome: packaging.CleanupOutcome{
			Status:  packaging.CleanupStatus(rec.Cleanup.Hook.Status),
			Message: rec.Cleanup.Hook.Message,
		},
		RemovalOutcome: packaging.CleanupOutcome{
			Status:  packaging.CleanupStatus(rec.Cleanup.Removal.Status),
			Message: rec.Cleanup.Removal.Message,
		},
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
}
