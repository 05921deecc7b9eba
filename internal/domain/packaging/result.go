package packaging

import "time"

// Outcome is the terminal outcome of a job.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CleanupStatus is the outcome of one best-effort cleanup stage.
type CleanupStatus string

const (
	// CleanupSkipped means the stage never ran, for example after a validation failure.
	CleanupSkipped CleanupStatus = "skipped"
	// CleanupRetained means the caller asked to keep the remote workspace.
	CleanupRetained CleanupStatus = "retained"
	// CleanupDone means the stage completed.
	CleanupDone CleanupStatus = "done"
	// CleanupWarning means the stage failed; the failure is recorded, never raised.
	CleanupWarning CleanupStatus = "warning"
)

// CleanupOutcome records what one cleanup stage did.
type CleanupOutcome struct {
	Status  CleanupStatus
	Message string
}

// Actor identifies the local machine and account that submitted a job.
type Actor struct {
	Hostname string
	Username string
}

// Result describes a finished job.
type Result struct {
	JobID      string
	ProcessUID string
	Outcome    Outcome
	// SubmittedBy is the local account that ran the job, when it could be detected.
	SubmittedBy Actor
	// ArtifactPath is the local path of the retrieved package on success.
	ArtifactPath string
	// ArtifactChecksum is the SHA-256 of the retrieved package, "sha256:" prefixed hex.
	ArtifactChecksum string
	// ExtraFiles are the local paths of the retrieved extra files on success.
	ExtraFiles []string
	// FailedStage and Error describe the failure, if any.
	FailedStage Stage
	Error       string
	// Stages lists the visited stages in order.
	Stages         []Stage
	HookOutcome    CleanupOutcome
	RemovalOutcome CleanupOutcome
	StartedAt      time.Time
	FinishedAt     time.Time
}

// NewResult starts the result of a job; it stays a failure until marked otherwise.
func NewResult(jobID string, startedAt time.Time) *Result {
	return &Result{
		JobID:          jobID,
		Outcome:        OutcomeFailure,
		HookOutcome:    CleanupOutcome{Status: CleanupSkipped},
		RemovalOutcome: CleanupOutcome{Status: CleanupSkipped},
		StartedAt:      startedAt,
	}
}

// Enter records that the job reached stage s.
func (r *Result) Enter(s Stage) {
	r.Stages = append(r.Stages, s)
}

// Visited reports whether the job reached stage s.
func (r *Result) Visited(s Stage) bool {
	for _, v := range r.Stages {
		if v == s {
			return true
		}
	}

	return false
}
