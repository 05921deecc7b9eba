package packaging

// Stage is a step of the per-job state machine.
//
// A job moves VALIDATING → PREPARING_LOCAL → TRANSFERRING_UP → EXECUTING_REMOTE →
// RETRIEVING → CLEANING → DONE. A failure in any stage after validation jumps
// straight to CLEANING; a validation failure ends the job immediately.
type Stage string

const (
	StageValidating      Stage = "validating"
	StagePreparingLocal  Stage = "preparing-local"
	StageTransferringUp  Stage = "transferring-up"
	StageExecutingRemote Stage = "executing-remote"
	StageRetrieving      Stage = "retrieving"
	StageCleaning        Stage = "cleaning"
	StageDone            Stage = "done"
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	return string(s)
}
