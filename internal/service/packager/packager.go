package packager

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/logger"
	"github.com/oshokin/remote-packager/internal/script"
	"github.com/oshokin/remote-packager/internal/transport"
)

// DefaultCleanupTimeout bounds the cleanup stages of one job.
const DefaultCleanupTimeout = 5 * time.Minute

// Packager runs packaging jobs. It keeps no per-job state, so jobs may run
// concurrently; callers sharing one host must respect its session limits.
type Packager struct {
	// dial builds the transport of each job.
	dial transport.Dialer
	// encodings are the transfer and native code sets of the remote host.
	encodings script.Encodings
	// timeout bounds remote execution; zero means no limit.
	timeout time.Duration
	// cleanupTimeout bounds cleanup; zero means no limit.
	cleanupTimeout time.Duration
	// stagingDir holds the per-job local staging directories; empty means the OS temp dir.
	stagingDir string
	// now is the clock used for submission and result times.
	now func() time.Time
}

// Option configures a Packager.
type Option func(*Packager)

// WithEncodings sets the transfer and native encodings.
func WithEncodings(enc script.Encodings) Option {
	return func(p *Packager) {
		p.encodings = enc
	}
}

// WithTimeout bounds the remote execution stage.
func WithTimeout(d time.Duration) Option {
	return func(p *Packager) {
		p.timeout = d
	}
}

// WithCleanupTimeout bounds the cleanup stages.
func WithCleanupTimeout(d time.Duration) Option {
	return func(p *Packager) {
		p.cleanupTimeout = d
	}
}

// WithStagingDir sets where local archives and scripts are staged before upload.
func WithStagingDir(dir string) Option {
	return func(p *Packager) {
		p.stagingDir = dir
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Packager using dial to reach the remote host.
func New(dial transport.Dialer, opts ...Option) *Packager {
	p := &Packager{
		dial:           dial,
		encodings:      script.DefaultEncodings(),
		cleanupTimeout: DefaultCleanupTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// invocation is the state of one job run.
type invocation struct {
	job    *packaging.Job
	ws     packaging.Workspace
	params *script.Params
	tr     transport.Transport
	output *logger.LineWriter
	result *packaging.Result
	// staging is the local directory holding the files to upload.
	staging string
	// staged are the local archive and script paths.
	staged []string
}

// stage is one step of the main pipeline.
type stage struct {
	name packaging.Stage
	kind error
	run  func(ctx context.Context, inv *invocation) error
}

// Pack runs job to completion and returns its result. The returned error is nil
// exactly when the result outcome is success; otherwise it is a
// *packaging.StageError naming the failed stage. Pack normalizes job in place.
func (p *Packager) Pack(ctx context.Context, job *packaging.Job) (*packaging.Result, error) {
	ctx = logger.WithName(ctx, "packager")

	result := packaging.NewResult(job.ID, p.now())
	result.Enter(packaging.StageValidating)

	if actor, err := detectActor(); err == nil {
		result.SubmittedBy = actor
	} else {
		logger.DebugKV(ctx, "Could not detect the local actor", "error", err)
	}

	inv, err := p.validate(ctx, job, result)
	if err != nil {
		logger.ErrorKV(ctx, "Job rejected", "job", job.ID, "error", err)

		return p.finish(ctx, result, err), err
	}

	ctx = logger.WithKV(ctx, "job", job.ID, "process_uid", inv.ws.ProcessUID)

	defer func() {
		_ = inv.tr.Close()
	}()

	defer p.removeStaging(ctx, inv)

	err = p.pipeline(ctx, inv)
	if err != nil {
		logger.ErrorKV(ctx, "Packaging failed", "error", err)
	}

	p.clean(ctx, inv)

	return p.finish(ctx, result, err), err
}

// validate checks the job and builds everything later stages need without
// touching the network or the filesystem.
func (p *Packager) validate(ctx context.Context, job *packaging.Job, result *packaging.Result) (*invocation, error) {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = p.now()
	}

	if err := job.Validate(); err != nil {
		return nil, packaging.NewStageError(packaging.StageValidating, packaging.ErrValidation, err)
	}

	ws := packaging.NewWorkspace(job.RemoteWorkspace, job.ID, job.SubmittedAt)
	result.ProcessUID = ws.ProcessUID

	params, err := script.NewParams(job, ws, p.encodings)
	if err != nil {
		return nil, packaging.NewStageError(packaging.StageValidating, packaging.ErrValidation, err)
	}

	ctx = logger.WithKV(ctx, "job", job.ID, "process_uid", ws.ProcessUID)
	output := logger.NewLineWriter(ctx, "remote")

	tr, err := p.dial(job.Credentials, output)
	if err != nil {
		return nil, packaging.NewStageError(packaging.StageValidating, packaging.ErrTransfer, err)
	}

	return &invocation{
		job:    job,
		ws:     ws,
		params: params,
		tr:     tr,
		output: output,
		result: result,
	}, nil
}

func (p *Packager) pipeline(ctx context.Context, inv *invocation) error {
	stages := []stage{
		{name: packaging.StagePreparingLocal, kind: packaging.ErrLocalPrepare, run: p.prepareLocal},
		{name: packaging.StageTransferringUp, kind: packaging.ErrTransfer, run: p.transferUp},
		{name: packaging.StageExecutingRemote, kind: packaging.ErrRemoteExecution, run: p.executeRemote},
		{name: packaging.StageRetrieving, kind: packaging.ErrTransfer, run: p.retrieve},
	}

	for _, s := range stages {
		inv.result.Enter(s.name)
		logger.InfoKV(ctx, "Entering stage", "stage", s.name)

		err := ctx.Err()
		if err == nil {
			err = s.run(ctx, inv)
		}

		if err == nil {
			continue
		}

		var stageErr *packaging.StageError
		if errors.As(err, &stageErr) {
			return stageErr
		}

		return packaging.NewStageError(s.name, s.kind, err)
	}

	return nil
}

func (p *Packager) finish(ctx context.Context, result *packaging.Result, err error) *packaging.Result {
	result.Enter(packaging.StageDone)
	result.FinishedAt = p.now()

	if err == nil {
		result.Outcome = packaging.OutcomeSuccess

		logger.InfoKV(ctx, "Packaging completed", "artifact", result.ArtifactPath)

		return result
	}

	result.Outcome = packaging.OutcomeFailure
	result.Error = err.Error()

	var stageErr *packaging.StageError
	if errors.As(err, &stageErr) {
		result.FailedStage = stageErr.Stage
	}

	return result
}

func (*Packager) removeStaging(ctx context.Context, inv *invocation) {
	if inv.staging == "" {
		return
	}

	if err := os.RemoveAll(inv.staging); err != nil {
		logger.WarnKV(ctx, "Failed to remove local staging directory", "path", inv.staging, "error", err)
	}
}
