package packager

import (
	"context"
	"errors"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/logger"
	"github.com/oshokin/remote-packager/internal/script"
	"github.com/oshokin/remote-packager/internal/transport"
)

// transferUp uploads the staged archive and script into the remote root.
func (*Packager) transferUp(ctx context.Context, inv *invocation) error {
	logger.InfoKV(ctx, "Uploading archive and script", "remote_root", inv.ws.Root)

	return inv.tr.Put(ctx, inv.ws.Root, inv.staged...)
}

// executeRemote converts and sources the uploaded script. A non-zero exit is
// mapped back to the script step that produced it.
func (p *Packager) executeRemote(ctx context.Context, inv *invocation) error {
	block, err := script.Bootstrap(inv.params)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	logger.InfoKV(ctx, "Running remote script", "script", inv.ws.ScriptPath(), "workspace", inv.ws.FullPath())

	err = inv.tr.Exec(ctx, block)
	inv.output.Flush()

	if err == nil {
		return nil
	}

	stageErr := packaging.NewStageError(packaging.StageExecutingRemote, packaging.ErrRemoteExecution, err)

	var exitErr *transport.ExitError
	if errors.As(err, &exitErr) {
		stageErr.ExitCode = exitErr.Code

		if step, ok := script.StepByExitCode(script.PackagingSteps(inv.job.Compress), exitErr.Code); ok {
			stageErr.Step = step.Name
		}
	}

	return stageErr
}
