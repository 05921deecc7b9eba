package packager

import (
	"context"
	"fmt"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/logger"
	"github.com/oshokin/remote-packager/internal/script"
)

// clean runs the catch-all hook and removes the remote workspace. The stages
// are independent and neither can change the job outcome. Cleanup ignores
// cancellation of ctx and is bounded by the cleanup timeout instead.
func (p *Packager) clean(ctx context.Context, inv *invocation) {
	inv.result.Enter(packaging.StageCleaning)

	if inv.job.KeepTempFolder {
		logger.WarnKV(ctx, "Remote workspace will be left as-is without clean-up", "path", inv.ws.FullPath())

		retained := packaging.CleanupOutcome{Status: packaging.CleanupRetained}
		inv.result.HookOutcome = retained
		inv.result.RemovalOutcome = retained

		return
	}

	ctx = context.WithoutCancel(ctx)

	if p.cleanupTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.cleanupTimeout)
		defer cancel()
	}

	inv.result.HookOutcome = p.cleanupStage(ctx, inv, "catch-all hook", script.CatchAll)
	inv.result.RemovalOutcome = p.cleanupStage(ctx, inv, "workspace removal", script.Removal)
}

// cleanupStage renders and executes one cleanup block, recording failures as warnings.
func (*Packager) cleanupStage(
	ctx context.Context,
	inv *invocation,
	name string,
	render func(*script.Params) (string, error),
) (outcome packaging.CleanupOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = warning(ctx, name, fmt.Errorf("panic: %v", r))
		}
	}()

	block, err := render(inv.params)
	if err != nil {
		return warning(ctx, name, err)
	}

	logger.InfoKV(ctx, "Running cleanup", "stage", name)

	err = inv.tr.Exec(ctx, block)
	inv.output.Flush()

	if err != nil {
		return warning(ctx, name, err)
	}

	return packaging.CleanupOutcome{Status: packaging.CleanupDone}
}

func warning(ctx context.Context, name string, err error) packaging.CleanupOutcome {
	logger.WarnKV(ctx, "Cleanup failed", "stage", name, "error", err)

	return packaging.CleanupOutcome{
		Status:  packaging.CleanupWarning,
		Message: err.Error(),
	}
}
