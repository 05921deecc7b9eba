package packager

import (
	"context"
	"path"
	"path/filepath"

	"github.com/oshokin/remote-packager/internal/logger"
)

// retrieve fetches the package and the extra files into the local workspace in one batch.
func (*Packager) retrieve(ctx context.Context, inv *invocation) error {
	var (
		full   = inv.ws.FullPath()
		target = inv.job.Artifact().Target()
		local  = inv.job.LocalWorkspace
	)

	remotes := make([]string, 0, len(inv.job.ExtraFiles)+1)
	remotes = append(remotes, path.Join(full, target))

	for _, f := range inv.job.ExtraFiles {
		remotes = append(remotes, path.Join(full, f))
	}

	logger.InfoKV(ctx, "Retrieving package", "files", remotes, "destination", local)

	if err := inv.tr.Get(ctx, local, remotes...); err != nil {
		return err
	}

	artifact := filepath.Join(local, target)

	checksum, err := fileChecksum(artifact)
	if err != nil {
		return err
	}

	inv.result.ArtifactPath = artifact
	inv.result.ArtifactChecksum = checksum

	for _, f := range inv.job.ExtraFiles {
		inv.result.ExtraFiles = append(inv.result.ExtraFiles, filepath.Join(local, path.Base(f)))
	}

	logger.InfoKV(ctx, "Package retrieved", "path", artifact, "checksum", checksum)

	return nil
}
