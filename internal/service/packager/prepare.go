package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/remote-packager/internal/archive"
	"github.com/oshokin/remote-packager/internal/codeset"
	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/logger"
	"github.com/oshokin/remote-packager/internal/script"
)

var errNotDirectory = errors.New("not a directory")

// prepareLocal runs the prepare-workspace hook, splits off the ascii subtree,
// archives the workspace and stages the encoded remote script.
func (p *Packager) prepareLocal(ctx context.Context, inv *invocation) error {
	local := inv.job.LocalWorkspace

	info, err := os.Stat(local)
	if err != nil {
		return fmt.Errorf("local workspace: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("local workspace %s: %w", local, errNotDirectory)
	}

	if err = runLocalHook(ctx, local, packaging.HookPrepareWorkspace, inv.job.Environment); err != nil {
		return err
	}

	if entries, listErr := archive.List(local); listErr == nil {
		logger.DebugKV(ctx, "Packaging contents", "workspace", local, "entries", entries)
	}

	separated, err := archive.Separate(local, packaging.ASCIIDir, packaging.ASCIIArchive)
	if err != nil {
		return fmt.Errorf("archive %s subtree: %w", packaging.ASCIIDir, err)
	}

	if separated {
		logger.InfoKV(ctx, "Archived text content separately", "archive", packaging.ASCIIArchive)
	}

	inv.staging, err = os.MkdirTemp(p.stagingDir, "remote-packager-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	archivePath := filepath.Join(inv.staging, inv.ws.ArchiveName())
	if err = archive.Write(archivePath, local); err != nil {
		return err
	}

	scriptPath := filepath.Join(inv.staging, inv.ws.ScriptName())
	if err = writeScript(scriptPath, inv.params); err != nil {
		return err
	}

	inv.staged = []string{archivePath, scriptPath}

	logger.InfoKV(ctx, "Local workspace staged", "archive", archivePath, "script", scriptPath)

	return nil
}

// writeScript renders the remote script and stores it in the transfer encoding.
func writeScript(dst string, params *script.Params) error {
	text, err := script.Packaging(params)
	if err != nil {
		return err
	}

	encoded, err := codeset.Encode(params.TransferEncoding, []byte(text))
	if err != nil {
		return fmt.Errorf("encode remote script: %w", err)
	}

	if err = os.WriteFile(dst, encoded, archive.DefaultFileMode); err != nil {
		return fmt.Errorf("write remote script: %w", err)
	}

	return nil
}

// runLocalHook executes hook from dir, if present, with env prefixed to the
// invocation. Output is streamed to the log line by line.
func runLocalHook(ctx context.Context, dir string, hook packaging.Hook, env map[string]string) error {
	name := filepath.Join(dir, hook.Filename())

	info, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		logger.DebugKV(ctx, "Hook not present", "hook", hook)
		return nil
	}

	if err != nil {
		return fmt.Errorf("stat %s hook: %w", hook, err)
	}

	if err = os.Chmod(name, info.Mode().Perm()|0o111); err != nil {
		return fmt.Errorf("make %s hook executable: %w", hook, err)
	}

	prefix, err := script.EnvironmentPrefix(packaging.SortedEnvironment(env))
	if err != nil {
		return err
	}

	line := script.HookInvocation(prefix, hook)

	file, err := syntax.NewParser().Parse(strings.NewReader(line), hook.Filename())
	if err != nil {
		return fmt.Errorf("parse %s hook invocation: %w", hook, err)
	}

	output := logger.NewLineWriter(ctx, hook.String())
	defer output.Flush()

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, output, output),
	)
	if err != nil {
		return fmt.Errorf("prepare %s hook: %w", hook, err)
	}

	logger.InfoKV(ctx, "Running local hook", "hook", hook, "environment", prefix)

	return hookError(hook, runner.Run(ctx, file))
}

func hookError(hook packaging.Hook, err error) error {
	var status interp.ExitStatus

	switch {
	case err == nil:
		return nil
	case errors.As(err, &status):
		if status == 0 {
			return nil
		}

		return fmt.Errorf("%s hook exited with status %d", hook, status)
	default:
		return fmt.Errorf("run %s hook: %w", hook, err)
	}
}
