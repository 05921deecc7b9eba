package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ExecMiddleware wraps the interpreter's command execution.
type ExecMiddleware = func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc

// Local is a Transport whose remote host is the local machine. Blocks run
// in-process with the mvdan.cc/sh interpreter and files are copied.
type Local struct {
	dir      string
	output   io.Writer
	handlers []ExecMiddleware
}

// LocalOption configures a Local transport.
type LocalOption func(*Local)

// WithLocalOutput streams block output to w.
func WithLocalOutput(w io.Writer) LocalOption {
	return func(l *Local) {
		if w != nil {
			l.output = w
		}
	}
}

// WithExecHandlers installs interpreter middlewares, outermost first.
func WithExecHandlers(handlers ...ExecMiddleware) LocalOption {
	return func(l *Local) {
		l.handlers = append(l.handlers, handlers...)
	}
}

// NewLocal creates a transport running blocks in dir.
func NewLocal(dir string, opts ...LocalOption) *Local {
	l := &Local{
		dir:    dir,
		output: io.Discard,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Exec implements Transport.
func (l *Local) Exec(ctx context.Context, block string) error {
	file, err := syntax.NewParser().Parse(strings.NewReader(block), "block")
	if err != nil {
		return fmt.Errorf("parse command block: %w", err)
	}

	output := newTail(tailLines)
	w := io.MultiWriter(l.output, output)

	runner, err := interp.New(
		interp.Dir(l.dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, w, w),
		interp.ExecHandlers(l.handlers...),
	)
	if err != nil {
		return fmt.Errorf("create interpreter: %w", err)
	}

	err = runner.Run(ctx, file)

	var status interp.ExitStatus

	switch {
	case err == nil:
		return nil
	case errors.As(err, &status):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("command block interrupted: %w", ctxErr)
		}

		return &ExitError{Code: int(status), Tail: output.Lines()}
	default:
		return fmt.Errorf("run command block: %w", err)
	}
}

// Put implements Transport.
func (*Local) Put(ctx context.Context, remoteDir string, localPaths ...string) error {
	dir := filepath.FromSlash(remoteDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", remoteDir, err)
	}

	for _, local := range localPaths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := copyFile(local, filepath.Join(dir, filepath.Base(local))); err != nil {
			return err
		}
	}

	return nil
}

// Get implements Transport.
func (*Local) Get(ctx context.Context, localDir string, remotePaths ...string) error {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", localDir, err)
	}

	for _, remote := range remotePaths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := copyFile(filepath.FromSlash(remote), filepath.Join(localDir, path.Base(remote))); err != nil {
			return err
		}
	}

	return nil
}

// Close implements Transport.
func (*Local) Close() error {
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}
