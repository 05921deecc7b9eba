package remotesim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Run executes the shell text read from script in dir and returns its exit status.
func Run(ctx context.Context, dir string, script io.Reader, stdout, stderr io.Writer) (int, error) {
	file, err := syntax.NewParser().Parse(script, "remote")
	if err != nil {
		return 0, fmt.Errorf("parse command block: %w", err)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, stdout, stderr),
		interp.ExecHandlers(Handlers),
	)
	if err != nil {
		return 0, fmt.Errorf("create interpreter: %w", err)
	}

	err = runner.Run(ctx, file)

	var status interp.ExitStatus
	if errors.As(err, &status) {
		return int(status), nil
	}

	if err != nil {
		return 0, err
	}

	return 0, nil
}

// RunString is Run for a script held in a string.
func RunString(ctx context.Context, dir, script string, stdout, stderr io.Writer) (int, error) {
	return Run(ctx, dir, strings.NewReader(script), stdout, stderr)
}
