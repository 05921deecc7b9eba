package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

// Transport is the remote host as seen by a packaging job.
type Transport interface {
	// Exec runs a block of shell text and blocks until it finishes.
	// A non-zero exit status is reported as *ExitError.
	Exec(ctx context.Context, block string) error
	// Put uploads local files into remoteDir, keeping their base names.
	Put(ctx context.Context, remoteDir string, localPaths ...string) error
	// Get downloads remote files into localDir, keeping their base names.
	Get(ctx context.Context, localDir string, remotePaths ...string) error
	// Close releases the connection, if any.
	Close() error
}

// Dialer builds the transport of one job. Command output is streamed to output.
// Implementations must not contact the host until the first call.
type Dialer func(creds packaging.Credentials, output io.Writer) (Transport, error)

// SSHDialer returns a Dialer creating SSH transports with opts.
func SSHDialer(opts ...SSHOption) Dialer {
	return func(creds packaging.Credentials, output io.Writer) (Transport, error) {
		tr, err := NewSSH(creds, append(opts[:len(opts):len(opts)], WithOutput(output))...)
		if err != nil {
			return nil, err
		}

		return tr, nil
	}
}

// LocalDialer returns a Dialer creating Local transports running in dir.
func LocalDialer(dir string, opts ...LocalOption) Dialer {
	return func(_ packaging.Credentials, output io.Writer) (Transport, error) {
		return NewLocal(dir, append(opts[:len(opts):len(opts)], WithLocalOutput(output))...), nil
	}
}

// tailLines is how many trailing output lines an ExitError keeps.
const tailLines = 20

// ExitError reports a command block that exited with a non-zero status.
type ExitError struct {
	// Code is the exit status, or -1 when the remote side sent none.
	Code int
	// Tail holds the last lines of combined output.
	Tail []string
}

// Error implements error.
func (e *ExitError) Error() string {
	if len(e.Tail) == 0 {
		return fmt.Sprintf("remote command exited with status %d", e.Code)
	}

	return fmt.Sprintf("remote command exited with status %d: %s", e.Code, e.Tail[len(e.Tail)-1])
}

// tail keeps the last lines written to it.
type tail struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial bytes.Buffer
}

func newTail(maxLines int) *tail {
	return &tail{max: maxLines}
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial.Write(p)

	for {
		line, err := t.partial.ReadString('\n')
		if err != nil {
			t.partial.WriteString(line)
			break
		}

		t.push(strings.TrimRight(line, "\r\n"))
	}

	return len(p), nil
}

func (t *tail) push(line string) {
	if line == "" {
		return
	}

	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

// Lines returns the retained lines including a trailing partial one.
func (t *tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.partial.Len() > 0 {
		t.push(t.partial.String())
		t.partial.Reset()
	}

	return append([]string(nil), t.lines...)
}
