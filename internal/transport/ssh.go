package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/version"
)

const (
	// DefaultShell reads command blocks from stdin on the remote host.
	DefaultShell = "/bin/sh"
	// DefaultDialTimeout bounds connection and handshake.
	DefaultDialTimeout = 30 * time.Second
)

var errHostKeyPolicy = errors.New("host key policy must be configured")

// SSH is a Transport over one SSH connection. The connection is opened lazily
// on first use and re-opened after a connection failure.
type SSH struct {
	creds packaging.Credentials
	opts  sshOptions

	mu     sync.Mutex
	client *ssh.Client
}

type sshOptions struct {
	hostKeyCallback ssh.HostKeyCallback
	dialTimeout     time.Duration
	shell           string
	output          io.Writer
}

// SSHOption configures an SSH transport.
type SSHOption func(*sshOptions)

// WithHostKeyCallback sets the host key verification policy.
func WithHostKeyCallback(cb ssh.HostKeyCallback) SSHOption {
	return func(o *sshOptions) {
		o.hostKeyCallback = cb
	}
}

// WithInsecureIgnoreHostKey accepts any host key.
func WithInsecureIgnoreHostKey() SSHOption {
	return func(o *sshOptions) {
		//nolint:gosec // Explicit opt-in for hosts without known_hosts entries.
		o.hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) SSHOption {
	return func(o *sshOptions) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithShell sets the remote command that reads the block from stdin.
func WithShell(shell string) SSHOption {
	return func(o *sshOptions) {
		if shell != "" {
			o.shell = shell
		}
	}
}

// WithOutput streams remote stdout and stderr to w.
func WithOutput(w io.Writer) SSHOption {
	return func(o *sshOptions) {
		if w != nil {
			o.output = w
		}
	}
}

// KnownHostsCallback builds a host key callback from known_hosts files.
func KnownHostsCallback(files ...string) (ssh.HostKeyCallback, error) {
	cb, err := knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	return cb, nil
}

// NewSSH creates a transport for creds. It does not connect.
func NewSSH(creds packaging.Credentials, opts ...SSHOption) (*SSH, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	o := sshOptions{
		dialTimeout: DefaultDialTimeout,
		shell:       DefaultShell,
		output:      io.Discard,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.hostKeyCallback == nil {
		return nil, errHostKeyPolicy
	}

	return &SSH{
		creds: creds,
		opts:  o,
	}, nil
}

// Exec implements Transport.
func (t *SSH) Exec(ctx context.Context, block string) error {
	client, err := t.connect(ctx)
	if err != nil {
		return err
	}

	session, err := client.NewSession()
	if err != nil {
		t.reset()
		return fmt.Errorf("open session: %w", err)
	}

	defer func() {
		_ = session.Close()
	}()

	output := newTail(tailLines)
	session.Stdin = strings.NewReader(block)
	session.Stdout = io.MultiWriter(t.opts.output, output)
	session.Stderr = io.MultiWriter(t.opts.output, output)

	if err = session.Start(t.opts.shell); err != nil {
		return fmt.Errorf("start remote shell: %w", err)
	}

	done := make(chan error, 1)

	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done

		return fmt.Errorf("remote command interrupted: %w", ctx.Err())
	case err = <-done:
	}

	var (
		exitErr    *ssh.ExitError
		missingErr *ssh.ExitMissingError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		return &ExitError{Code: exitErr.ExitStatus(), Tail: output.Lines()}
	case errors.As(err, &missingErr):
		return &ExitError{Code: -1, Tail: output.Lines()}
	default:
		t.reset()
		return fmt.Errorf("remote command: %w", err)
	}
}

// Put implements Transport.
func (t *SSH) Put(ctx context.Context, remoteDir string, localPaths ...string) error {
	return t.withSFTP(ctx, func(sc *sftp.Client) error {
		if err := sc.MkdirAll(remoteDir); err != nil {
			return fmt.Errorf("create %s: %w", remoteDir, err)
		}

		for _, local := range localPaths {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := upload(sc, local, path.Join(remoteDir, filepath.Base(local))); err != nil {
				return err
			}
		}

		return nil
	})
}

// Get implements Transport.
func (t *SSH) Get(ctx context.Context, localDir string, remotePaths ...string) error {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", localDir, err)
	}

	return t.withSFTP(ctx, func(sc *sftp.Client) error {
		for _, remote := range remotePaths {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := download(sc, remote, filepath.Join(localDir, path.Base(remote))); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close implements Transport.
func (t *SSH) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}

	err := t.client.Close()
	t.client = nil

	return err
}

func (t *SSH) withSFTP(ctx context.Context, fn func(sc *sftp.Client) error) error {
	client, err := t.connect(ctx)
	if err != nil {
		return err
	}

	sc, err := sftp.NewClient(client)
	if err != nil {
		t.reset()
		return fmt.Errorf("start sftp: %w", err)
	}

	defer func() {
		_ = sc.Close()
	}()

	return fn(sc)
}

func (t *SSH) connect(ctx context.Context) (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return t.client, nil
	}

	address := t.creds.Address()
	dialer := net.Dialer{Timeout: t.opts.dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	// Bound the handshake; the deadline is lifted once the connection is up.
	_ = conn.SetDeadline(time.Now().Add(t.opts.dialTimeout))

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, t.clientConfig())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", t.creds, err)
	}

	_ = conn.SetDeadline(time.Time{})

	t.client = ssh.NewClient(sshConn, chans, reqs)

	return t.client, nil
}

func (t *SSH) clientConfig() *ssh.ClientConfig {
	password := t.creds.Password

	//nolint:exhaustruct // Remaining fields keep library defaults.
	return &ssh.ClientConfig{
		User: t.creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}

				return answers, nil
			}),
		},
		HostKeyCallback: t.opts.hostKeyCallback,
		Timeout:         t.opts.dialTimeout,
		ClientVersion:   version.SSHClientVersion(),
	}
}

// reset drops a connection that is assumed broken.
func (t *SSH) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}
}

func upload(sc *sftp.Client, local, remote string) error {
	src, err := os.Open(filepath.Clean(local))
	if err != nil {
		return fmt.Errorf("open %s: %w", local, err)
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := sc.Create(remote)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remote, err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("put %s: %w", remote, err)
	}

	if err = dst.Close(); err != nil {
		return fmt.Errorf("close remote %s: %w", remote, err)
	}

	return nil
}

func download(sc *sftp.Client, remote, local string) error {
	src, err := sc.Open(remote)
	if err != nil {
		return fmt.Errorf("open remote %s: %w", remote, err)
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := os.Create(filepath.Clean(local))
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("get %s: %w", remote, err)
	}

	if err = dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", local, err)
	}

	return nil
}
