package remotesim

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"strconv"
	"testing"

	"github.com/charmbracelet/ssh"
	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

// SSHConfig configures the emulated host.
type SSHConfig struct {
	// User and Password are the only accepted credentials.
	User     string
	Password string
	// Dir is the working directory of every command block.
	Dir string
}

// SSHServer is a running emulated host.
type SSHServer struct {
	// Host and Port locate the listener.
	Host string
	Port int
	// HostKey is the server public key, for known_hosts checks.
	HostKey gossh.PublicKey
}

// Addr returns host:port.
func (s *SSHServer) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StartSSH starts an emulated host on a loopback port and stops it on test cleanup.
// Command blocks arrive on the session stdin and run through Run; the "sftp"
// subsystem serves the real filesystem.
func StartSSH(t testing.TB, cfg SSHConfig) *SSHServer {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := gossh.NewSignerFromKey(key)
	require.NoError(t, err)

	//nolint:exhaustruct // Only the handlers used by the packaging transport are set.
	srv := &ssh.Server{
		Handler: func(s ssh.Session) {
			code, err := Run(s.Context(), cfg.Dir, s, s, s.Stderr())
			if err != nil {
				_, _ = fmt.Fprintln(s.Stderr(), err)
				_ = s.Exit(255)

				return
			}

			_ = s.Exit(code)
		},
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			return ctx.User() == cfg.User && password == cfg.Password
		},
		SubsystemHandlers: map[string]ssh.SubsystemHandler{
			"sftp": func(s ssh.Session) {
				server, err := sftp.NewServer(s)
				if err != nil {
					return
				}

				_ = server.Serve()
				_ = server.Close()
			},
		},
	}
	srv.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = srv.Serve(listener)
	}()

	t.Cleanup(func() {
		_ = srv.Close()
	})

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)

	return &SSHServer{
		Host:    tcpAddr.IP.String(),
		Port:    tcpAddr.Port,
		HostKey: signer.PublicKey(),
	}
}
