package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
	"github.com/oshokin/remote-packager/internal/testutil/remotesim"
)

const (
	testUser     = "builder"
	testPassword = "secret"
)

// lockedBuffer collects output written concurrently from stdout and stderr.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func startHost(t *testing.T) (*remotesim.SSHServer, string) {
	t.Helper()

	dir := t.TempDir()
	srv := remotesim.StartSSH(t, remotesim.SSHConfig{
		User:     testUser,
		Password: testPassword,
		Dir:      dir,
	})

	return srv, dir
}

func credentials(srv *remotesim.SSHServer) packaging.Credentials {
	return packaging.Credentials{
		Host:     srv.Host,
		Port:     srv.Port,
		Username: testUser,
		Password: testPassword,
	}
}

func newSSH(t *testing.T, creds packaging.Credentials, opts ...SSHOption) *SSH {
	t.Helper()

	opts = append([]SSHOption{WithInsecureIgnoreHostKey(), WithDialTimeout(5 * time.Second)}, opts...)

	tr, err := NewSSH(creds, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tr.Close()
	})

	return tr
}

func TestNewSSH_RequiresHostKeyPolicy(t *testing.T) {
	t.Parallel()

	_, err := NewSSH(packaging.Credentials{Host: "h", Port: 22, Username: "u", Password: "p"})
	require.ErrorIs(t, err, errHostKeyPolicy)

	_, err = NewSSH(packaging.Credentials{Host: "h", Port: 22, Username: "u"}, WithInsecureIgnoreHostKey())
	require.ErrorIs(t, err, packaging.ErrValidation)
}

func TestSSH_Exec(t *testing.T) {
	t.Parallel()

	srv, dir := startHost(t)

	var out lockedBuffer

	tr := newSSH(t, credentials(srv), WithOutput(&out))

	require.NoError(t, tr.Exec(context.Background(), "echo hello\necho world > greeting.txt\n"))
	require.Contains(t, out.String(), "hello")
	require.FileExists(t, filepath.Join(dir, "greeting.txt"))

	// The connection is reused by the next block.
	require.NoError(t, tr.Exec(context.Background(), "test -f greeting.txt"))
}

func TestSSH_ExecExitStatus(t *testing.T) {
	t.Parallel()

	srv, _ := startHost(t)
	tr := newSSH(t, credentials(srv))

	err := tr.Exec(context.Background(), "echo first\necho '[ERROR] broken'\nexit 12\n")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 12, exitErr.Code)
	require.Equal(t, []string{"first", "[ERROR] broken"}, exitErr.Tail)
	require.Contains(t, exitErr.Error(), "[ERROR] broken")
}

func TestSSH_ExecInterrupted(t *testing.T) {
	t.Parallel()

	srv, _ := startHost(t)
	tr := newSSH(t, credentials(srv))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := tr.Exec(ctx, "sleep 5\n")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(started), 4*time.Second)
}

func TestSSH_WrongPassword(t *testing.T) {
	t.Parallel()

	srv, _ := startHost(t)

	creds := credentials(srv)
	creds.Password = "wrong"

	tr := newSSH(t, creds)

	err := tr.Exec(context.Background(), "true")
	require.Error(t, err)

	var exitErr *ExitError
	require.False(t, errors.As(err, &exitErr))
}

func TestSSH_PutGet(t *testing.T) {
	t.Parallel()

	srv, dir := startHost(t)
	tr := newSSH(t, credentials(srv))

	local := t.TempDir()
	src := filepath.Join(local, "job.tar")
	require.NoError(t, os.WriteFile(src, []byte("archive"), 0o600))

	remoteDir := filepath.ToSlash(filepath.Join(dir, "root"))
	require.NoError(t, tr.Put(context.Background(), remoteDir, src))

	data, err := os.ReadFile(filepath.Join(dir, "root", "job.tar"))
	require.NoError(t, err)
	require.Equal(t, "archive", string(data))

	back := filepath.Join(local, "back")
	require.NoError(t, tr.Get(context.Background(), back, remoteDir+"/job.tar"))

	data, err = os.ReadFile(filepath.Join(back, "job.tar"))
	require.NoError(t, err)
	require.Equal(t, "archive", string(data))

	err = tr.Get(context.Background(), back, remoteDir+"/missing.txt")
	require.Error(t, err)
}

func TestSSH_KnownHosts(t *testing.T) {
	t.Parallel()

	srv, _ := startHost(t)
	other, _ := startHost(t)

	file := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(srv.Addr())}, srv.HostKey)
	require.NoError(t, os.WriteFile(file, []byte(line+"\n"), 0o600))

	cb, err := KnownHostsCallback(file)
	require.NoError(t, err)

	tr, err := NewSSH(credentials(srv), WithHostKeyCallback(cb))
	require.NoError(t, err)
	require.NoError(t, tr.Exec(context.Background(), "true"))
	require.NoError(t, tr.Close())

	// A host missing from the file is refused.
	tr, err = NewSSH(credentials(other), WithHostKeyCallback(cb))
	require.NoError(t, err)
	require.Error(t, tr.Exec(context.Background(), "true"))
	require.NoError(t, tr.Close())

	_, err = KnownHostsCallback(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var out bytes.Buffer

	tr := NewLocal(dir, WithLocalOutput(&out), WithExecHandlers(remotesim.Handlers))

	local := t.TempDir()
	src := filepath.Join(local, "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o600))

	ctx := context.Background()
	require.NoError(t, tr.Put(ctx, filepath.Join(dir, "in"), src))
	require.NoError(t, tr.Exec(ctx, "cd in && pax -w -f out.tar hello.txt && echo packed"))
	require.Contains(t, out.String(), "packed")

	back := filepath.Join(local, "back")
	require.NoError(t, tr.Get(ctx, back, filepath.ToSlash(filepath.Join(dir, "in", "out.tar"))))
	require.FileExists(t, filepath.Join(back, "out.tar"))

	err := tr.Exec(ctx, "echo nope; exit 3")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)
	require.Equal(t, []string{"nope"}, exitErr.Tail)

	require.Error(t, tr.Exec(ctx, "if then"))
	require.NoError(t, tr.Close())
}

func TestTail(t *testing.T) {
	t.Parallel()

	tl := newTail(2)
	_, _ = tl.Write([]byte("a\nb\r\n"))
	_, _ = tl.Write([]byte("c\n\npartial"))

	require.Equal(t, []string{"c", "partial"}, tl.Lines())
}
