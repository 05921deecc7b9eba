package packaging

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validJob() *Job {
	return &Job{
		ID: "build-42",
		Credentials: Credentials{
			Host:     "zos.example.com",
			Port:     22,
			Username: "ibmuser",
			Password: "secret",
		},
		Filename:        "pkg.tar",
		LocalWorkspace:  "/tmp/local",
		RemoteWorkspace: "/tmp/remote",
	}
}

// TestJobValidate_RequiredFields checks every required field is reported by name.
func TestJobValidate_RequiredFields(t *testing.T) {
	t.Parallel()

	cases := map[string]func(j *Job){
		"ssh.host":         func(j *Job) { j.Credentials.Host = "" },
		"ssh.port":         func(j *Job) { j.Credentials.Port = 0 },
		"ssh.username":     func(j *Job) { j.Credentials.Username = "" },
		"ssh.password":     func(j *Job) { j.Credentials.Password = "" },
		"job":              func(j *Job) { j.ID = " " },
		"package.filename": func(j *Job) { j.Filename = "" },
		"workspace.local":  func(j *Job) { j.LocalWorkspace = "" },
		"workspace.remote": func(j *Job) { j.RemoteWorkspace = "/" },
	}

	for field, mutate := range cases {
		j := validJob()
		mutate(j)

		err := j.Validate()
		require.ErrorIs(t, err, ErrValidation, field)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, field, verr.Field)
	}
}

// TestJobValidate_Normalizes checks defaults and normalization of optional fields.
func TestJobValidate_Normalizes(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.ExtraFiles = []string{"a", " b ", "a", "dir/../c"}

	require.NoError(t, j.Validate())
	require.Equal(t, []string{"a", "b", "c"}, j.ExtraFiles)
	require.False(t, j.SubmittedAt.IsZero())
}

// TestJobValidate_RejectsBadOptionalFields covers malformed optional values.
func TestJobValidate_RejectsBadOptionalFields(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Environment = map[string]string{"1BAD": "x"}
	require.ErrorIs(t, j.Validate(), ErrValidation)

	j = validJob()
	j.ExtraFiles = []string{"../escape"}
	require.ErrorIs(t, j.Validate(), ErrValidation)

	j = validJob()
	j.ExtraFiles = []string{"logs/" + j.Filename}
	require.ErrorIs(t, j.Validate(), ErrValidation)

	j = validJob()
	j.Filename = "dir/pkg.tar"
	require.ErrorIs(t, j.Validate(), ErrValidation)

	j = validJob()
	j.Compress = true
	j.Filename = ".Z"
	require.ErrorIs(t, j.Validate(), ErrValidation)
}

// TestResolveArtifact covers the compressed and uncompressed naming rules.
func TestResolveArtifact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		compress bool
		working  string
		target   string
	}{
		{filename: "pkg.tar", compress: false, working: "pkg.tar", target: "pkg.tar"},
		{filename: "pkg.tar", compress: true, working: "pkg.tar", target: "pkg.tar.Z"},
		{filename: "pkg.tar.Z", compress: true, working: "pkg.tar", target: "pkg.tar.Z"},
		{filename: "pkg.tar.Z", compress: false, working: "pkg.tar.Z", target: "pkg.tar.Z"},
	}

	for _, tc := range cases {
		a := ResolveArtifact(tc.filename, tc.compress)
		require.Equal(t, tc.working, a.WorkingName, tc.filename)
		require.Equal(t, tc.target, a.Target(), tc.filename)
	}
}

// TestNormalizeExtraFiles checks that string and list forms agree and other shapes fail.
func TestNormalizeExtraFiles(t *testing.T) {
	t.Parallel()

	fromString, err := NormalizeExtraFiles("a,b,c")
	require.NoError(t, err)

	fromList, err := NormalizeExtraFiles([]string{"a", "b", "c"})
	require.NoError(t, err)

	fromAny, err := NormalizeExtraFiles([]any{"a", "b", "c"})
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b", "c"}, fromString)
	require.Equal(t, fromString, fromList)
	require.Equal(t, fromString, fromAny)

	empty, err := NormalizeExtraFiles(nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	for _, bad := range []any{42, map[string]any{"a": 1}, []any{"a", 1}, true, "/abs/path", ".", "a/log,b/log"} {
		_, err = NormalizeExtraFiles(bad)
		require.ErrorIs(t, err, ErrValidation, "%v", bad)
	}
}

// TestNewProcessUID checks uniqueness and that the job id and time are embedded.
func TestNewProcessUID(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	a := NewProcessUID("build 42", first)
	b := NewProcessUID("build 42", second)
	c := NewProcessUID("build 42", first)

	require.True(t, strings.HasPrefix(a, "build-42-20261014093000-"))
	require.True(t, strings.HasPrefix(b, "build-42-20261014093100-"))
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)

	seen := make(map[string]struct{})
	for range 200 {
		w := NewWorkspace("/tmp/root/", "same", first)
		_, dup := seen[w.FullPath()]
		require.False(t, dup)
		seen[w.FullPath()] = struct{}{}
	}
}

// TestWorkspacePaths checks the remote layout derived from the process uid.
func TestWorkspacePaths(t *testing.T) {
	t.Parallel()

	w := Workspace{Root: "/u/pax", ProcessUID: "uid"}
	require.Equal(t, "/u/pax/uid", w.FullPath())
	require.Equal(t, "/u/pax/uid.tar", w.ArchivePath())
	require.Equal(t, "/u/pax/uid.sh", w.ScriptPath())
}

// TestStageError_Unwrap ensures both the kind and the cause are reachable.
func TestStageError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewStageError(StageTransferringUp, ErrTransfer, cause)

	require.ErrorIs(t, err, ErrTransfer)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrRemoteExecution)
	require.Contains(t, err.Error(), "transferring-up")
}

// TestCredentialsString never exposes the password.
func TestCredentialsString(t *testing.T) {
	t.Parallel()

	c := validJob().Credentials
	require.Equal(t, "ibmuser@zos.example.com:22", c.String())
	require.NotContains(t, c.String(), "secret")
}
