package packaging

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Credentials identify the remote host account used by one job.
// They are never persisted.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Address returns host:port.
func (c Credentials) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// String renders the credentials without the password.
func (c Credentials) String() string {
	return c.Username + "@" + c.Address()
}

// Validate checks that every credential field is present.
func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return &ValidationError{Field: "ssh.host"}
	case c.Port == 0:
		return &ValidationError{Field: "ssh.port"}
	case c.Port < 0 || c.Port > 65535:
		return &ValidationError{Field: "ssh.port", Reason: "must be between 1 and 65535"}
	case c.Username == "":
		return &ValidationError{Field: "ssh.username"}
	case c.Password == "":
		return &ValidationError{Field: "ssh.password"}
	}

	return nil
}

// Job describes one packaging request.
type Job struct {
	// ID identifies the job; it seeds the process uid.
	ID string
	// Credentials for the remote host.
	Credentials Credentials
	// Filename is the package file name to produce.
	Filename string
	// LocalWorkspace is the local directory holding content, ascii and hooks.
	LocalWorkspace string
	// RemoteWorkspace is the remote root under which the job works.
	RemoteWorkspace string
	// ArchiveOptions are extra options for the remote archiver write command.
	ArchiveOptions string
	// Compress requests compression of the produced package.
	Compress bool
	// CompressOptions are extra options for the remote compress command.
	CompressOptions string
	// Environment is prefixed to every hook invocation.
	Environment map[string]string
	// ExtraFiles are paths relative to the remote execution directory fetched back with the package.
	ExtraFiles []string
	// KeepTempFolder leaves the remote workspace in place for diagnostics.
	KeepTempFolder bool
	// SubmittedAt is the submission time; zero means "now" at validation.
	SubmittedAt time.Time
}

// Validate checks required fields in a fixed order and normalizes optional ones.
// It never touches the network or the filesystem.
func (j *Job) Validate() error {
	if err := j.Credentials.Validate(); err != nil {
		return err
	}

	switch {
	case strings.TrimSpace(j.ID) == "":
		return &ValidationError{Field: "job"}
	case j.Filename == "":
		return &ValidationError{Field: "package.filename"}
	case strings.ContainsRune(j.Filename, '/'):
		return &ValidationError{Field: "package.filename", Reason: "must be a file name, not a path"}
	case ResolveArtifact(j.Filename, j.Compress).WorkingName == "":
		return &ValidationError{Field: "package.filename", Reason: "must not be only the compression suffix"}
	case j.LocalWorkspace == "":
		return &ValidationError{Field: "workspace.local"}
	case strings.TrimRight(j.RemoteWorkspace, "/") == "":
		return &ValidationError{Field: "workspace.remote"}
	}

	if err := ValidateEnvironment(j.Environment); err != nil {
		return err
	}

	files, err := NormalizeExtraFiles(j.ExtraFiles)
	if err != nil {
		return err
	}

	target := j.Artifact().Target()
	for _, f := range files {
		if path.Base(f) == target {
			return &ValidationError{
				Field:  "package.extra_files",
				Reason: fmt.Sprintf("%q would overwrite the retrieved package", f),
			}
		}
	}

	j.ExtraFiles = files

	if j.SubmittedAt.IsZero() {
		j.SubmittedAt = time.Now()
	}

	return nil
}

// Artifact returns the resolved artifact names of the job.
func (j *Job) Artifact() Artifact {
	return ResolveArtifact(j.Filename, j.Compress)
}
