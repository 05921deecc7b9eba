package packaging

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// processUIDTimeLayout renders the submission time inside a process uid.
	processUIDTimeLayout = "20060102150405"
	// maxJobTokenLength bounds the job id part of a process uid.
	maxJobTokenLength = 48
	// entropyLength is the number of random hex characters appended to a process uid.
	entropyLength = 8
)

// Workspace is the per-invocation remote working area of a job.
type Workspace struct {
	// Root is the shared remote workspace root.
	Root string
	// ProcessUID scopes this invocation inside Root.
	ProcessUID string
}

// NewWorkspace creates a workspace under root with a fresh process uid.
func NewWorkspace(root, jobID string, submittedAt time.Time) Workspace {
	return Workspace{
		Root:       strings.TrimRight(root, "/"),
		ProcessUID: NewProcessUID(jobID, submittedAt),
	}
}

// NewProcessUID derives a unique token from the job id and submission time.
// A random suffix keeps tokens distinct for jobs submitted within the same second.
func NewProcessUID(jobID string, submittedAt time.Time) string {
	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")[:entropyLength]

	return sanitizeToken(jobID) + "-" + submittedAt.UTC().Format(processUIDTimeLayout) + "-" + entropy
}

// FullPath returns the execution directory of this invocation.
func (w Workspace) FullPath() string {
	return path.Join(w.Root, w.ProcessUID)
}

// ArchiveName returns the file name of the uploaded main archive.
func (w Workspace) ArchiveName() string {
	return w.ProcessUID + ".tar"
}

// ScriptName returns the file name of the uploaded remote script.
func (w Workspace) ScriptName() string {
	return w.ProcessUID + ".sh"
}

// ArchivePath returns the remote path of the uploaded main archive.
func (w Workspace) ArchivePath() string {
	return path.Join(w.Root, w.ArchiveName())
}

// ScriptPath returns the remote path of the uploaded remote script.
func (w Workspace) ScriptPath() string {
	return path.Join(w.Root, w.ScriptName())
}

// sanitizeToken keeps characters that are safe in a file name and replaces the rest.
func sanitizeToken(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}

		if b.Len() >= maxJobTokenLength {
			break
		}
	}

	token := strings.Trim(b.String(), ".-")
	if token == "" {
		return "job"
	}

	return token
}
