package packaging

// Hook is an optional caller-supplied script run at a fixed pipeline point.
// A missing hook file is not an error; the hook is simply not run.
type Hook string

const (
	// HookPrepareWorkspace runs locally before anything is archived.
	HookPrepareWorkspace Hook = "prepare-workspace"
	// HookPrePackaging runs remotely after extraction, before the package is built.
	HookPrePackaging Hook = "pre-packaging"
	// HookPostPackaging runs remotely after the package is built, before compression.
	HookPostPackaging Hook = "post-packaging"
	// HookCatchAll runs remotely during cleanup regardless of the job outcome.
	HookCatchAll Hook = "catchall-packaging"
)

const (
	// ContentDir holds the primary payload inside the workspace.
	ContentDir = "content"
	// ASCIIDir holds text content that needs encoding conversion on the remote host.
	ASCIIDir = "ascii"
	// ASCIIArchive is the separate archive of ASCIIDir inside the main archive.
	ASCIIArchive = ASCIIDir + ".tar"
)

// Filename returns the on-disk name of the hook script.
func (h Hook) Filename() string {
	return string(h) + ".sh"
}

// String implements fmt.Stringer.
func (h Hook) String() string {
	return string(h)
}
