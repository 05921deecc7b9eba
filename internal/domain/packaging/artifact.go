package packaging

import "strings"

// CompressedSuffix is appended by the remote compress utility.
const CompressedSuffix = ".Z"

// Artifact holds the names of the package produced on the remote host.
type Artifact struct {
	// WorkingName is the file the remote archiver writes.
	WorkingName string
	// CompressedName is the file left by compression; equal to WorkingName without compression.
	CompressedName string
	// Compressed tells which of the two names is the retrieval target.
	Compressed bool
}

// ResolveArtifact decides the working and retrieval names for filename.
// With compression an already suffixed filename is stripped for the working name,
// otherwise the suffix is added to the retrieval name.
func ResolveArtifact(filename string, compress bool) Artifact {
	a := Artifact{
		WorkingName:    filename,
		CompressedName: filename,
		Compressed:     compress,
	}

	if !compress {
		return a
	}

	if strings.HasSuffix(filename, CompressedSuffix) {
		a.WorkingName = strings.TrimSuffix(filename, CompressedSuffix)
	} else {
		a.CompressedName = filename + CompressedSuffix
	}

	return a
}

// Target returns the single file that must be fetched back.
func (a Artifact) Target() string {
	if a.Compressed {
		return a.CompressedName
	}

	return a.WorkingName
}
