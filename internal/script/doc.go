// Package script renders the remote side of a packaging job.
//
// The remote procedure is an ordered list of typed Steps. Each step is rendered
// from an embedded template into POSIX shell and guarded so that a failure stops
// the script with the step's own exit code; the caller maps that code back to
// the step name. Besides the packaging script the package renders the bootstrap
// block that converts and sources it, and the cleanup blocks.
package script
