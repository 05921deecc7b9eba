// Package report implements persistence for job results.
//
// The FileRepository stores and loads a packaging Result as YAML on disk,
// including the cleanup outcomes, so that a run can be inspected afterwards.
package report
