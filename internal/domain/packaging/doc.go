// Package packaging contains the core domain types of a remote packaging job.
//
// It defines the Job and its Credentials, the per-invocation remote Workspace,
// the Artifact naming rules, the optional Hook scripts, the pipeline Stages and
// the error taxonomy shared by every layer that runs a job.
package packaging
