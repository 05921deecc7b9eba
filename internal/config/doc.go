// Package config defines the YAML job configuration of remote-packager and
// provides helpers to load, validate and save it.
//
// A Config names the job, the SSH host, the local and remote workspaces and the
// package to build. The SSH password is never stored in the file; it comes from
// a command line flag or the REMOTE_PACKAGER_SSH_PASSWORD variable.
package config
