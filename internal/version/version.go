package version

import (
	"fmt"
	"strings"
)

// AppName is the binary name reported in version strings.
const AppName = "remote-packager"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s", AppName, Version, Commit, BuildTime)
}

// SSHClientVersion returns the identification string sent during the SSH handshake.
// RFC 4253 forbids spaces and "-" inside the software version token.
func SSHClientVersion() string {
	token := strings.NewReplacer(" ", "_", "-", "_").Replace(AppName + "_" + Version)

	return "SSH-2.0-" + token
}
