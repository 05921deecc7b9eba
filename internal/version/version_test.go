package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), AppName)
}

// TestSSHClientVersion checks the handshake identification format.
func TestSSHClientVersion(t *testing.T) {
	t.Parallel()

	v := SSHClientVersion()
	require.True(t, strings.HasPrefix(v, "SSH-2.0-"))
	require.NotContains(t, strings.TrimPrefix(v, "SSH-2.0-"), "-")
	require.NotContains(t, v, " ")
}
