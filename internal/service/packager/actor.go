package packager

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"

	"github.com/oshokin/remote-packager/internal/domain/packaging"
)

// checksumPrefix names the digest algorithm in recorded checksums.
const checksumPrefix = "sha256:"

// detectActor gathers host and user information for the run report.
func detectActor() (packaging.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return packaging.Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return packaging.Actor{}, fmt.Errorf("current user: %w", err)
	}

	return packaging.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// fileChecksum returns the SHA-256 digest of the file at path.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return checksumPrefix + hex.EncodeToString(hasher.Sum(nil)), nil
}
