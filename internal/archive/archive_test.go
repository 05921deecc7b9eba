package archive

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

// tarNames lists regular file names inside a tar archive.
func tarNames(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	var names []string

	r := tar.NewReader(f)
	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		if hdr.Typeflag == tar.TypeReg {
			names = append(names, strings.TrimPrefix(hdr.Name, "./"))
		}
	}

	sort.Strings(names)

	return names
}

// TestSeparateAndWrite checks that the ascii subtree is archived alone and excluded from the tree.
func TestSeparateAndWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "x.txt"), "x")
	writeFile(t, filepath.Join(root, "ascii", "readme.txt"), "hello")
	writeFile(t, filepath.Join(root, "pre-packaging.sh"), "#!/bin/sh\n")

	found, err := Separate(root, "ascii", "ascii.tar")
	require.NoError(t, err)
	require.True(t, found)

	_, err = os.Stat(filepath.Join(root, "ascii"))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, []string{"ascii/readme.txt"}, tarNames(t, filepath.Join(root, "ascii.tar")))

	dst := filepath.Join(t.TempDir(), "main.tar")
	require.NoError(t, Write(dst, root))
	require.Equal(t, []string{"ascii.tar", "content/x.txt", "pre-packaging.sh"}, tarNames(t, dst))
}

// TestSeparate_Missing reports absence without error.
func TestSeparate_Missing(t *testing.T) {
	t.Parallel()

	found, err := Separate(t.TempDir(), "ascii", "ascii.tar")
	require.NoError(t, err)
	require.False(t, found)
}

// TestWrite_NotDirectory rejects a file as the source.
func TestWrite_NotDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "f")
	writeFile(t, file, "x")

	require.Error(t, Write(filepath.Join(t.TempDir(), "out.tar"), file))
}

// TestList returns relative sorted entries.
func TestList(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "content", "a.txt"), "a")

	entries, err := List(root)
	require.NoError(t, err)
	require.Equal(t, []string{"content", "content/a.txt", "content/b.txt"}, entries)
}
