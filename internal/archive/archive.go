package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	goarchive "github.com/moby/go-archive"
)

// DefaultFileMode is used for archives written to the staging directory.
const DefaultFileMode os.FileMode = 0o600

var errNotDirectory = errors.New("not a directory")

// Write archives the entries of srcDir into a tar file at dst.
// With no include list the whole directory is archived with names relative to srcDir.
func Write(dst, srcDir string, include ...string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcDir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", srcDir, errNotDirectory)
	}

	//nolint:exhaustruct // Defaults mean an uncompressed tar with original ownership.
	stream, err := goarchive.TarWithOptions(srcDir, &goarchive.TarOptions{
		IncludeFiles: include,
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", srcDir, err)
	}

	defer func() {
		_ = stream.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, stream); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}

// Separate archives the sub directory of root into root/archiveName and removes it,
// leaving only the archive in its place. It reports false when sub does not exist.
func Separate(root, sub, archiveName string) (bool, error) {
	info, err := os.Stat(filepath.Join(root, sub))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("stat %s: %w", sub, err)
	}

	if !info.IsDir() {
		return false, fmt.Errorf("%s: %w", sub, errNotDirectory)
	}

	if err = Write(filepath.Join(root, archiveName), root, sub); err != nil {
		return false, err
	}

	if err = os.RemoveAll(filepath.Join(root, sub)); err != nil {
		return false, fmt.Errorf("remove %s: %w", sub, err)
	}

	return true, nil
}

// List returns every path under root relative to it, sorted.
func List(root string) ([]string, error) {
	var entries []string

	err := filepath.WalkDir(root, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		if rel != "." {
			entries = append(entries, filepath.ToSlash(rel))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	sort.Strings(entries)

	return entries, nil
}
