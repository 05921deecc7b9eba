package remotesim

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/interp"

	"github.com/oshokin/remote-packager/internal/codeset"
)

// Handlers is an interp exec handler middleware emulating the remote utilities.
func Handlers(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return next(ctx, args)
		}

		var err error

		switch args[0] {
		case "pax":
			err = pax(ctx, args[1:])
		case "iconv":
			err = iconv(ctx, args[1:])
		case "compress":
			err = compress(ctx, args[1:])
		case "ls":
			err = list(ctx)
		default:
			return next(ctx, args)
		}

		if err != nil {
			hc := interp.HandlerCtx(ctx)
			_, _ = fmt.Fprintf(hc.Stderr, "%s: %v\n", args[0], err)

			return interp.ExitStatus(1)
		}

		return nil
	}
}

var errUsage = errors.New("usage error")

type paxArgs struct {
	read, write bool
	file        string
	from, to    string
	names       []string
}

func parsePax(args []string) (*paxArgs, error) {
	var p paxArgs

	for i := 0; i < len(args); i++ {
		a := args[i]

		switch a {
		case "-r":
			p.read = true
		case "-w":
			p.write = true
		case "-f", "-x", "-o", "-s":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: %s needs a value", errUsage, a)
			}

			i++

			switch a {
			case "-f":
				p.file = args[i]
			case "-o":
				p.parseOptions(args[i])
			}
		default:
			if strings.HasPrefix(a, "-") {
				continue
			}

			p.names = append(p.names, a)
		}
	}

	if p.file == "" || p.read == p.write {
		return nil, fmt.Errorf("%w: exactly one of -r/-w and -f are required", errUsage)
	}

	return &p, nil
}

func (p *paxArgs) parseOptions(value string) {
	for _, kv := range strings.Split(value, ",") {
		key, v, _ := strings.Cut(kv, "=")

		switch key {
		case "from":
			p.from = v
		case "to":
			p.to = v
		}
	}
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}

	return filepath.Join(dir, name)
}

func pax(ctx context.Context, args []string) error {
	p, err := parsePax(args)
	if err != nil {
		return err
	}

	dir := interp.HandlerCtx(ctx).Dir

	if p.read {
		return paxRead(dir, resolve(dir, p.file), p.from, p.to)
	}

	if len(p.names) == 0 {
		return fmt.Errorf("%w: nothing to archive", errUsage)
	}

	return paxWrite(dir, resolve(dir, p.file), p.names)
}

func paxRead(dir, file, from, to string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	r := tar.NewReader(f)

	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		target := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)) {
			return fmt.Errorf("entry %q escapes %s", hdr.Name, dir)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = extractFile(r, target, hdr.FileInfo().Mode().Perm(), from, to); err != nil {
				return err
			}
		}
	}
}

func extractFile(r io.Reader, target string, mode fs.FileMode, from, to string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if to != "" {
		if from == "" {
			from = codeset.DefaultTransfer
		}

		if data, err = codeset.Transcode(from, to, data); err != nil {
			return err
		}
	}

	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	return os.WriteFile(target, data, mode|0o200)
}

func paxWrite(dir, file string, names []string) error {
	out, err := os.Create(file)
	if err != nil {
		return err
	}

	w := tar.NewWriter(out)

	for _, name := range names {
		if err = addTree(w, dir, name); err != nil {
			_ = out.Close()
			return err
		}
	}

	if err = w.Close(); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

func addTree(w *tar.Writer, dir, name string) error {
	return filepath.WalkDir(resolve(dir, name), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}

		if err = w.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	})
}

func iconv(ctx context.Context, args []string) error {
	var from, to, file string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f", "-t":
			if i+1 >= len(args) {
				return fmt.Errorf("%w: %s needs a value", errUsage, args[i])
			}

			if args[i] == "-f" {
				from = args[i+1]
			} else {
				to = args[i+1]
			}

			i++
		default:
			file = args[i]
		}
	}

	if from == "" || to == "" || file == "" {
		return fmt.Errorf("%w: iconv -f FROM -t TO FILE", errUsage)
	}

	hc := interp.HandlerCtx(ctx)

	data, err := os.ReadFile(resolve(hc.Dir, file))
	if err != nil {
		return err
	}

	converted, err := codeset.Transcode(from, to, data)
	if err != nil {
		return err
	}

	_, err = hc.Stdout.Write(converted)

	return err
}

// compress renames the file with the .Z suffix, keeping its contents.
// Like the real utility it rejects a -b bit count outside 9..16.
func compress(ctx context.Context, args []string) error {
	var file string

	for i := 0; i < len(args); i++ {
		a := args[i]

		switch {
		case a == "-b":
			if i+1 >= len(args) {
				return fmt.Errorf("%w: -b needs a value", errUsage)
			}

			i++

			bits, err := strconv.Atoi(args[i])
			if err != nil || bits < minCompressBits || bits > maxCompressBits {
				return fmt.Errorf("%w: invalid bits %q", errUsage, args[i])
			}
		case strings.HasPrefix(a, "-"):
		default:
			file = a
		}
	}

	if file == "" {
		return fmt.Errorf("%w: no file given", errUsage)
	}

	path := resolve(interp.HandlerCtx(ctx).Dir, file)
	if _, err := os.Stat(path); err != nil {
		return err
	}

	return os.Rename(path, path+".Z")
}

const (
	minCompressBits = 9
	maxCompressBits = 16
)

func list(ctx context.Context) error {
	hc := interp.HandlerCtx(ctx)

	var entries []string

	err := filepath.WalkDir(hc.Dir, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(hc.Dir, p)
		if err != nil {
			return err
		}

		entries = append(entries, rel)

		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(entries)

	_, err = fmt.Fprintln(hc.Stdout, strings.Join(entries, "\n"))

	return err
}
