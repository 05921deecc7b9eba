package codeset

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultTransfer is the encoding text travels in between the hosts.
	DefaultTransfer = "ISO8859-1"
	// DefaultNative is the native text encoding of a z/OS host.
	DefaultNative = "IBM-1047"
)

// ErrUnknown is returned for a code set name with no known encoding.
var ErrUnknown = errors.New("unknown code set")

//nolint:gochecknoglobals // Read-only lookup table.
var byName = map[string]encoding.Encoding{
	"iso88591": charmap.ISO8859_1,
	"latin1":   charmap.ISO8859_1,
	"ibm1047":  charmap.CodePage1047,
	"cp1047":   charmap.CodePage1047,
	"ibm037":   charmap.CodePage037,
	"cp037":    charmap.CodePage037,
	"utf8":     unicode.UTF8,
}

// Normalize folds case and drops separators so "ISO8859-1" and "iso-8859-1" compare equal.
func Normalize(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
}

// Same reports whether two names denote the same code set.
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Lookup returns the encoding registered for name.
func Lookup(name string) (encoding.Encoding, error) {
	enc, ok := byName[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	return enc, nil
}

// Known reports whether name is a registered code set.
func Known(name string) bool {
	_, ok := byName[Normalize(name)]

	return ok
}

// Encode converts UTF-8 text into the named code set.
func Encode(name string, text []byte) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	out, err := enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("encode to %s: %w", name, err)
	}

	return out, nil
}

// Decode converts text in the named code set to UTF-8.
func Decode(name string, data []byte) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode from %s: %w", name, err)
	}

	return out, nil
}

// Transcode converts data from one code set to another.
func Transcode(from, to string, data []byte) ([]byte, error) {
	if Same(from, to) {
		return data, nil
	}

	text, err := Decode(from, data)
	if err != nil {
		return nil, err
	}

	return Encode(to, text)
}
