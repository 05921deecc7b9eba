// Package codeset maps the code set names used by iconv and pax on the remote
// host to text encodings, and converts text between them.
package codeset
