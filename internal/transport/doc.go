// Package transport runs command blocks on the packaging host and moves files
// to and from it.
//
// SSH executes blocks over an SSH session and transfers files over SFTP, one
// connection per job. Local runs blocks in-process with the mvdan.cc/sh
// interpreter against the local filesystem. Neither retries: retry policy
// belongs to the caller.
package transport
