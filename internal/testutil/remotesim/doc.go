// Package remotesim emulates the remote packaging host for tests.
//
// Command blocks run in-process through the mvdan.cc/sh interpreter. The exec
// handlers emulate the host utilities the packaging script relies on (pax,
// iconv, compress and ls) and fall back to the system binaries for everything
// else. StartSSH exposes the same interpreter, plus an SFTP subsystem, over a
// real SSH server on a loopback port.
package remotesim
