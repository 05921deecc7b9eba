// Package packager runs packaging jobs against a remote host.
//
// A job is validated, its local workspace is staged into archives together with
// the generated remote script, both are uploaded, the script is executed
// remotely, the package and extra files are fetched back, and finally the
// remote workspace is cleaned up. Cleanup runs after every stage failure and
// its problems are recorded in the result, never returned.
package packager
