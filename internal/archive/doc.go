// Package archive stages a local packaging workspace into tar archives ready
// for upload.
package archive
