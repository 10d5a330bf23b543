// Package output renders resolution results, citation-key database rows,
// and bare key lists in the formats the CLI exposes, and writes them to a
// file or stdout.
package output
