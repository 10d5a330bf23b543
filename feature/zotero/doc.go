// Package zotero is a client for the Zotero Web API (v3), scoped to one
// library.
//
// It covers the slice of the API the curation commands need:
//
//   - Collection reads with Total-Results pagination, assembled into a Tree
//     that supports case-insensitive slash-path lookup and rendering.
//   - Collection creation, including EnsurePath, which creates every missing
//     segment of a path.
//   - Item membership edits, done the way the API requires: fetch the items,
//     rewrite their collections arrays, and POST the changed ones back in
//     batches with their current versions for optimistic concurrency.
//
// Every mutating operation takes an execute flag. When it is false the
// operation is a dry run: no write request is issued and the result carries
// Planned instead of real store state.
package zotero
