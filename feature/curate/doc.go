// Package curate implements collection curation on top of the Zotero API
// client: creating a collection from resolved items, adding to or replacing
// an existing one, and diffing input against live membership.
//
// All mutating operations default to a dry run. The returned Report marks
// planned work explicitly so callers never mistake an intention for an
// applied change.
package curate
