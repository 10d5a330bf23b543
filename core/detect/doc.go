// Package detect probes the local system for Zotero configuration values
// that would otherwise need to be supplied manually:
//
//   - the Zotero data directory (OS defaults; on Linux via profiles.ini and
//     an optional prefs.js dataDir override)
//   - the Better BibTeX database path inside that directory
//   - the Zotero web library ID, read from the settings table of
//     zotero.sqlite
//
// The API key cannot be detected and must always come from the user.
// All probes are strictly read-only and report absence instead of failing.
package detect
