// Package bbt reads the Better BibTeX sqlite database.
//
// Better BibTeX (a Zotero plugin) maintains a local table mapping user-facing
// citation keys to Zotero item identifiers. This package opens that database
// strictly read-only and resolves batches of citation keys to item keys for
// use against the Zotero Web API.
//
// The connection lifecycle is single-shot: open, resolve, close. Nothing is
// cached across invocations and nothing is ever written.
package bbt
