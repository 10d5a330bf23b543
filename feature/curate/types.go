package curate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoItems means the input yielded no resolvable Zotero items, so a
	// mutating operation has nothing to act on.
	ErrNoItems = errors.New("no resolvable items found")

	// ErrCollectionExists is returned by Create under the abort policy.
	ErrCollectionExists = errors.New("collection already exists")
)

// ConflictPolicy decides what Create does when the target path already
// names a collection.
type ConflictPolicy string

const (
	ConflictAbort        ConflictPolicy = "abort"
	ConflictAdd          ConflictPolicy = "add"
	ConflictReplace      ConflictPolicy = "replace"
	ConflictSkip         ConflictPolicy = "skip"
	ConflictDisambiguate ConflictPolicy = "disambiguate"
)

// ConflictPolicies lists the accepted --on-conflict values.
func ConflictPolicies() []string {
	return []string{
		string(ConflictAbort),
		string(ConflictAdd),
		string(ConflictReplace),
		string(ConflictDisambiguate),
		string(ConflictSkip),
	}
}

// ParseConflictPolicy validates a user-supplied policy name.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case ConflictAbort:
		return ConflictAbort, nil
	case ConflictAdd:
		return ConflictAdd, nil
	case ConflictReplace:
		return ConflictReplace, nil
	case ConflictSkip:
		return ConflictSkip, nil
	case ConflictDisambiguate:
		return ConflictDisambiguate, nil
	}
	return "", fmt.Errorf("invalid conflict policy %q (choose one of: %s)",
		s, strings.Join(ConflictPolicies(), ", "))
}

// Request is one curation operation against a collection path.
type Request struct {
	// Path is the slash-separated collection path.
	Path string
	// ItemKeys are the resolved Zotero item keys from the input.
	ItemKeys []string
	// Unresolved are citation keys the local database could not map.
	Unresolved []string
	// Execute turns the dry run into a real mutation.
	Execute bool
}

// Action names what a curation operation did (or would do).
type Action string

const (
	ActionCreated  Action = "created"
	ActionAdded    Action = "added"
	ActionReplaced Action = "replaced"
	ActionSkipped  Action = "skipped"
)

// Report summarizes a mutating operation. Planned marks a dry run where
// the counts describe intended, not applied, changes.
type Report struct {
	Planned    bool
	Action     Action
	Path       string
	Added      int
	Removed    int
	Unchanged  int
	Unresolved []string
}

// DiffReport is the three-way partition of input items against a
// collection's current membership. All slices are sorted.
type DiffReport struct {
	Path           string
	InBoth         []string
	OnlyInput      []string
	OnlyCollection []string
	Unresolved     []string
}
