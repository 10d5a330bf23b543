package zotero

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrPathNotFound reports that a slash-separated collection path did not
// resolve to a collection.
var ErrPathNotFound = errors.New("collection path not found")

// Tree is the in-memory forest of a library's collections, indexed by parent
// key for path lookup and rendering. The empty parent key addresses the
// library root. Trees are rebuilt fresh per command from a full fetch;
// Insert returns a new augmented tree rather than mutating in place.
type Tree struct {
	collections []Collection
	children    map[string][]Collection
}

// BuildTree groups collections by parent key and sorts each sibling group by
// case-insensitive name.
func BuildTree(collections []Collection) *Tree {
	children := make(map[string][]Collection)
	for _, c := range collections {
		children[c.ParentKey] = append(children[c.ParentKey], c)
	}
	for key := range children {
		sortSiblings(children[key])
	}
	return &Tree{collections: collections, children: children}
}

func sortSiblings(siblings []Collection) {
	sort.SliceStable(siblings, func(i, j int) bool {
		return strings.ToLower(siblings[i].Name) < strings.ToLower(siblings[j].Name)
	})
}

// Collections returns every collection in the tree.
func (t *Tree) Collections() []Collection {
	return t.collections
}

// Children returns the ordered children of parentKey ("" for the root).
func (t *Tree) Children(parentKey string) []Collection {
	return t.children[parentKey]
}

// Insert returns a new tree containing c. The receiver is left untouched so
// the caller that owns the augmented value is unambiguous.
func (t *Tree) Insert(c Collection) *Tree {
	collections := make([]Collection, len(t.collections), len(t.collections)+1)
	copy(collections, t.collections)
	collections = append(collections, c)

	children := make(map[string][]Collection, len(t.children)+1)
	for key, siblings := range t.children {
		children[key] = siblings
	}
	siblings := make([]Collection, len(children[c.ParentKey]), len(children[c.ParentKey])+1)
	copy(siblings, children[c.ParentKey])
	siblings = append(siblings, c)
	sortSiblings(siblings)
	children[c.ParentKey] = siblings

	return &Tree{collections: collections, children: children}
}

// FindByPath walks a slash-separated path from the root, matching each
// segment case-insensitively against that level's siblings. It returns
// ErrPathNotFound as soon as any segment (or the whole path) is empty or
// unmatched.
func (t *Tree) FindByPath(path string) (Collection, error) {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return Collection{}, fmt.Errorf("%w: empty path", ErrPathNotFound)
	}

	parent := ""
	var found Collection
	for _, part := range parts {
		match, ok := t.findChild(parent, part)
		if !ok {
			return Collection{}, fmt.Errorf("%w: %q", ErrPathNotFound, path)
		}
		found = match
		parent = match.Key
	}
	return found, nil
}

// findChild scans one sibling level for a case-insensitive name match.
func (t *Tree) findChild(parentKey, name string) (Collection, bool) {
	for _, c := range t.children[parentKey] {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Collection{}, false
}

// Format renders the tree as slash-joined paths in depth-first pre-order,
// one collection per line, parents marked with a trailing slash. A non-empty
// filterPattern is compiled as a case-insensitive regex and limits which
// lines are emitted; traversal always continues into children, so a child
// can match under a non-matching parent.
func (t *Tree) Format(filterPattern string) (string, error) {
	var compiled *regexp.Regexp
	if filterPattern != "" {
		var err error
		compiled, err = regexp.Compile("(?i)" + filterPattern)
		if err != nil {
			return "", fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var lines []string
	var walk func(parentKey, prefix string)
	walk = func(parentKey, prefix string) {
		for _, c := range t.children[parentKey] {
			path := prefix + c.Name
			display := path
			if _, hasChildren := t.children[c.Key]; hasChildren {
				display += "/"
			}
			if compiled == nil || compiled.MatchString(display) {
				lines = append(lines, display)
			}
			walk(c.Key, path+"/")
		}
	}
	walk("", "")
	return strings.Join(lines, "\n"), nil
}

// SplitPath splits a slash-separated collection path into trimmed, non-empty
// segments.
func SplitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
