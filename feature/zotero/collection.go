package zotero

import (
	"bytes"
	"encoding/json"
)

// Collection is a single Zotero collection as returned by the Web API.
type Collection struct {
	// Key is the stable collection identifier, unique within a library.
	Key string `json:"key"`
	// Name is the display name.
	Name string `json:"name"`
	// ParentKey is the parent collection key; empty at the library root.
	ParentKey string `json:"parentKey,omitempty"`
	// Version is the store's optimistic-concurrency counter.
	Version int64 `json:"version"`
	// NumItems is the item count reported by the API metadata.
	NumItems int `json:"numItems"`
}

// collectionEnvelope is the API wire shape: the collection proper lives
// under "data", the item count under "meta".
type collectionEnvelope struct {
	Key     string `json:"key"`
	Version int64  `json:"version"`
	Data    struct {
		Key              string          `json:"key"`
		Name             string          `json:"name"`
		Version          int64           `json:"version"`
		ParentCollection json.RawMessage `json:"parentCollection"`
	} `json:"data"`
	Meta struct {
		NumItems int `json:"numItems"`
	} `json:"meta"`
}

func (env collectionEnvelope) toCollection() Collection {
	c := Collection{
		Key:       env.Data.Key,
		Name:      env.Data.Name,
		ParentKey: parseParentKey(env.Data.ParentCollection),
		Version:   env.Data.Version,
		NumItems:  env.Meta.NumItems,
	}
	if c.Key == "" {
		c.Key = env.Key
	}
	if c.Version == 0 {
		c.Version = env.Version
	}
	return c
}

// parseParentKey handles the API's dual encoding: a string key for nested
// collections, the JSON literal false at the root.
func parseParentKey(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("false")) || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var key string
	if err := json.Unmarshal(raw, &key); err != nil {
		return ""
	}
	return key
}

// itemEnvelope is the wire shape of an item read; only the membership and
// version fields matter for collection mutation.
type itemEnvelope struct {
	Key  string `json:"key"`
	Data struct {
		Key         string   `json:"key"`
		Version     int64    `json:"version"`
		Collections []string `json:"collections"`
	} `json:"data"`
}

// itemWrite is one entry of a batched membership update. Version is the
// item's current version: a stale value makes the store reject the batch.
type itemWrite struct {
	Key         string   `json:"key"`
	Version     int64    `json:"version"`
	Collections []string `json:"collections"`
}
