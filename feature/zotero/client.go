package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the production Zotero Web API endpoint.
	DefaultBaseURL = "https://api.zotero.org"

	apiVersion = "3"

	// pageLimit is the server's maximum page size for collection reads.
	pageLimit = 100

	// writeBatchSize caps a single item fetch-and-update round trip.
	writeBatchSize = 50
)

// API defines the operations the curation layer needs from a Zotero library.
type API interface {
	// Collections fetches every collection in the library.
	Collections(ctx context.Context) ([]Collection, error)
	// CollectionItemKeys returns the item keys of a collection's members.
	CollectionItemKeys(ctx context.Context, collectionKey string) ([]string, error)
	// CreateCollection creates a collection under parentKey ("" for root).
	CreateCollection(ctx context.Context, name, parentKey string, execute bool) (CreateResult, error)
	// AddItems adds items to a collection's membership.
	AddItems(ctx context.Context, collectionKey string, itemKeys []string, execute bool) (MutationResult, error)
	// RemoveItems removes items from a collection's membership.
	RemoveItems(ctx context.Context, collectionKey string, itemKeys []string, execute bool) (MutationResult, error)
	// EnsurePath creates the missing collections of a slash-separated path.
	EnsurePath(ctx context.Context, path string, tree *Tree, execute bool) (PathResult, error)
}

// CreateResult is the outcome of a collection creation. Planned marks a
// dry run: the write was not sent and Collection is nil.
type CreateResult struct {
	Planned    bool
	Collection *Collection
}

// MutationResult is the outcome of a membership change. Processed counts
// the items covered; in a dry run it is the full request size.
type MutationResult struct {
	Planned   bool
	Processed int
}

// PathResult is the outcome of resolving or creating a collection path.
// In a dry run that would need a creation, Planned is set and LeafKey is
// empty. Tree is the (possibly augmented) tree after the walk.
type PathResult struct {
	LeafKey string
	Planned bool
	Tree    *Tree
}

// Config carries the settings a Client needs to reach one library.
type Config struct {
	LibraryID      string
	APIKey         string
	LibraryType    string
	BaseURL        string
	TimeoutSeconds int
}

// Client talks to the Zotero Web API for a single library.
type Client struct {
	httpClient *http.Client
	base       string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates a Client with strict transport timeouts so a dead
// network fails fast instead of hanging a command.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeoutDuration,
		},
		base:   fmt.Sprintf("%s/%ss/%s", strings.TrimSuffix(baseURL, "/"), cfg.LibraryType, cfg.LibraryID),
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// do performs one API request and returns the raw body and response headers.
// Transport failures are classified into ErrTimeout and ErrConnection;
// non-2xx statuses become an *APIError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, http.Header, error) {
	reqURL := c.base + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.apiKey)
	req.Header.Set("Zotero-API-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", zap.String("method", method), zap.String("url", reqURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if netErr, ok := asNetError(err); ok && netErr.Timeout() {
			return nil, nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, reqURL)
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading response: %v", ErrConnection, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, resp.Status, respBody)
		c.logger.Error("api error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", apiErr.Body))
		return nil, nil, apiErr
	}

	c.logger.Debug("api response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)))
	return respBody, resp.Header, nil
}

func asNetError(err error) (net.Error, bool) {
	for err != nil {
		if netErr, ok := err.(net.Error); ok {
			return netErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// Collections fetches all collections, following Total-Results pagination.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var collections []Collection
	start := 0
	for {
		params := url.Values{}
		params.Set("start", strconv.Itoa(start))
		params.Set("limit", strconv.Itoa(pageLimit))

		body, headers, err := c.do(ctx, http.MethodGet, "/collections", params, nil)
		if err != nil {
			return nil, err
		}

		var page []collectionEnvelope
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode collections: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, env := range page {
			collections = append(collections, env.toCollection())
		}

		total := len(page)
		if header := headers.Get("Total-Results"); header != "" {
			if parsed, err := strconv.Atoi(header); err == nil {
				total = parsed
			}
		}
		start += pageLimit
		if start >= total {
			break
		}
	}
	c.logger.Info("fetched collections", zap.Int("count", len(collections)))
	return collections, nil
}

// CollectionItemKeys returns a collection's member item keys using the
// newline-delimited keys format.
func (c *Client) CollectionItemKeys(ctx context.Context, collectionKey string) ([]string, error) {
	params := url.Values{}
	params.Set("format", "keys")

	body, _, err := c.do(ctx, http.MethodGet, "/collections/"+collectionKey+"/items", params, nil)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys, nil
}

// createResponse is the write-API envelope for collection creation.
type createResponse struct {
	Successful map[string]collectionEnvelope `json:"successful"`
}

// CreateCollection creates one collection. A dry run returns a Planned
// result without touching the API.
func (c *Client) CreateCollection(ctx context.Context, name, parentKey string, execute bool) (CreateResult, error) {
	if !execute {
		c.logger.Info("would create collection",
			zap.String("name", name),
			zap.String("parent", orRoot(parentKey)))
		return CreateResult{Planned: true}, nil
	}

	payload := map[string]any{"name": name}
	if parentKey != "" {
		payload["parentCollection"] = parentKey
	}

	body, _, err := c.do(ctx, http.MethodPost, "/collections", nil, []map[string]any{payload})
	if err != nil {
		return CreateResult{}, err
	}

	var resp createResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CreateResult{}, fmt.Errorf("failed to decode create response: %w", err)
	}
	for _, env := range resp.Successful {
		created := env.toCollection()
		if created.Name == "" {
			created.Name = name
		}
		if created.ParentKey == "" {
			created.ParentKey = parentKey
		}
		return CreateResult{Collection: &created}, nil
	}
	return CreateResult{}, fmt.Errorf("create collection %q: store reported no successful entries", name)
}

// AddItems adds items to a collection by rewriting their collections
// arrays in writeBatchSize batches. Items already in the collection are
// counted as processed without a write.
func (c *Client) AddItems(ctx context.Context, collectionKey string, itemKeys []string, execute bool) (MutationResult, error) {
	return c.updateMembership(ctx, collectionKey, itemKeys, execute, membershipAdd)
}

// RemoveItems removes items from a collection's membership. Only items
// that actually carried the collection count toward Processed.
func (c *Client) RemoveItems(ctx context.Context, collectionKey string, itemKeys []string, execute bool) (MutationResult, error) {
	return c.updateMembership(ctx, collectionKey, itemKeys, execute, membershipRemove)
}

type membershipOp int

const (
	membershipAdd membershipOp = iota
	membershipRemove
)

func (op membershipOp) String() string {
	if op == membershipRemove {
		return "remove"
	}
	return "add"
}

func (c *Client) updateMembership(ctx context.Context, collectionKey string, itemKeys []string, execute bool, op membershipOp) (MutationResult, error) {
	if len(itemKeys) == 0 {
		return MutationResult{}, nil
	}

	if !execute {
		c.logger.Info("would update collection membership",
			zap.String("op", op.String()),
			zap.Int("items", len(itemKeys)),
			zap.String("collection", collectionKey))
		return MutationResult{Planned: true, Processed: len(itemKeys)}, nil
	}

	processed := 0
	for offset := 0; offset < len(itemKeys); offset += writeBatchSize {
		end := offset + writeBatchSize
		if end > len(itemKeys) {
			end = len(itemKeys)
		}
		batch := itemKeys[offset:end]

		params := url.Values{}
		params.Set("itemKey", strings.Join(batch, ","))
		params.Set("format", "json")

		body, _, err := c.do(ctx, http.MethodGet, "/items", params, nil)
		if err != nil {
			return MutationResult{Processed: processed}, err
		}

		var items []itemEnvelope
		if err := json.Unmarshal(body, &items); err != nil {
			return MutationResult{Processed: processed}, fmt.Errorf("failed to decode items: %w", err)
		}
		if len(items) == 0 {
			continue
		}

		var updates []itemWrite
		for _, item := range items {
			memberships, changed := editMembership(item.Data.Collections, collectionKey, op)
			if !changed {
				continue
			}
			key := item.Data.Key
			if key == "" {
				key = item.Key
			}
			updates = append(updates, itemWrite{
				Key:         key,
				Version:     item.Data.Version,
				Collections: memberships,
			})
		}

		if len(updates) > 0 {
			if _, _, err := c.do(ctx, http.MethodPost, "/items", nil, updates); err != nil {
				return MutationResult{Processed: processed}, err
			}
			processed += len(updates)
		} else if op == membershipAdd {
			// Every item was already a member; the batch still counts
			// as handled for add.
			processed += len(batch)
		}
	}
	return MutationResult{Processed: processed}, nil
}

// editMembership returns the item's collections after applying op, and
// whether anything changed.
func editMembership(current []string, collectionKey string, op membershipOp) ([]string, bool) {
	switch op {
	case membershipAdd:
		for _, key := range current {
			if key == collectionKey {
				return current, false
			}
		}
		return append(append([]string(nil), current...), collectionKey), true
	default:
		out := make([]string, 0, len(current))
		found := false
		for _, key := range current {
			if key == collectionKey {
				found = true
				continue
			}
			out = append(out, key)
		}
		return out, found
	}
}

// EnsurePath walks a slash-separated path, creating every missing segment.
// A dry run stops at the first segment that would need a creation and
// returns a Planned result with the tree as it stood.
func (c *Client) EnsurePath(ctx context.Context, path string, tree *Tree, execute bool) (PathResult, error) {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return PathResult{}, fmt.Errorf("%w: empty path", ErrPathNotFound)
	}

	current := tree
	parent := ""
	for _, part := range parts {
		if match, ok := current.findChild(parent, part); ok {
			parent = match.Key
			continue
		}

		result, err := c.CreateCollection(ctx, part, parent, execute)
		if err != nil {
			return PathResult{Tree: current}, err
		}
		if result.Planned {
			return PathResult{Planned: true, Tree: current}, nil
		}
		current = current.Insert(*result.Collection)
		parent = result.Collection.Key
	}
	return PathResult{LeafKey: parent, Tree: current}, nil
}

func orRoot(parentKey string) string {
	if parentKey == "" {
		return "root"
	}
	return parentKey
}
