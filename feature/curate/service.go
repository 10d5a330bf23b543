package curate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"zotcurate/feature/zotero"
)

// Service runs collection curation operations against one Zotero library.
type Service struct {
	client zotero.API
	logger *zap.Logger
}

// NewService creates a Service on top of a Zotero API client.
func NewService(client zotero.API, logger *zap.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Create creates the collection at req.Path and fills it with the input
// items. When the path already exists, policy decides the outcome.
func (s *Service) Create(ctx context.Context, req Request, policy ConflictPolicy) (Report, error) {
	if len(req.ItemKeys) == 0 {
		return Report{}, ErrNoItems
	}

	tree, err := s.fetchTree(ctx)
	if err != nil {
		return Report{}, err
	}

	path := req.Path
	if existing, err := tree.FindByPath(path); err == nil {
		switch policy {
		case ConflictAdd:
			s.logger.Info("collection exists, adding items",
				zap.String("path", path), zap.String("key", existing.Key))
			return s.addTo(ctx, existing.Key, req)
		case ConflictReplace:
			s.logger.Info("collection exists, replacing items",
				zap.String("path", path), zap.String("key", existing.Key))
			return s.replaceIn(ctx, existing.Key, req)
		case ConflictSkip:
			s.logger.Info("collection exists, skipping", zap.String("path", path))
			return Report{Action: ActionSkipped, Path: path, Unresolved: req.Unresolved}, nil
		case ConflictDisambiguate:
			path, err = disambiguate(path, tree)
			if err != nil {
				return Report{}, err
			}
			s.logger.Info("disambiguated collection path", zap.String("path", path))
		default:
			return Report{}, fmt.Errorf("%w: %q (key=%s)", ErrCollectionExists, path, existing.Key)
		}
	} else if !errors.Is(err, zotero.ErrPathNotFound) {
		return Report{}, err
	}

	pathResult, err := s.client.EnsurePath(ctx, path, tree, req.Execute)
	if err != nil {
		return Report{}, err
	}
	if pathResult.Planned {
		return Report{
			Planned:    true,
			Action:     ActionCreated,
			Path:       path,
			Added:      len(req.ItemKeys),
			Unresolved: req.Unresolved,
		}, nil
	}

	added, err := s.client.AddItems(ctx, pathResult.LeafKey, req.ItemKeys, req.Execute)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Planned:    added.Planned,
		Action:     ActionCreated,
		Path:       path,
		Added:      added.Processed,
		Unresolved: req.Unresolved,
	}, nil
}

// Add adds the input items to an existing collection.
func (s *Service) Add(ctx context.Context, req Request) (Report, error) {
	if len(req.ItemKeys) == 0 {
		return Report{}, ErrNoItems
	}

	tree, err := s.fetchTree(ctx)
	if err != nil {
		return Report{}, err
	}
	existing, err := tree.FindByPath(req.Path)
	if err != nil {
		return Report{}, err
	}
	return s.addTo(ctx, existing.Key, req)
}

// Replace makes an existing collection's membership exactly the input set.
func (s *Service) Replace(ctx context.Context, req Request) (Report, error) {
	if len(req.ItemKeys) == 0 {
		return Report{}, ErrNoItems
	}

	tree, err := s.fetchTree(ctx)
	if err != nil {
		return Report{}, err
	}
	existing, err := tree.FindByPath(req.Path)
	if err != nil {
		return Report{}, err
	}
	return s.replaceIn(ctx, existing.Key, req)
}

// Diff partitions input items against a collection's current membership.
// It is read-only and runs even with an empty input.
func (s *Service) Diff(ctx context.Context, req Request) (DiffReport, error) {
	tree, err := s.fetchTree(ctx)
	if err != nil {
		return DiffReport{}, err
	}
	existing, err := tree.FindByPath(req.Path)
	if err != nil {
		return DiffReport{}, err
	}

	current, err := s.client.CollectionItemKeys(ctx, existing.Key)
	if err != nil {
		return DiffReport{}, err
	}

	inputSet := keySet(req.ItemKeys)
	currentSet := keySet(current)

	report := DiffReport{Path: req.Path, Unresolved: req.Unresolved}
	for key := range inputSet {
		if _, ok := currentSet[key]; ok {
			report.InBoth = append(report.InBoth, key)
		} else {
			report.OnlyInput = append(report.OnlyInput, key)
		}
	}
	for key := range currentSet {
		if _, ok := inputSet[key]; !ok {
			report.OnlyCollection = append(report.OnlyCollection, key)
		}
	}
	sort.Strings(report.InBoth)
	sort.Strings(report.OnlyInput)
	sort.Strings(report.OnlyCollection)
	return report, nil
}

func (s *Service) fetchTree(ctx context.Context) (*zotero.Tree, error) {
	collections, err := s.client.Collections(ctx)
	if err != nil {
		return nil, err
	}
	return zotero.BuildTree(collections), nil
}

func (s *Service) addTo(ctx context.Context, collectionKey string, req Request) (Report, error) {
	result, err := s.client.AddItems(ctx, collectionKey, req.ItemKeys, req.Execute)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Planned:    result.Planned,
		Action:     ActionAdded,
		Path:       req.Path,
		Added:      result.Processed,
		Unresolved: req.Unresolved,
	}, nil
}

// replaceIn computes the set difference against the live membership, then
// removes extras before adding, so a failure partway leaves at worst a
// smaller collection rather than a mixed one.
func (s *Service) replaceIn(ctx context.Context, collectionKey string, req Request) (Report, error) {
	current, err := s.client.CollectionItemKeys(ctx, collectionKey)
	if err != nil {
		return Report{}, err
	}

	inputSet := keySet(req.ItemKeys)
	currentSet := keySet(current)

	var toRemove []string
	for _, key := range current {
		if _, ok := inputSet[key]; !ok {
			toRemove = append(toRemove, key)
		}
	}
	var toAdd []string
	unchanged := 0
	for _, key := range req.ItemKeys {
		if _, ok := currentSet[key]; ok {
			unchanged++
		} else {
			toAdd = append(toAdd, key)
		}
	}

	s.logger.Info("replace plan",
		zap.String("path", req.Path),
		zap.Int("add", len(toAdd)),
		zap.Int("remove", len(toRemove)),
		zap.Int("unchanged", unchanged))

	if _, err := s.client.RemoveItems(ctx, collectionKey, toRemove, req.Execute); err != nil {
		return Report{}, err
	}
	if _, err := s.client.AddItems(ctx, collectionKey, toAdd, req.Execute); err != nil {
		return Report{}, err
	}

	return Report{
		Planned:    !req.Execute,
		Action:     ActionReplaced,
		Path:       req.Path,
		Added:      len(toAdd),
		Removed:    len(toRemove),
		Unchanged:  unchanged,
		Unresolved: req.Unresolved,
	}, nil
}

// disambiguate appends " (2)" through " (99)" until the path is free.
func disambiguate(path string, tree *zotero.Tree) (string, error) {
	for i := 2; i < 100; i++ {
		candidate := fmt.Sprintf("%s (%d)", path, i)
		if _, err := tree.FindByPath(candidate); errors.Is(err, zotero.ErrPathNotFound) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not disambiguate collection path: %s", path)
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}
