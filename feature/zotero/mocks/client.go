package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"zotcurate/feature/zotero"
)

// API is a mock implementation of zotero.API
type API struct {
	mock.Mock
}

func (m *API) Collections(ctx context.Context) ([]zotero.Collection, error) {
	args := m.Called(ctx)
	if collections, ok := args.Get(0).([]zotero.Collection); ok {
		return collections, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) CollectionItemKeys(ctx context.Context, collectionKey string) ([]string, error) {
	args := m.Called(ctx, collectionKey)
	if keys, ok := args.Get(0).([]string); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) CreateCollection(ctx context.Context, name, parentKey string, execute bool) (zotero.CreateResult, error) {
	args := m.Called(ctx, name, parentKey, execute)
	return args.Get(0).(zotero.CreateResult), args.Error(1)
}

func (m *API) AddItems(ctx context.Context, collectionKey string, itemKeys []string, execute bool) (zotero.MutationResult, error) {
	args := m.Called(ctx, collectionKey, itemKeys, execute)
	return args.Get(0).(zotero.MutationResult), args.Error(1)
}

func (m *API) RemoveItems(ctx context.Context, collectionKey string, itemKeys []string, execute bool) (zotero.MutationResult, error) {
	args := m.Called(ctx, collectionKey, itemKeys, execute)
	return args.Get(0).(zotero.MutationResult), args.Error(1)
}

func (m *API) EnsurePath(ctx context.Context, path string, tree *zotero.Tree, execute bool) (zotero.PathResult, error) {
	args := m.Called(ctx, path, tree, execute)
	return args.Get(0).(zotero.PathResult), args.Error(1)
}
