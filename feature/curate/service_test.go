package curate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zotcurate/feature/zotero"
	"zotcurate/feature/zotero/mocks"
)

func libraryCollections() []zotero.Collection {
	return []zotero.Collection{
		{Key: "AAAA1111", Name: "Research"},
		{Key: "BBBB2222", Name: "Methods", ParentKey: "AAAA1111"},
	}
}

func newTestService(t *testing.T) (*Service, *mocks.API) {
	t.Helper()
	api := &mocks.API{}
	return NewService(api, zap.NewNop()), api
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input", func(t *testing.T) {
		svc, api := newTestService(t)
		_, err := svc.Create(ctx, Request{Path: "New"}, ConflictAbort)
		assert.ErrorIs(t, err, ErrNoItems)
		api.AssertNotCalled(t, "Collections")
	})

	t.Run("abort on existing path issues no mutations", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)

		_, err := svc.Create(ctx,
			Request{Path: "Research/Methods", ItemKeys: []string{"I1"}},
			ConflictAbort)
		assert.ErrorIs(t, err, ErrCollectionExists)
		api.AssertNotCalled(t, "CreateCollection")
		api.AssertNotCalled(t, "AddItems")
		api.AssertNotCalled(t, "EnsurePath")
	})

	t.Run("skip on existing path", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)

		report, err := svc.Create(ctx,
			Request{Path: "research", ItemKeys: []string{"I1"}},
			ConflictSkip)
		require.NoError(t, err)
		assert.Equal(t, ActionSkipped, report.Action)
		api.AssertNotCalled(t, "AddItems")
	})

	t.Run("add on existing path", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("AddItems", ctx, "BBBB2222", []string{"I1", "I2"}, true).
			Return(zotero.MutationResult{Processed: 2}, nil)

		report, err := svc.Create(ctx,
			Request{Path: "Research/Methods", ItemKeys: []string{"I1", "I2"}, Execute: true},
			ConflictAdd)
		require.NoError(t, err)
		assert.Equal(t, ActionAdded, report.Action)
		assert.Equal(t, 2, report.Added)
		assert.False(t, report.Planned)
	})

	t.Run("disambiguate creates a numbered sibling", func(t *testing.T) {
		svc, api := newTestService(t)
		existing := append(libraryCollections(),
			zotero.Collection{Key: "CCCC3333", Name: "Research (2)"})
		tree := zotero.BuildTree(existing)
		api.On("Collections", ctx).Return(existing, nil)
		api.On("EnsurePath", ctx, "Research (3)", tree, true).
			Return(zotero.PathResult{LeafKey: "DDDD4444", Tree: tree}, nil)
		api.On("AddItems", ctx, "DDDD4444", []string{"I1"}, true).
			Return(zotero.MutationResult{Processed: 1}, nil)

		report, err := svc.Create(ctx,
			Request{Path: "Research", ItemKeys: []string{"I1"}, Execute: true},
			ConflictDisambiguate)
		require.NoError(t, err)
		assert.Equal(t, ActionCreated, report.Action)
		assert.Equal(t, "Research (3)", report.Path)
		api.AssertExpectations(t)
	})

	t.Run("dry run reports planned creation with full input count", func(t *testing.T) {
		svc, api := newTestService(t)
		tree := zotero.BuildTree(libraryCollections())
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("EnsurePath", ctx, "Fresh/Topic", tree, false).
			Return(zotero.PathResult{Planned: true, Tree: tree}, nil)

		report, err := svc.Create(ctx,
			Request{Path: "Fresh/Topic", ItemKeys: []string{"I1", "I2", "I3"}},
			ConflictAbort)
		require.NoError(t, err)
		assert.True(t, report.Planned)
		assert.Equal(t, ActionCreated, report.Action)
		assert.Equal(t, 3, report.Added)
		api.AssertNotCalled(t, "AddItems")
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("missing collection", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)

		_, err := svc.Add(ctx, Request{Path: "Nowhere", ItemKeys: []string{"I1"}})
		assert.ErrorIs(t, err, zotero.ErrPathNotFound)
	})

	t.Run("dry run passes through planned result", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("AddItems", ctx, "AAAA1111", []string{"I1"}, false).
			Return(zotero.MutationResult{Planned: true, Processed: 1}, nil)

		report, err := svc.Add(ctx, Request{Path: "Research", ItemKeys: []string{"I1"}})
		require.NoError(t, err)
		assert.True(t, report.Planned)
		assert.Equal(t, 1, report.Added)
	})
}

func TestReplace(t *testing.T) {
	ctx := context.Background()

	t.Run("removes extras before adding missing", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("CollectionItemKeys", ctx, "AAAA1111").
			Return([]string{"KEEP", "DROP1", "DROP2"}, nil)

		order := make([]string, 0, 2)
		api.On("RemoveItems", ctx, "AAAA1111", []string{"DROP1", "DROP2"}, true).
			Run(func(mock.Arguments) { order = append(order, "remove") }).
			Return(zotero.MutationResult{Processed: 2}, nil)
		api.On("AddItems", ctx, "AAAA1111", []string{"NEW1"}, true).
			Run(func(mock.Arguments) { order = append(order, "add") }).
			Return(zotero.MutationResult{Processed: 1}, nil)

		report, err := svc.Replace(ctx, Request{
			Path:     "Research",
			ItemKeys: []string{"KEEP", "NEW1"},
			Execute:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"remove", "add"}, order)
		assert.Equal(t, ActionReplaced, report.Action)
		assert.Equal(t, 1, report.Added)
		assert.Equal(t, 2, report.Removed)
		assert.Equal(t, 1, report.Unchanged)
		assert.False(t, report.Planned)
		api.AssertExpectations(t)
	})

	t.Run("identical membership mutates nothing", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("CollectionItemKeys", ctx, "AAAA1111").Return([]string{"I1"}, nil)
		api.On("RemoveItems", ctx, "AAAA1111", []string(nil), true).
			Return(zotero.MutationResult{}, nil)
		api.On("AddItems", ctx, "AAAA1111", []string(nil), true).
			Return(zotero.MutationResult{}, nil)

		report, err := svc.Replace(ctx, Request{
			Path:     "Research",
			ItemKeys: []string{"I1"},
			Execute:  true,
		})
		require.NoError(t, err)
		assert.Zero(t, report.Added)
		assert.Zero(t, report.Removed)
		assert.Equal(t, 1, report.Unchanged)
	})
}

func TestDiff(t *testing.T) {
	ctx := context.Background()

	t.Run("partitions and sorts", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("CollectionItemKeys", ctx, "BBBB2222").
			Return([]string{"ZBOTH", "ONLYCOLL", "ABOTH"}, nil)

		report, err := svc.Diff(ctx, Request{
			Path:       "Research/Methods",
			ItemKeys:   []string{"ZBOTH", "ONLYINPUT", "ABOTH"},
			Unresolved: []string{"ghost2020"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"ABOTH", "ZBOTH"}, report.InBoth)
		assert.Equal(t, []string{"ONLYINPUT"}, report.OnlyInput)
		assert.Equal(t, []string{"ONLYCOLL"}, report.OnlyCollection)
		assert.Equal(t, []string{"ghost2020"}, report.Unresolved)
		api.AssertNotCalled(t, "AddItems")
		api.AssertNotCalled(t, "RemoveItems")
	})

	t.Run("empty input still diffs", func(t *testing.T) {
		svc, api := newTestService(t)
		api.On("Collections", ctx).Return(libraryCollections(), nil)
		api.On("CollectionItemKeys", ctx, "AAAA1111").Return([]string{"I1"}, nil)

		report, err := svc.Diff(ctx, Request{Path: "Research"})
		require.NoError(t, err)
		assert.Empty(t, report.InBoth)
		assert.Empty(t, report.OnlyInput)
		assert.Equal(t, []string{"I1"}, report.OnlyCollection)
	})
}
