package bbt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB writes a throwaway better-bibtex database and returns its path.
func newTestDB(t *testing.T, rows []CitationKeyRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "better-bibtex.sqlite")

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE citationkey (
		itemID INTEGER,
		itemKey TEXT,
		libraryID INTEGER,
		citationKey TEXT,
		pinned INTEGER DEFAULT 0,
		lastPinned TEXT
	)`).Error)

	for _, row := range rows {
		require.NoError(t, db.Exec(
			"INSERT INTO citationkey (itemID, itemKey, libraryID, citationKey, pinned, lastPinned) VALUES (?, ?, ?, ?, ?, ?)",
			row.ItemID, row.ItemKey, row.LibraryID, row.CitationKey, row.Pinned, row.LastPinned,
		).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func TestOpen(t *testing.T) {
	t.Run("missing file is a not-found error", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.sqlite"), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("existing file opens and closes", func(t *testing.T) {
		path := newTestDB(t, nil)
		store, err := Open(path, nil)
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})
}

func TestReadAll(t *testing.T) {
	pinned := "2024-01-02 10:00:00"
	path := newTestDB(t, []CitationKeyRecord{
		{ItemID: 1, ItemKey: "ABCD1234", LibraryID: 1, CitationKey: "smith2020foo", Pinned: true, LastPinned: &pinned},
		{ItemID: 2, ItemKey: "EFGH5678", LibraryID: 1, CitationKey: "lee2019bar"},
	})

	store, err := Open(path, nil)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "smith2020foo", records[0].CitationKey)
	assert.Equal(t, "ABCD1234", records[0].ItemKey)
	assert.True(t, records[0].Pinned)
	require.NotNil(t, records[0].LastPinned)
	assert.Equal(t, pinned, *records[0].LastPinned)
	assert.False(t, records[1].Pinned)
	assert.Nil(t, records[1].LastPinned)
}

func TestResolve(t *testing.T) {
	path := newTestDB(t, []CitationKeyRecord{
		{ItemID: 1, ItemKey: "ABCD1234", LibraryID: 1, CitationKey: "smith2020foo"},
		{ItemID: 2, ItemKey: "EFGH5678", LibraryID: 1, CitationKey: "lee2019bar"},
		{ItemID: 3, ItemKey: "ZZZZ9999", LibraryID: 2, CitationKey: "smith2020foo"},
	})

	store, err := Open(path, nil)
	require.NoError(t, err)
	defer store.Close()

	t.Run("one mapping per input key in input order", func(t *testing.T) {
		mappings, err := store.Resolve([]string{"smith2020foo", "unknownkey"}, nil)
		require.NoError(t, err)
		require.Len(t, mappings, 2)

		assert.True(t, mappings[0].Found)
		assert.Equal(t, "smith2020foo", mappings[0].CitationKey)
		assert.NotEmpty(t, mappings[0].ItemKey)

		assert.False(t, mappings[1].Found)
		assert.Equal(t, "unknownkey", mappings[1].CitationKey)
		assert.Empty(t, mappings[1].ItemKey)
	})

	t.Run("duplicates preserved", func(t *testing.T) {
		mappings, err := store.Resolve([]string{"lee2019bar", "lee2019bar"}, nil)
		require.NoError(t, err)
		require.Len(t, mappings, 2)
		assert.Equal(t, mappings[0], mappings[1])
	})

	t.Run("library filter restricts the map", func(t *testing.T) {
		lib := int64(2)
		mappings, err := store.Resolve([]string{"smith2020foo", "lee2019bar"}, &lib)
		require.NoError(t, err)
		require.Len(t, mappings, 2)
		assert.Equal(t, "ZZZZ9999", mappings[0].ItemKey)
		assert.Equal(t, int64(2), mappings[0].LibraryID)
		assert.False(t, mappings[1].Found)
	})

	t.Run("cross-library collision keeps the later record", func(t *testing.T) {
		mappings, err := store.Resolve([]string{"smith2020foo"}, nil)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.True(t, mappings[0].Found)
		assert.Equal(t, "ZZZZ9999", mappings[0].ItemKey)
	})
}
