package bbt

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CitationKeyRecord is one row of the Better BibTeX citationkey table. It is
// an immutable snapshot: records are read fresh on every resolution call and
// never written back.
type CitationKeyRecord struct {
	// ItemID is the local Zotero item identifier.
	ItemID int64 `gorm:"column:itemID" json:"itemID" yaml:"itemID"`
	// ItemKey is the stable identifier used by the Zotero Web API.
	ItemKey string `gorm:"column:itemKey" json:"itemKey" yaml:"itemKey"`
	// LibraryID identifies the library the item belongs to. Citation keys
	// are only unique within a library.
	LibraryID int64 `gorm:"column:libraryID" json:"libraryID" yaml:"libraryID"`
	// CitationKey is the user-facing key referenced from manuscripts.
	CitationKey string `gorm:"column:citationKey" json:"citationKey" yaml:"citationKey"`
	// Pinned reports whether the key was pinned by the user.
	Pinned bool `gorm:"column:pinned" json:"pinned" yaml:"pinned"`
	// LastPinned is the last pin timestamp, if any.
	LastPinned *string `gorm:"column:lastPinned" json:"lastPinned" yaml:"lastPinned"`
}

// TableName maps the record onto the Better BibTeX schema.
func (CitationKeyRecord) TableName() string { return "citationkey" }

// KeyMapping is the resolution result for a single citation key. One is
// produced per input key, including unresolved ones, so callers can report
// partial resolution without aborting the batch.
type KeyMapping struct {
	CitationKey string
	ItemKey     string
	ItemID      int64
	LibraryID   int64
	Found       bool
}

// Store is a read-only accessor over the Better BibTeX sqlite database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens the database strictly read-only. It fails with a not-found
// error when the file is absent rather than letting sqlite create one.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("better-bibtex database not found: %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open better-bibtex database: %w", err)
	}

	logger.Debug("opened better-bibtex database", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReadAll returns every citation key record in the database.
func (s *Store) ReadAll() ([]CitationKeyRecord, error) {
	var records []CitationKeyRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read citation key records: %w", err)
	}
	s.logger.Debug("read citation key records", zap.Int("count", len(records)))
	return records, nil
}

// Resolve maps each citation key to its Zotero item key. The result has one
// KeyMapping per input key, in input order, duplicates preserved; unresolved
// keys are flagged Found=false, never dropped. A non-nil libraryID restricts
// the lookup to one library; without it a key defined in several libraries
// resolves to the last record read, and the collision is logged.
func (s *Store) Resolve(keys []string, libraryID *int64) ([]KeyMapping, error) {
	records, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]CitationKeyRecord, len(records))
	for _, rec := range records {
		if libraryID != nil && rec.LibraryID != *libraryID {
			continue
		}
		if prev, ok := byKey[rec.CitationKey]; ok && prev.LibraryID != rec.LibraryID {
			s.logger.Warn("citation key defined in multiple libraries, keeping the later entry",
				zap.String("citationKey", rec.CitationKey),
				zap.Int64("previousLibraryID", prev.LibraryID),
				zap.Int64("libraryID", rec.LibraryID),
			)
		}
		byKey[rec.CitationKey] = rec
	}

	mappings := make([]KeyMapping, 0, len(keys))
	for _, key := range keys {
		rec, ok := byKey[key]
		if !ok {
			s.logger.Debug("unresolved citation key", zap.String("citationKey", key))
			mappings = append(mappings, KeyMapping{CitationKey: key})
			continue
		}
		mappings = append(mappings, KeyMapping{
			CitationKey: key,
			ItemKey:     rec.ItemKey,
			ItemID:      rec.ItemID,
			LibraryID:   rec.LibraryID,
			Found:       true,
		})
	}
	return mappings, nil
}
