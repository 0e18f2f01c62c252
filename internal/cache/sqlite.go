package cache

import (
	"encoding/json"
	"errors"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type entry struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

func (entry) TableName() string { return "cache_entries" }

// sqliteStore is the default backend: a single-table embedded database
// next to the client, one row per cache key.
type sqliteStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSQLite opens (or creates) the cache database at path.
func NewSQLite(path string, log *zap.Logger) (Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Get(key string, out interface{}) (bool, error) {
	var e entry
	if err := s.db.First(&e, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		s.log.Warn("cache entry is not valid JSON", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache write skipped", zap.String("key", key), zap.Error(err))
		return err
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry{Key: key, Value: raw}).Error
	if err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *sqliteStore) Remove(key string) error {
	err := s.db.Delete(&entry{}, "key = ?", key).Error
	if err != nil {
		s.log.Warn("cache remove failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
