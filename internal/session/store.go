package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Persisted key names, identical to the keys the historical clients used
// in their secure stores.
const (
	KeyAuthToken = "authToken"
	KeyID        = "id"
	KeyFullName  = "fullName"
)

// Store is the key-value capability backing the persisted credential.
// Reads are idempotent; writes happen only on login and logout.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

type sessionItem struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (sessionItem) TableName() string {
	return "session_items"
}

// SQLiteStore keeps session keys in a small local database under the
// data directory.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "session.db")

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	if err := db.AutoMigrate(&sessionItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the stored value, or the empty string when the key is
// absent.
func (s *SQLiteStore) Get(key string) (string, error) {
	var item sessionItem
	err := s.db.Where("key = ?", key).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("read session key %q: %w", key, err)
	}
	return item.Value, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	item := sessionItem{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Save(&item).Error
	if err != nil {
		return fmt.Errorf("write session key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	err := s.db.Where("key = ?", key).Delete(&sessionItem{}).Error
	if err != nil {
		return fmt.Errorf("delete session key %q: %w", key, err)
	}
	return nil
}
