package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"crypto_ticker/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store keeps metadata about the tracked coin (name, icon cache path).
// Prices are never persisted.
type Store struct {
	db *gorm.DB
}

// NewStore opens the SQLite store at path. An empty path resolves to the
// per-user config directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.CoinInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "CryptoTicker", "data", "ticker.db"), nil
}

// UpsertCoin creates or updates coin metadata
func (s *Store) UpsertCoin(coin *domain.CoinInfo) error {
	return s.db.Save(coin).Error
}

// GetCoin retrieves coin metadata by API id. A missing row returns nil, nil.
func (s *Store) GetCoin(id string) (*domain.CoinInfo, error) {
	var coin domain.CoinInfo
	err := s.db.First(&coin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
