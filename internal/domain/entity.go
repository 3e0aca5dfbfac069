package domain

import (
	"time"
)

// CoinInfo is the cached metadata of the tracked coin
type CoinInfo struct {
	ID           string    `gorm:"primaryKey" json:"id"` // API id (e.g., "bitcoin")
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at"` // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
