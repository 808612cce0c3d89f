package postgres

import (
	"time"
)

// CacheEntryModel is the GORM model for the cache_entries table.
type CacheEntryModel struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     []byte    `gorm:"type:bytea;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for CacheEntryModel.
func (CacheEntryModel) TableName() string {
	return "cache_entries"
}
