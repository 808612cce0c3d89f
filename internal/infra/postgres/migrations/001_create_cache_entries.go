package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createCacheEntriesTable creates the key/value table used by the postgres cache driver.
func createCacheEntriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_cache_entries",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS cache_entries (
					key VARCHAR(255) PRIMARY KEY,
					value BYTEA NOT NULL,
					expires_at TIMESTAMP NOT NULL,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			// Expired-row purge scans by expiry
			return tx.Exec(
				"CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);",
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS cache_entries;").Error
		},
	}
}
