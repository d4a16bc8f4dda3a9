package sqlite

import (
	"fmt"

	"github.com/supportkit/kbase/pkg/store/gormstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New creates a new SQLite record store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return gormstore.New(db)
}
