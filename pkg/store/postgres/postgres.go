package postgres

import (
	"fmt"

	"github.com/supportkit/kbase/pkg/store/gormstore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// New creates a new Postgres record store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return gormstore.New(db)
}
