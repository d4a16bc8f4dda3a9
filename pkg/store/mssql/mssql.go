package mssql

import (
	"fmt"

	"github.com/supportkit/kbase/pkg/store/gormstore"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

// New creates a new MSSQL record store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mssql: %w", err)
	}
	return gormstore.New(db)
}
