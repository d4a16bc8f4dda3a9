package mysql

import (
	"fmt"

	"github.com/supportkit/kbase/pkg/store/gormstore"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// New creates a new MySQL record store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	return gormstore.New(db)
}
