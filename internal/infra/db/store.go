package db

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("database unavailable")

// Store wraps the gorm handle. A nil DB means the service runs without an
// audit trail; repositories report errDBUnavailable instead of panicking.
type Store struct {
	DB *gorm.DB
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&VerificationRecordModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{DB: gdb}, nil
}
