package storage

import (
	"database/sql"
	"fmt"

	goose "github.com/pressly/goose/v3"
)

// Migrate applies all pending goose migrations from dir against db.
func Migrate(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
