package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/mattn/go-sqlite3"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// dateValue converts an optional day to its stored TEXT form
func dateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(entity.DateLayout)
}

// scanDate parses a stored TEXT day
func scanDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := entity.ParseDate(ns.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt date %q: %w", ns.String, err)
	}
	return &d, nil
}

// nullableString stores "" as NULL
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// timeValue converts an optional timestamp for storage
func timeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
