package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateKey is returned on unique constraint violations.
var ErrDuplicateKey = errors.New("duplicate key")

// DBError keeps the driver error behind a sentinel so callers can use
// errors.Is(err, ErrDuplicateKey) and still log the original cause.
type DBError struct {
	Sentinel error
	Cause    error
}

func (e *DBError) Error() string { return e.Sentinel.Error() + ": " + e.Cause.Error() }
func (e *DBError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *DBError) Unwrap() error { return e.Cause }

// MapError translates driver specific constraint errors into sentinels.
// Unknown errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var dbe *DBError
	if errors.As(err, &dbe) {
		return err
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if me.Number == 1062 { // ER_DUP_ENTRY
			return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
		}
		return err
	}
	// go-sqlite3 reports constraint failures in the message text
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	}
	return err
}

// IsDuplicateKey reports whether err is (or maps to) a unique violation.
func IsDuplicateKey(err error) bool {
	return errors.Is(MapError(err), ErrDuplicateKey)
}
