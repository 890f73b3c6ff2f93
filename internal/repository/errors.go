// Package repository holds the MySQL-backed stores. Failures that callers
// branch on are reported through the sentinel errors below; everything else
// is returned wrapped with the failing operation.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a unique key, such as
// registering a username or email that is already taken.
var ErrConflict = errors.New("conflict")

const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case mysqlErrNumber(err) == mysqlDuplicateEntry:
		return ErrConflict
	case mysqlErrNumber(err) == mysqlNoReferenced:
		return ErrNotFound
	}
	return err
}

// requireAffected turns a zero-row update into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
