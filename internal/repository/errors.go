// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// depending on the storage driver.  For example, ErrTokenInactive
// indicates that a refresh token could not be consumed because it was
// already revoked or has expired, while ErrTxConflict signals that the
// store aborted a transaction because of concurrent access.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user is created with an email that
// is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInactive is returned by token rotation when the presented
// token is unknown, revoked or expired at the moment of the update.
var ErrTokenInactive = errors.New("refresh token inactive")

// ErrTxConflict is returned when the store aborted a transaction
// because of a deadlock or lock wait timeout.  Callers may retry.
var ErrTxConflict = errors.New("transaction conflict")

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// mapTxErr converts lock contention errors into ErrTxConflict and leaves
// every other error untouched.
func mapTxErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout) {
		return errors.Join(ErrTxConflict, err)
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
