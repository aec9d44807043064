package db

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrSelfMerge is returned when a merge operation names the same
// record as both source and target.
var ErrSelfMerge = errors.New("cannot merge a record with itself")

// ErrAlreadySigned is returned when a signature is submitted for an
// agreement that is no longer pending.
var ErrAlreadySigned = errors.New("agreement has already been signed")

// IsConstraintViolation reports whether err arose from a sqlite
// constraint failure, such as a foreign key pointing at a missing row
// or a duplicate value in a unique column. Callers typically translate
// these into a conflict response rather than a server error.
func IsConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
