// Package repository holds the SQL access layer.  Every statement is a
// parameterized query that runs unchanged on SQLite and MySQL.  The
// sentinel values below let handlers tell failure scenarios apart without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the addressed row does not exist (or is not
// visible to the caller).  Handlers translate it into a 404.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update collides with a unique
// key, such as a taken username or mail.
var ErrDuplicate = errors.New("duplicate")

// ErrVersionConflict is returned by compare-and-swap updates when the row
// changed between read and write.  Callers reload and retry.
var ErrVersionConflict = errors.New("version conflict")
