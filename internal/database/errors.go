package database

import "errors"

// ErrNotFound is returned by Open when CreateIfNotExists is false and the
// database file does not exist.
var ErrNotFound = errors.New("database not found")
