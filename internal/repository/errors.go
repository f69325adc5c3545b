// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.  Records
// owned by another user are reported as ErrNotFound so callers cannot
// discover that they exist.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist or is not owned
// by the requesting user. Handlers translate it into an HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness rule,
// such as renaming a tag to a name the owner already uses. Handlers
// translate it into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")
