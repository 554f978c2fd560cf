// Package repository implements data access over MySQL. Sentinel
// errors defined here let handlers distinguish failure scenarios with
// errors.Is instead of matching on driver errors: ErrNotFound maps to
// 404, ErrForbidden to 403 (resource owned by someone else) and
// ErrConflict to 409 (dependent records block the operation).
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as claiming a slot that is already full.
var ErrConflict = errors.New("conflict")
