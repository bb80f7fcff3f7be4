// Package store persists users, collections, entries and drafts.
// Every entry, draft and collection query is scoped to an owner; a row owned
// by someone else is reported exactly like a missing row.
package store

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a row does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

// validID rejects identifiers that could never match a UUID column, so that
// malformed ids surface as not-found instead of a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
