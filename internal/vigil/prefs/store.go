// Package prefs provides per-user preference storage behind a backend
// agnostic interface.
package prefs

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no value was ever set for the key.
	ErrNotFound = errors.New("preference not found")
	// ErrStorage wraps backend read/write failures.
	ErrStorage = errors.New("preference storage failure")
)

// Namespace scopes a preference key by kind, so values for different
// concerns can never collide even for the same user.
type Namespace string

const (
	NamespaceAvatar Namespace = "avatar"
)

// Key identifies one preference entry. The composite form (namespace plus
// user id) replaces string-concatenated keys, so a user id containing any
// separator character cannot collide with another key.
type Key struct {
	Namespace Namespace
	UserID    string
}

// Store is the per-user preference storage contract.
// Implementations must keep entries for different keys fully isolated.
type Store interface {
	// Get returns the stored value, or ErrNotFound if never set.
	Get(ctx context.Context, key Key) (string, error)

	// Set overwrites the value for the key unconditionally.
	Set(ctx context.Context, key Key, value string) error

	// Delete removes the entry; a subsequent Get returns ErrNotFound.
	// Deleting an absent entry is a no-op.
	Delete(ctx context.Context, key Key) error
}
