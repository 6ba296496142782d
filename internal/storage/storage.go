// Package storage defines the key/value contract every repository backend
// implements and the key conventions layered on top of it.
//
// Key namespaces:
//
//	"b" + hash            block: 1-byte codec id followed by the payload
//	"e" + version "," path  file entry: CBOR [metadata, [hash...]]
//	"-cfg"                repository configuration, tab separated lines
//	"-rev"                current revision token
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Retrieve when the key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrInvalidRepository marks a repository whose configuration record is
	// missing or unusable.
	ErrInvalidRepository = errors.New("invalid repository")
	ErrNoRevision        = errors.New("no revision stored")
	ErrInvalidKey        = errors.New("invalid key")
	ErrUnknownBackend    = errors.New("unknown storage backend")
	ErrClosed            = errors.New("storage closed")
)

// Backend is an opaque durable key/value store. Implementations must be
// safe for sequential use by one process; concurrent writers to distinct
// keys must not corrupt each other.
type Backend interface {
	// List returns every key in the store, in no particular order.
	List(ctx context.Context) ([]string, error)
	Store(ctx context.Context, key string, value []byte) error
	// Retrieve returns ErrNotFound when key is absent.
	Retrieve(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Destroyer is implemented by backends that can erase the whole repository.
type Destroyer interface {
	Destroy(ctx context.Context) error
}
