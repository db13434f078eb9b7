// Package kv is the small key-value layer behind session persistence:
// hierarchical string-slice keys over a Store interface, with a BadgerDB
// implementation for on-disk state and an in-memory one for tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded form. Segments must not
// contain it.
const Separator byte = ':'

// Key is a hierarchical path represented as a slice of string segments,
// e.g. Key{"sessions", id}.
type Key []string

// String returns the encoded key, used for display and storage alike.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

func decodeKey(s string) Key {
	return Key(strings.Split(s, string(Separator)))
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries whose key starts with the given prefix,
	// in lexicographic order of the encoded key. An empty prefix lists
	// everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}
