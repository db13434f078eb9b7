package capture

import (
	"context"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/geartap/pkg/kv"
)

// keyPrefix is the KV key segment under which sessions live.
const keyPrefix = "sessions"

func sessionKey(id string) kv.Key {
	return kv.Key{keyPrefix, id}
}

// Store persists sessions in a KV store, msgpack-encoded.
type Store struct {
	kv kv.Store
}

// NewStore returns a session store over the given KV store.
func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Put writes a session, replacing any previous record with the same ID.
func (s *Store) Put(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("capture: session has no id")
	}
	data, err := msgpack.Marshal(sess)
	if err != nil {
		return fmt.Errorf("capture: encode session %s: %w", sess.ID, err)
	}
	return s.kv.Set(ctx, sessionKey(sess.ID), data)
}

// Get returns a session by ID. Returns [kv.ErrNotFound] if no session
// with that ID exists.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	data, err := s.kv.Get(ctx, sessionKey(id))
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := msgpack.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("capture: decode session %s: %w", id, err)
	}
	return sess, nil
}

// List returns all sessions, most recent first.
func (s *Store) List(ctx context.Context) ([]Session, error) {
	var all []Session
	for entry, err := range s.kv.List(ctx, kv.Key{keyPrefix}) {
		if err != nil {
			return nil, err
		}
		var sess Session
		if err := msgpack.Unmarshal(entry.Value, &sess); err != nil {
			continue // skip malformed entries
		}
		all = append(all, sess)
	}
	slices.SortFunc(all, func(a, b Session) int {
		switch {
		case b.StartedAt.Before(a.StartedAt):
			return -1
		case a.StartedAt.Before(b.StartedAt):
			return 1
		default:
			return 0
		}
	})
	return all, nil
}

// Delete removes a session record. Deleting a missing session is not
// an error. The capture file on disk is left alone.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, sessionKey(id))
}
