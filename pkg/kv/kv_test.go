package kv

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// testStore exercises the Store contract shared by all implementations.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.Get(ctx, Key{"sessions", "nope"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("err=%v, want ErrNotFound", err)
		}
	})

	t.Run("set get", func(t *testing.T) {
		if err := s.Set(ctx, Key{"sessions", "a"}, []byte("alpha")); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := s.Get(ctx, Key{"sessions", "a"})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !bytes.Equal(got, []byte("alpha")) {
			t.Errorf("got=%q", got)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Set(ctx, Key{"sessions", "a"}, []byte("alpha2")); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := s.Get(ctx, Key{"sessions", "a"})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !bytes.Equal(got, []byte("alpha2")) {
			t.Errorf("got=%q", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Set(ctx, Key{"sessions", "gone"}, []byte("x")); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Delete(ctx, Key{"sessions", "gone"}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, Key{"sessions", "gone"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("err=%v, want ErrNotFound", err)
		}
		// Deleting a missing key is not an error.
		if err := s.Delete(ctx, Key{"sessions", "gone"}); err != nil {
			t.Errorf("delete missing: %v", err)
		}
	})

	t.Run("list prefix", func(t *testing.T) {
		if err := s.Set(ctx, Key{"sessions", "b"}, []byte("beta")); err != nil {
			t.Fatalf("set: %v", err)
		}
		// A sibling namespace sharing the prefix string must not match.
		if err := s.Set(ctx, Key{"sessionsx", "q"}, []byte("other")); err != nil {
			t.Fatalf("set: %v", err)
		}

		var keys []string
		for e, err := range s.List(ctx, Key{"sessions"}) {
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			keys = append(keys, e.Key.String())
		}
		want := []string{"sessions:a", "sessions:b"}
		if len(keys) != len(want) {
			t.Fatalf("keys=%v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("keys[%d]=%q, want %q", i, keys[i], want[i])
			}
		}
	})

	t.Run("list stop early", func(t *testing.T) {
		n := 0
		for _, err := range s.List(ctx, Key{"sessions"}) {
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			n++
			break
		}
		if n != 1 {
			t.Errorf("n=%d, want 1", n)
		}
	})

	t.Run("list all", func(t *testing.T) {
		seen := map[string]bool{}
		for e, err := range s.List(ctx, nil) {
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			seen[e.Key.String()] = true
		}
		for _, k := range []string{"sessions:a", "sessions:b", "sessionsx:q"} {
			if !seen[k] {
				t.Errorf("missing %s in %v", k, seen)
			}
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	testStore(t, s)
}

func TestMemoryIsolatesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Close()

	v := []byte("abc")
	if err := s.Set(ctx, Key{"k"}, v); err != nil {
		t.Fatalf("set: %v", err)
	}
	v[0] = 'X'

	got, err := s.Get(ctx, Key{"k"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("abc")) {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
	got[0] = 'Y'

	again, err := s.Get(ctx, Key{"k"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(again, []byte("abc")) {
		t.Errorf("returned value aliased store: %q", again)
	}
}

func TestKeyString(t *testing.T) {
	if got := (Key{"sessions", "abc-123"}).String(); got != "sessions:abc-123" {
		t.Errorf("got=%q", got)
	}
	if got := (Key{}).String(); got != "" {
		t.Errorf("empty key=%q", got)
	}
}
