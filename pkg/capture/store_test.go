package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/geartap/pkg/jsontime"
	"github.com/haivivi/geartap/pkg/kv"
)

func TestStorePutGet(t *testing.T) {
	store := NewStore(kv.NewMemory())
	ctx := context.Background()

	sess := Session{
		ID:        "id-1",
		Name:      "boot log",
		Device:    "/dev/ttyUSB0",
		Baud:      115200,
		StartedAt: jsontime.NowMilli(),
		Bytes:     1024,
		Dropped:   3,
		Preview:   []byte{0x55, 0xAA, 0x01},
		File:      "/tmp/id-1.cap",
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "id-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sess.ID || got.Name != sess.Name || got.Device != sess.Device {
		t.Fatalf("got %+v, want %+v", got, sess)
	}
	if got.Baud != 115200 || got.Bytes != 1024 || got.Dropped != 3 {
		t.Fatalf("counters wrong: %+v", got)
	}
	if string(got.Preview) != string(sess.Preview) {
		t.Fatalf("preview = % X", got.Preview)
	}
	if !got.Active() {
		t.Fatal("session without StoppedAt should be active")
	}

	_, err = store.Get(ctx, "nope")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorePutRequiresID(t *testing.T) {
	store := NewStore(kv.NewMemory())
	if err := store.Put(context.Background(), Session{}); err == nil {
		t.Fatal("expected error for session without id")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := NewStore(kv.NewMemory())
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		sess := Session{
			ID:        id,
			StartedAt: jsontime.Milli(base.Add(time.Duration(i) * time.Minute)),
		}
		if err := store.Put(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if list[i].ID != want {
			t.Fatalf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(kv.NewMemory())
	ctx := context.Background()

	if err := store.Put(ctx, Session{ID: "gone", StartedAt: jsontime.NowMilli()}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "gone"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing session is fine.
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Fatal(err)
	}
}
