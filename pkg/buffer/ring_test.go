package buffer

import (
	"bytes"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRingNew(t *testing.T) {
	t.Run("capacity=0", func(t *testing.T) {
		if _, err := New(0); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("err=%v", err)
		}
	})

	t.Run("capacity=-1", func(t *testing.T) {
		if _, err := New(-1); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("err=%v", err)
		}
	})

	t.Run("capacity=1", func(t *testing.T) {
		r, err := New(1)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if r.Cap() != 1 || r.Len() != 0 || r.Free() != 1 {
			t.Errorf("cap=%d len=%d free=%d", r.Cap(), r.Len(), r.Free())
		}
	})
}

func TestRingWriteRead(t *testing.T) {
	t.Run("fifo", func(t *testing.T) {
		r, _ := New(16)
		if n := r.Write([]byte("abc")); n != 3 {
			t.Errorf("write=%d", n)
		}
		if n := r.Write([]byte("defgh")); n != 5 {
			t.Errorf("write=%d", n)
		}
		if r.Len() != 8 {
			t.Errorf("len=%d", r.Len())
		}

		got := make([]byte, 8)
		if n := r.Read(got); n != 8 {
			t.Errorf("read=%d", n)
		}
		if !bytes.Equal(got, []byte("abcdefgh")) {
			t.Errorf("got=%q", got)
		}
		if r.Len() != 0 || r.Free() != 16 {
			t.Errorf("len=%d free=%d", r.Len(), r.Free())
		}
	})

	t.Run("short write when full", func(t *testing.T) {
		r, _ := New(4)
		if n := r.Write([]byte("abcdef")); n != 4 {
			t.Errorf("write=%d", n)
		}
		if n := r.Write([]byte("x")); n != 0 {
			t.Errorf("write=%d", n)
		}
		got := make([]byte, 8)
		if n := r.Read(got); n != 4 || !bytes.Equal(got[:n], []byte("abcd")) {
			t.Errorf("n=%d got=%q", n, got[:n])
		}
	})

	t.Run("empty read", func(t *testing.T) {
		r, _ := New(8)
		got := make([]byte, 5)
		if n := r.Read(got); n != 0 {
			t.Errorf("read=%d", n)
		}
		if r.Len() != 0 {
			t.Errorf("len=%d", r.Len())
		}
	})

	t.Run("wraparound", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("abcdef"))
		r.Read(make([]byte, 4)) // head=4
		if n := r.Write([]byte("ghijkl")); n != 6 {
			t.Errorf("write=%d", n)
		}

		got := make([]byte, 8)
		if n := r.Read(got); n != 8 {
			t.Errorf("read=%d", n)
		}
		if !bytes.Equal(got, []byte("efghijkl")) {
			t.Errorf("got=%q", got)
		}
	})

	t.Run("many laps", func(t *testing.T) {
		r, _ := New(7)
		var seq byte
		chunk := make([]byte, 3)
		got := make([]byte, 3)
		for range 100 {
			for i := range chunk {
				chunk[i] = seq
				seq++
			}
			if n := r.Write(chunk); n != 3 {
				t.Fatalf("write=%d", n)
			}
			if n := r.Read(got); n != 3 {
				t.Fatalf("read=%d", n)
			}
			if !bytes.Equal(got, chunk) {
				t.Fatalf("got=%v want=%v", got, chunk)
			}
		}
	})
}

func TestRingDiscard(t *testing.T) {
	r, _ := New(8)
	r.Write([]byte("abcdefgh"))

	if n := r.Discard(3); n != 3 {
		t.Errorf("discard=%d", n)
	}
	if n := r.Discard(100); n != 5 {
		t.Errorf("discard=%d", n)
	}
	if r.Len() != 0 {
		t.Errorf("len=%d", r.Len())
	}
	if n := r.Discard(1); n != 0 {
		t.Errorf("discard=%d", n)
	}
}

func TestRingPeek(t *testing.T) {
	t.Run("does not consume", func(t *testing.T) {
		r, _ := New(16)
		r.Write([]byte("abcdefgh"))

		got := make([]byte, 4)
		if n := r.Peek(got, 0); n != 4 || !bytes.Equal(got, []byte("abcd")) {
			t.Errorf("n=%d got=%q", n, got)
		}
		if r.Len() != 8 {
			t.Errorf("len=%d", r.Len())
		}

		all := make([]byte, 8)
		if n := r.Read(all); n != 8 || !bytes.Equal(all, []byte("abcdefgh")) {
			t.Errorf("n=%d got=%q", n, all)
		}
	})

	t.Run("offset", func(t *testing.T) {
		r, _ := New(16)
		r.Write([]byte("abcdefgh"))

		got := make([]byte, 3)
		if n := r.Peek(got, 5); n != 3 || !bytes.Equal(got, []byte("fgh")) {
			t.Errorf("n=%d got=%q", n, got)
		}
	})

	t.Run("offset clamps length", func(t *testing.T) {
		r, _ := New(16)
		r.Write([]byte("abcdefgh"))

		got := make([]byte, 8)
		if n := r.Peek(got, 6); n != 2 || !bytes.Equal(got[:n], []byte("gh")) {
			t.Errorf("n=%d got=%q", n, got[:n])
		}
	})

	t.Run("offset out of range", func(t *testing.T) {
		r, _ := New(16)
		r.Write([]byte("abc"))

		got := make([]byte, 4)
		if n := r.Peek(got, 3); n != 0 {
			t.Errorf("n=%d", n)
		}
		if n := r.Peek(got, 100); n != 0 {
			t.Errorf("n=%d", n)
		}
		if n := r.Peek(got, -1); n != 0 {
			t.Errorf("n=%d", n)
		}
	})

	t.Run("across the wrap", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("abcdef"))
		r.Read(make([]byte, 4))
		r.Write([]byte("ghijkl")) // content "efghijkl", physically wrapped

		got := make([]byte, 4)
		if n := r.Peek(got, 2); n != 4 || !bytes.Equal(got, []byte("ghij")) {
			t.Errorf("n=%d got=%q", n, got)
		}
	})
}

func TestRingWriteOverwrite(t *testing.T) {
	t.Run("fits in free space", func(t *testing.T) {
		r, _ := New(8)
		if d := r.WriteOverwrite([]byte("abc")); d != 0 {
			t.Errorf("dropped=%d", d)
		}
		if !bytes.Equal(r.Bytes(), []byte("abc")) {
			t.Errorf("got=%q", r.Bytes())
		}
	})

	t.Run("cap=8,XY", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("ABCDEFGH"))
		if r.Len() != 8 {
			t.Fatalf("len=%d", r.Len())
		}

		if d := r.WriteOverwrite([]byte("XY")); d != 2 {
			t.Errorf("dropped=%d", d)
		}
		if !bytes.Equal(r.Bytes(), []byte("CDEFGHXY")) {
			t.Errorf("got=%q", r.Bytes())
		}
		if r.Len() != 8 {
			t.Errorf("len=%d", r.Len())
		}
	})

	t.Run("cap=8,input=10", func(t *testing.T) {
		r, _ := New(8)
		if d := r.WriteOverwrite([]byte("ABCDEFGHIJ")); d != 2 {
			t.Errorf("dropped=%d", d)
		}
		if !bytes.Equal(r.Bytes(), []byte("CDEFGHIJ")) {
			t.Errorf("got=%q", r.Bytes())
		}
		if r.Len() != r.Cap() {
			t.Errorf("len=%d cap=%d", r.Len(), r.Cap())
		}
	})

	t.Run("input equals capacity", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("old data"))
		if d := r.WriteOverwrite([]byte("ABCDEFGH")); d != 0 {
			t.Errorf("dropped=%d", d)
		}
		if !bytes.Equal(r.Bytes(), []byte("ABCDEFGH")) {
			t.Errorf("got=%q", r.Bytes())
		}
	})

	t.Run("partial shortfall", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("abcde")) // free=3
		if d := r.WriteOverwrite([]byte("12345")); d != 2 {
			t.Errorf("dropped=%d", d)
		}
		// "ab" evicted, nothing from the new write lost.
		if !bytes.Equal(r.Bytes(), []byte("cde12345")) {
			t.Errorf("got=%q", r.Bytes())
		}
	})

	t.Run("overwrite after wrap", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("abcdefgh"))
		r.Read(make([]byte, 6)) // content "gh", head=6
		r.Write([]byte("ijkl"))  // content "ghijkl", wrapped

		if d := r.WriteOverwrite([]byte("MNOP")); d != 2 {
			t.Errorf("dropped=%d", d)
		}
		if !bytes.Equal(r.Bytes(), []byte("ijklMNOP")) {
			t.Errorf("got=%q", r.Bytes())
		}
	})
}

func TestRingReset(t *testing.T) {
	r, _ := New(8)
	r.Write([]byte("abcdefgh"))
	r.Read(make([]byte, 3))

	r.Reset()
	if r.Len() != 0 || r.Free() != r.Cap() {
		t.Errorf("len=%d free=%d", r.Len(), r.Free())
	}
	if n := r.Read(make([]byte, 4)); n != 0 {
		t.Errorf("read=%d", n)
	}

	// Reset is idempotent and the ring is fully reusable.
	r.Reset()
	r.Write([]byte("xy"))
	if !bytes.Equal(r.Bytes(), []byte("xy")) {
		t.Errorf("got=%q", r.Bytes())
	}
}

func TestRingNil(t *testing.T) {
	var r *Ring
	if n := r.Write([]byte("a")); n != 0 {
		t.Errorf("write=%d", n)
	}
	if d := r.WriteOverwrite([]byte("a")); d != 0 {
		t.Errorf("dropped=%d", d)
	}
	if n := r.Read(make([]byte, 1)); n != 0 {
		t.Errorf("read=%d", n)
	}
	if n := r.Peek(make([]byte, 1), 0); n != 0 {
		t.Errorf("peek=%d", n)
	}
	if n := r.Discard(1); n != 0 {
		t.Errorf("discard=%d", n)
	}
	if i := r.Index([]byte("a")); i != -1 {
		t.Errorf("index=%d", i)
	}
	if r.Len() != 0 || r.Free() != 0 || r.Cap() != 0 {
		t.Errorf("len=%d free=%d cap=%d", r.Len(), r.Free(), r.Cap())
	}
	if b := r.Bytes(); b != nil {
		t.Errorf("bytes=%v", b)
	}
	r.Reset() // must not panic
}

// TestRingConcurrent drives one overwriting producer against one consumer
// and checks byte conservation: everything produced is either consumed,
// dropped by eviction, or still buffered at the end.
func TestRingConcurrent(t *testing.T) {
	r, _ := New(64)

	const total = 50000
	var dropped atomic.Int64

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var seq byte
		chunk := make([]byte, 13)
		sent := 0
		for sent < total {
			n := len(chunk)
			if total-sent < n {
				n = total - sent
			}
			for i := range chunk[:n] {
				chunk[i] = seq
				seq++
			}
			dropped.Add(int64(r.WriteOverwrite(chunk[:n])))
			sent += n
		}
	}()

	consumed := 0
	buf := make([]byte, 32)
	for consumed+int(dropped.Load()) < total {
		n := r.Read(buf)
		if n == 0 {
			runtime.Gosched()
			continue
		}
		consumed += n
		if got := r.Len(); got > r.Cap() {
			t.Fatalf("len=%d exceeds cap=%d", got, r.Cap())
		}
	}
	wg.Wait()

	if remaining := r.Len(); consumed+int(dropped.Load())+remaining != total {
		t.Errorf("consumed=%d dropped=%d remaining=%d total=%d",
			consumed, dropped.Load(), remaining, total)
	}
}
