package buffer

import "testing"

func TestRingIndex(t *testing.T) {
	t.Run("hello world", func(t *testing.T) {
		r, _ := New(64)
		r.Write([]byte("hello world"))
		if i := r.Index([]byte("world")); i != 6 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("match at start", func(t *testing.T) {
		r, _ := New(64)
		r.Write([]byte("hello world"))
		if i := r.Index([]byte("hello")); i != 0 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("lowest offset wins", func(t *testing.T) {
		r, _ := New(64)
		r.Write([]byte("abXabXab"))
		if i := r.Index([]byte("ab")); i != 0 {
			t.Errorf("index=%d", i)
		}
		if i := r.Index([]byte("abX")); i != 0 {
			t.Errorf("index=%d", i)
		}
		if i := r.Index([]byte("Xab")); i != 2 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("no match", func(t *testing.T) {
		r, _ := New(64)
		r.Write([]byte("hello world"))
		if i := r.Index([]byte("mars")); i != -1 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("empty pattern", func(t *testing.T) {
		r, _ := New(64)
		r.Write([]byte("abc"))
		if i := r.Index(nil); i != 0 {
			t.Errorf("index=%d", i)
		}
		if i := r.Index([]byte{}); i != 0 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("pattern longer than content", func(t *testing.T) {
		r, _ := New(64)
		r.Write([]byte("ab"))
		if i := r.Index([]byte("abc")); i != -1 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("empty ring", func(t *testing.T) {
		r, _ := New(64)
		if i := r.Index([]byte("a")); i != -1 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("across the wrap", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("abcdef"))
		r.Read(make([]byte, 5))  // head=5, content "f"
		r.Write([]byte("ghijk")) // content "fghijk", split at the seam

		if i := r.Index([]byte("ghij")); i != 1 {
			t.Errorf("index=%d", i)
		}
		// Pattern that physically straddles buf[7] and buf[0].
		if i := r.Index([]byte("hij")); i != 2 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("binary pattern", func(t *testing.T) {
		r, _ := New(32)
		r.Write([]byte{0x55, 0xAA, 0x01, 0x02, 0x0D, 0x0A})
		if i := r.Index([]byte{0x01, 0x02}); i != 2 {
			t.Errorf("index=%d", i)
		}
		if i := r.Index([]byte{0x0D, 0x0A}); i != 4 {
			t.Errorf("index=%d", i)
		}
	})

	t.Run("whole content", func(t *testing.T) {
		r, _ := New(8)
		r.Write([]byte("abcdefgh"))
		if i := r.Index([]byte("abcdefgh")); i != 0 {
			t.Errorf("index=%d", i)
		}
	})
}
