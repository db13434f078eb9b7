package buffer

import (
	"errors"
	"sync"
)

// ErrInvalidCapacity is returned by New when the requested capacity cannot
// back a ring.
var ErrInvalidCapacity = errors.New("buffer: capacity must be at least 1")

// Ring is a thread-safe fixed-capacity byte ring. The backing store is
// allocated once at construction and never grows; writers and readers move
// two monotonic cursors around it, so the valid region is always the
// Len() bytes starting at the read cursor, wrapping at the end of storage.
//
// Ring never blocks: Read returns 0 immediately when the ring is empty, and
// Write stops at the free space instead of overwriting. Callers that must
// never lose a write use WriteOverwrite, which evicts the oldest bytes and
// reports how many were sacrificed.
//
// All positions exposed by Ring are logical offsets: 0 is the oldest stored
// byte, independent of where it sits physically. Every method is a no-op or
// zero result on a nil *Ring.
type Ring struct {
	mu         sync.Mutex
	buf        []byte
	head, tail int64 // monotonic cursors; physical index = cursor % len(buf)
}

// New creates a Ring with the given fixed capacity in bytes.
func New(capacity int) (*Ring, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &Ring{buf: make([]byte, capacity)}, nil
}

// Write copies as many bytes of p as fit in the current free space and
// returns the number copied, which may be less than len(p) or zero when the
// ring is full. Write never blocks and never evicts stored bytes.
func (r *Ring) Write(p []byte) int {
	if r == nil || len(p) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(p)
}

// WriteOverwrite stores all of p, evicting the oldest bytes when the free
// space is short, and returns the number of bytes dropped to make room.
//
// When len(p) is at least the capacity the ring is reset and exactly the
// last Cap() bytes of p are kept; the surplus counts as dropped. Otherwise
// just enough is discarded from the front for p to fit, oldest first, and
// no byte of p itself is ever dropped. After the call p is the most recent
// content of the ring.
func (r *Ring) WriteOverwrite(p []byte) (dropped int) {
	if r == nil || len(p) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	if len(p) >= size {
		r.head, r.tail = 0, 0
		r.write(p[len(p)-size:])
		return len(p) - size
	}
	if free := size - r.used(); len(p) > free {
		dropped = r.discard(len(p) - free)
	}
	r.write(p)
	return dropped
}

// Read removes up to len(p) bytes from the front of the ring into p and
// returns the number removed. It returns 0 immediately when the ring is
// empty.
func (r *Ring) Read(p []byte) int {
	if r == nil || len(p) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(p)
}

// Discard drops up to n bytes from the front of the ring without copying
// them and returns the number dropped.
func (r *Ring) Discard(n int) int {
	if r == nil || n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discard(n)
}

// Peek copies up to len(p) bytes into p, starting at the given logical
// offset from the oldest stored byte, without consuming anything. It
// returns the number copied: 0 when the offset is at or past Len(),
// otherwise at most Len()-offset bytes.
func (r *Ring) Peek(p []byte, offset int) int {
	if r == nil || len(p) == 0 || offset < 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	avail := r.used() - offset
	if avail <= 0 {
		return 0
	}
	if len(p) > avail {
		p = p[:avail]
	}
	head := int((r.head + int64(offset)) % int64(len(r.buf)))
	var n int
	if head+len(p) <= len(r.buf) {
		n = copy(p, r.buf[head:head+len(p)])
	} else {
		n = copy(p, r.buf[head:])
		n += copy(p[n:], r.buf[:len(p)-n])
	}
	return n
}

// Len returns the number of bytes currently stored.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used()
}

// Free returns the number of bytes that can be written before eviction.
func (r *Ring) Free() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - r.used()
}

// Cap returns the fixed capacity of the ring.
func (r *Ring) Cap() int {
	if r == nil {
		return 0
	}
	return len(r.buf)
}

// Reset empties the ring by rewinding both cursors. The backing store is
// not zeroed; stale bytes are unreachable once the length is zero.
func (r *Ring) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head, r.tail = 0, 0
}

// Bytes returns a copy of the entire logical content, oldest byte first.
func (r *Ring) Bytes() []byte {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, r.used())
	head := int(r.head % int64(len(r.buf)))
	if head+len(out) <= len(r.buf) {
		copy(out, r.buf[head:])
	} else {
		n := copy(out, r.buf[head:])
		copy(out[n:], r.buf[:len(out)-n])
	}
	return out
}

// used returns the stored byte count. Caller holds mu.
func (r *Ring) used() int {
	return int(r.tail - r.head)
}

// write copies p into the free region, at most two segments when the span
// crosses the end of storage. Caller holds mu.
func (r *Ring) write(p []byte) int {
	free := len(r.buf) - r.used()
	if free == 0 {
		return 0
	}
	if len(p) > free {
		p = p[:free]
	}
	tail := int(r.tail % int64(len(r.buf)))
	var n int
	if tail+len(p) <= len(r.buf) {
		n = copy(r.buf[tail:tail+len(p)], p)
	} else {
		n = copy(r.buf[tail:], p)
		n += copy(r.buf[:len(p)-n], p[n:])
	}
	r.tail += int64(n)
	return n
}

// read copies out up to len(p) stored bytes and advances the read cursor.
// Caller holds mu.
func (r *Ring) read(p []byte) int {
	avail := r.used()
	if avail == 0 {
		return 0
	}
	if len(p) > avail {
		p = p[:avail]
	}
	head := int(r.head % int64(len(r.buf)))
	var n int
	if head+len(p) <= len(r.buf) {
		n = copy(p, r.buf[head:head+len(p)])
	} else {
		n = copy(p, r.buf[head:])
		n += copy(p[n:], r.buf[:len(p)-n])
	}
	r.head += int64(n)
	return n
}

// discard advances the read cursor by up to n bytes. Caller holds mu.
func (r *Ring) discard(n int) int {
	if avail := r.used(); n > avail {
		n = avail
	}
	r.head += int64(n)
	return n
}
