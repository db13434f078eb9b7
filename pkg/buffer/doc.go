// Package buffer implements the fixed-capacity byte ring at the heart of
// the tap pipeline.
//
// A Ring owns a backing store whose size is set once at construction. The
// serial ingest goroutine writes into it with WriteOverwrite, which never
// blocks and never rejects input: when space runs out the oldest bytes are
// evicted, and the number sacrificed is reported so callers can keep an
// honest drop counter. The drain goroutine pops bytes with Read, which
// likewise never blocks and simply returns 0 when nothing is buffered.
//
// Content is addressed by logical offset: 0 is the oldest stored byte no
// matter where it lives physically. Peek reads at an offset without
// consuming, and Index scans for a byte pattern across the physical wrap.
// All methods are safe for concurrent use and tolerate a nil receiver.
//
// Example:
//
//	r, err := buffer.New(64 << 10)
//	if err != nil {
//		return err
//	}
//	dropped := r.WriteOverwrite(chunk)
//
//	out := make([]byte, 4096)
//	n := r.Read(out)
package buffer
