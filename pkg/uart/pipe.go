package uart

import (
	"slices"
	"sync"
	"time"
)

// Pipe creates a connected pair of in-memory ports. Bytes written to one
// end are read from the other. Reads honor a read timeout the way a real
// port does, returning (0, nil) when nothing arrives in time. Closing
// either end fails the whole pair: the peer's next operation returns the
// close error.
//
// Pipe is useful for tests and for dry-running transmit scripts without
// hardware.
func Pipe() (*PipePort, *PipePort) {
	shared := &pipeShared{done: make(chan struct{})}
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a := &PipePort{in: ba, out: ab, shared: shared, timeout: DefaultReadTimeout}
	b := &PipePort{in: ab, out: ba, shared: shared, timeout: DefaultReadTimeout}
	return a, b
}

// pipeShared carries the close state across both ends.
type pipeShared struct {
	mu       sync.Mutex
	closed   bool
	closeErr error
	done     chan struct{}
}

func (s *pipeShared) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	return ErrClosed
}

// PipePort is one end of an in-memory port pair.
type PipePort struct {
	in     <-chan []byte
	out    chan<- []byte
	shared *pipeShared

	mu      sync.Mutex
	timeout time.Duration
	pending []byte // remainder of a chunk the last Read did not consume
	flow    bool
}

// SetReadTimeout overrides the read timeout, which defaults to
// DefaultReadTimeout. Tests shorten it to keep timeout paths fast.
func (p *PipePort) SetReadTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

// Read receives up to len(b) bytes from the peer, waiting at most the read
// timeout. A timeout is reported as (0, nil).
func (p *PipePort) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case chunk := <-p.in:
		n := copy(b, chunk)
		if n < len(chunk) {
			p.pending = chunk[n:]
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-p.shared.done:
		return 0, p.shared.err()
	}
}

// Write hands b to the peer. The returned count is len(b) unless the pipe
// is closed.
func (p *PipePort) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	select {
	case <-p.shared.done:
		return 0, p.shared.err()
	default:
	}
	select {
	case p.out <- slices.Clone(b):
		return len(b), nil
	case <-p.shared.done:
		return 0, p.shared.err()
	}
}

// SetFlowControl records the requested state. A loopback has no modem
// lines, so this always succeeds.
func (p *PipePort) SetFlowControl(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flow = on
	return nil
}

// FlowControl reports the last state passed to SetFlowControl.
func (p *PipePort) FlowControl() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flow
}

// Close closes both ends of the pair. Equivalent to CloseWithError(nil).
func (p *PipePort) Close() error {
	return p.CloseWithError(nil)
}

// CloseWithError closes the pair with the given error, which the peer's
// pending and future operations return. A nil err is reported as ErrClosed.
func (p *PipePort) CloseWithError(err error) error {
	p.shared.mu.Lock()
	defer p.shared.mu.Unlock()
	if p.shared.closed {
		return nil
	}
	p.shared.closed = true
	p.shared.closeErr = err
	close(p.shared.done)
	return nil
}

var _ Port = (*PipePort)(nil)
