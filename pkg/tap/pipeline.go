package tap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haivivi/geartap/pkg/buffer"
	"github.com/haivivi/geartap/pkg/jsontime"
	"github.com/haivivi/geartap/pkg/uart"
)

// Defaults for Config fields left zero.
const (
	DefaultCapacity  = 64 << 10
	DefaultChunkSize = 4096
)

// Loop pacing. The ingest loop is paced by the port read timeout while a
// port is attached; everything else idles in short sleeps so toggles and
// attach/detach take effect promptly.
const (
	noPortIdle    = 100 * time.Millisecond
	readErrPause  = 10 * time.Millisecond
	liveOffIdle   = 50 * time.Millisecond
	ringEmptyIdle = 20 * time.Millisecond
)

// ErrNoPort is returned by operations that need an attached port.
var ErrNoPort = errors.New("tap: no port attached")

// Config configures a Pipeline. The zero value is usable: a 64 KiB ring,
// 4096-byte chunks, output to stdout.
type Config struct {
	// Capacity is the ring size in bytes.
	Capacity int

	// ChunkSize bounds a single port read and a single drain step.
	ChunkSize int

	// Output receives rendered live output.
	Output io.Writer

	// Logger receives pipeline diagnostics. Defaults to the slog-backed
	// logger.
	Logger Logger

	// Feed, when set, is called from the ingest loop with a copy of every
	// received chunk. It must not block.
	Feed func(chunk []byte)
}

// Pipeline owns one ring and the two goroutines moving bytes through it.
//
// The ingest goroutine reads the attached port and pushes into the ring,
// evicting the oldest bytes when full. The drain goroutine pops from the
// ring and renders to the output writer while live output is on. Neither
// loop ever blocks on the other; a slow consumer costs old bytes, never
// link stalls.
type Pipeline struct {
	cfg  Config
	ring *buffer.Ring
	log  Logger

	mu        sync.Mutex
	port      uart.Port
	sink      io.WriteCloser
	cancel    context.CancelFunc
	startedAt time.Time
	wg        sync.WaitGroup

	live atomic.Bool
	mode atomic.Int32

	received    atomic.Uint64
	transmitted atomic.Uint64
	dropped     atomic.Uint64
}

// New creates a Pipeline. The ring is allocated here and owned exclusively
// by the pipeline for its lifetime.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger()
	}
	ring, err := buffer.New(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:  cfg,
		ring: ring,
		log:  cfg.Logger,
	}, nil
}

// Start launches the ingest and drain goroutines. It fails if the pipeline
// is already running.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return p.log.Errorf("pipeline already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.startedAt = time.Now()
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.ingest(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.drain(ctx)
	}()
	return nil
}

// Stop cancels both loops, waits for them to return, then closes the sink
// and detaches the port. It is safe to call on a stopped pipeline.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	if err := p.CloseSink(); err != nil {
		p.log.WarnPrintf("close sink: %v", err)
	}
	if err := p.DetachPort(); err != nil {
		p.log.WarnPrintf("close port: %v", err)
	}
}

// AttachPort hands a port to the ingest loop. A previously attached port is
// closed first, so reopening a device is a single call.
func (p *Pipeline) AttachPort(port uart.Port) {
	p.mu.Lock()
	old := p.port
	p.port = port
	p.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			p.log.WarnPrintf("close replaced port: %v", err)
		}
	}
}

// DetachPort removes and closes the attached port. Detaching when no port
// is attached is a no-op.
func (p *Pipeline) DetachPort() error {
	p.mu.Lock()
	port := p.port
	p.port = nil
	p.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

// PortOpen reports whether a port is attached.
func (p *Pipeline) PortOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

// Send transmits data through the attached port and counts the bytes that
// made it out. Returns ErrNoPort when nothing is attached.
func (p *Pipeline) Send(data []byte) (int, error) {
	port := p.currentPort()
	if port == nil {
		return 0, ErrNoPort
	}
	n, err := port.Write(data)
	if n > 0 {
		p.transmitted.Add(uint64(n))
	}
	return n, err
}

// SetFlowControl toggles RTS/CTS on the attached port.
func (p *Pipeline) SetFlowControl(on bool) error {
	port := p.currentPort()
	if port == nil {
		return ErrNoPort
	}
	return port.SetFlowControl(on)
}

// SetLive toggles live rendering of drained bytes.
func (p *Pipeline) SetLive(on bool) {
	p.live.Store(on)
}

// Live reports whether live rendering is on.
func (p *Pipeline) Live() bool {
	return p.live.Load()
}

// SetMode switches the render mode for drained bytes.
func (p *Pipeline) SetMode(m ViewMode) {
	p.mode.Store(int32(m))
}

// Mode returns the current render mode.
func (p *Pipeline) Mode() ViewMode {
	return ViewMode(p.mode.Load())
}

// SetSink installs a raw mirror for received bytes: every ingested chunk is
// written to it verbatim, before any rendering. A previous sink is closed.
func (p *Pipeline) SetSink(w io.WriteCloser) {
	p.mu.Lock()
	old := p.sink
	p.sink = w
	p.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			p.log.WarnPrintf("close replaced sink: %v", err)
		}
	}
}

// CloseSink removes and closes the current sink, if any.
func (p *Pipeline) CloseSink() error {
	p.mu.Lock()
	sink := p.sink
	p.sink = nil
	p.mu.Unlock()
	if sink == nil {
		return nil
	}
	return sink.Close()
}

// Peek returns a copy of up to max buffered bytes starting at the given
// logical offset, without consuming them.
func (p *Pipeline) Peek(max, offset int) []byte {
	if max <= 0 {
		return nil
	}
	out := make([]byte, max)
	n := p.ring.Peek(out, offset)
	return out[:n]
}

// Find returns the logical offset of the first occurrence of pattern in the
// buffered bytes, or -1 when absent.
func (p *Pipeline) Find(pattern []byte) int {
	return p.ring.Index(pattern)
}

// Clear empties the ring.
func (p *Pipeline) Clear() {
	p.ring.Reset()
}

// Buffered returns the number of bytes currently in the ring.
func (p *Pipeline) Buffered() int {
	return p.ring.Len()
}

// Free returns the ring space left before eviction.
func (p *Pipeline) Free() int {
	return p.ring.Free()
}

// Cap returns the ring capacity.
func (p *Pipeline) Cap() int {
	return p.ring.Cap()
}

// Stats returns a snapshot of the pipeline state without pausing the loops.
func (p *Pipeline) Stats() Stats {
	st := Stats{
		Live:        p.live.Load(),
		Mode:        p.Mode().String(),
		Capacity:    p.ring.Cap(),
		Buffered:    p.ring.Len(),
		Free:        p.ring.Free(),
		Received:    p.received.Load(),
		Transmitted: p.transmitted.Load(),
		Dropped:     p.dropped.Load(),
	}
	p.mu.Lock()
	if !p.startedAt.IsZero() {
		st.StartedAt = jsontime.Milli(p.startedAt)
		st.Uptime = jsontime.Duration(time.Since(p.startedAt))
	}
	if p.port != nil {
		st.PortOpen = true
		if d, ok := p.port.(interface{ Device() string }); ok {
			st.Device = d.Device()
		}
		if b, ok := p.port.(interface{ Baud() int }); ok {
			st.Baud = b.Baud()
		}
	}
	p.mu.Unlock()
	return st
}

func (p *Pipeline) currentPort() uart.Port {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port
}

// ingest pulls chunks from the attached port into the ring. Transient read
// errors pause the loop briefly and never kill it; a detached port just
// idles.
func (p *Pipeline) ingest(ctx context.Context) {
	chunk := make([]byte, p.cfg.ChunkSize)
	for ctx.Err() == nil {
		port := p.currentPort()
		if port == nil {
			if !sleep(ctx, noPortIdle) {
				return
			}
			continue
		}
		n, err := port.Read(chunk)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Silent when the port was swapped or detached mid-read.
			if p.currentPort() == port {
				p.log.WarnPrintf("port read: %v", err)
			}
			if !sleep(ctx, readErrPause) {
				return
			}
			continue
		}
		if n == 0 {
			// Read timeout on a quiet link.
			continue
		}
		data := chunk[:n]
		if d := p.ring.WriteOverwrite(data); d > 0 {
			p.dropped.Add(uint64(d))
		}
		p.received.Add(uint64(n))
		p.mirror(data)
		if p.cfg.Feed != nil {
			p.cfg.Feed(bytes.Clone(data))
		}
	}
}

// drain pops chunks from the ring and renders them while live output is on.
func (p *Pipeline) drain(ctx context.Context) {
	chunk := make([]byte, p.cfg.ChunkSize)
	for ctx.Err() == nil {
		if !p.live.Load() {
			if !sleep(ctx, liveOffIdle) {
				return
			}
			continue
		}
		n := p.ring.Read(chunk)
		if n == 0 {
			if !sleep(ctx, ringEmptyIdle) {
				return
			}
			continue
		}
		if _, err := io.WriteString(p.cfg.Output, p.Mode().Render(chunk[:n])); err != nil {
			p.log.WarnPrintf("render: %v", err)
		}
	}
}

// mirror appends data to the sink when one is installed. A failing sink is
// dropped after the first error so a dead disk cannot spam the log.
func (p *Pipeline) mirror(data []byte) {
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	if sink == nil {
		return
	}
	if _, err := sink.Write(data); err != nil {
		p.log.ErrorPrintf("sink write: %v, detaching sink", err)
		p.mu.Lock()
		if p.sink == sink {
			p.sink = nil
		}
		p.mu.Unlock()
		if cerr := sink.Close(); cerr != nil {
			p.log.WarnPrintf("close failed sink: %v", cerr)
		}
	}
}

// sleep waits for d or context cancellation, reporting false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
