package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/haivivi/geartap/pkg/jsontime"
)

// previewSize is how many leading bytes of a capture are kept on the
// session record for quick listing.
const previewSize = 64

// RecorderConfig configures a new recording.
type RecorderConfig struct {
	// Dir is the directory capture files are written to. Required.
	Dir string

	// Name is an optional human label for the session.
	Name string

	// Device and Baud describe the tapped port, for the record only.
	Device string
	Baud   int

	// Drops, if set, is sampled at start and stop so the session can
	// report how many bytes the ring evicted while recording.
	// Typically Pipeline.Stats().Dropped wrapped in a closure.
	Drops func() uint64
}

// Recorder writes received bytes to a capture file and finalizes a
// Session record on Close. It implements io.WriteCloser so it can be
// handed straight to the pipeline as a sink.
type Recorder struct {
	store *Store

	mu        sync.Mutex
	file      *os.File
	sess      Session
	preview   []byte
	baseDrops uint64
	drops     func() uint64
	closed    bool
}

// NewRecorder starts a new recording: it creates the capture file
// under cfg.Dir and persists the initial session record.
func NewRecorder(store *Store, cfg RecorderConfig) (*Recorder, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("capture: recorder dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create dir %s: %w", cfg.Dir, err)
	}

	id := uuid.New().String()
	path := filepath.Join(cfg.Dir, id+".cap")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: create %s: %w", path, err)
	}

	r := &Recorder{
		store: store,
		file:  f,
		sess: Session{
			ID:        id,
			Name:      cfg.Name,
			Device:    cfg.Device,
			Baud:      cfg.Baud,
			StartedAt: jsontime.NowMilli(),
			File:      path,
		},
		drops: cfg.Drops,
	}
	if r.drops != nil {
		r.baseDrops = r.drops()
	}

	if err := store.Put(context.Background(), r.sess); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return r, nil
}

// Session returns a snapshot of the session record. Counters reflect
// writes so far; StoppedAt is zero until Close.
func (r *Recorder) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.sess
	sess.Preview = append([]byte(nil), r.preview...)
	return sess
}

// Write appends p to the capture file.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, os.ErrClosed
	}
	n, err := r.file.Write(p)
	r.sess.Bytes += uint64(n)
	if room := previewSize - len(r.preview); room > 0 {
		take := p[:n]
		if len(take) > room {
			take = take[:room]
		}
		r.preview = append(r.preview, take...)
	}
	return n, err
}

// Close stops the recording: it closes the capture file and persists
// the finalized session. Closing twice is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	r.sess.StoppedAt = jsontime.NowMilli()
	r.sess.Preview = r.preview
	if r.drops != nil {
		r.sess.Dropped = r.drops() - r.baseDrops
	}

	err := r.file.Close()
	if perr := r.store.Put(context.Background(), r.sess); err == nil {
		err = perr
	}
	return err
}
