// Package capture records windows of tapped serial traffic as sessions.
//
// A [Recorder] is an io.WriteCloser meant to be handed to the tap
// pipeline as its sink: received bytes are appended verbatim to a
// capture file while the recorder counts them and keeps a short
// preview. Closing the recorder finalizes a [Session], which a [Store]
// persists msgpack-encoded in KV. Finished capture files can be
// uploaded to a storage backend with [Archive].
package capture

import (
	"github.com/haivivi/geartap/pkg/encoding"
	"github.com/haivivi/geartap/pkg/jsontime"
)

// Session describes one recorded window of received traffic.
type Session struct {
	ID     string `json:"id" msgpack:"id"`
	Name   string `json:"name,omitempty" msgpack:"name,omitempty"`
	Device string `json:"device,omitempty" msgpack:"device,omitempty"`
	Baud   int    `json:"baud,omitempty" msgpack:"baud,omitempty"`

	StartedAt jsontime.Milli `json:"started_at" msgpack:"started_at"`
	StoppedAt jsontime.Milli `json:"stopped_at,omitzero" msgpack:"stopped_at"`

	// Bytes is the number of bytes written to the capture file.
	Bytes uint64 `json:"bytes" msgpack:"bytes"`

	// Dropped counts ring evictions that happened while this session
	// was recording.
	Dropped uint64 `json:"dropped,omitempty" msgpack:"dropped,omitempty"`

	// Preview holds the first bytes of the capture for quick listing.
	Preview encoding.HexData `json:"preview,omitempty" msgpack:"preview,omitempty"`

	// File is the path of the raw capture file on disk.
	File string `json:"file,omitempty" msgpack:"file,omitempty"`

	// ArchiveKey is set once the capture file has been uploaded to an
	// archive backend.
	ArchiveKey string `json:"archive_key,omitempty" msgpack:"archive_key,omitempty"`
}

// Active reports whether the session is still recording.
func (s Session) Active() bool {
	return s.StoppedAt.IsZero()
}
