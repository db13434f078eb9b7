// Package monitor broadcasts a tap's traffic and stats over WebSocket.
//
// A [Server] exposes two HTTP endpoints on a configurable listen
// address: GET /api/stats returns the current pipeline stats as JSON,
// and GET /ws upgrades to a WebSocket that streams [Frame] messages.
// [Watch] is the matching client.
package monitor

import (
	"github.com/haivivi/geartap/pkg/encoding"
	"github.com/haivivi/geartap/pkg/jsontime"
	"github.com/haivivi/geartap/pkg/tap"
)

// Frame types.
const (
	FrameData  = "data"
	FrameStats = "stats"
)

// Frame is one message on the monitor feed.
type Frame struct {
	Type string `json:"type"`

	// Data carries the raw tapped bytes of a "data" frame.
	Data encoding.StdBase64Data `json:"data,omitempty"`

	// Stats is attached to "stats" frames.
	Stats *tap.Stats `json:"stats,omitempty"`

	At jsontime.Milli `json:"at"`
}
