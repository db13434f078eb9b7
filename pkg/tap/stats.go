package tap

import (
	"github.com/haivivi/geartap/pkg/jsontime"
)

// Stats is a point-in-time snapshot of the pipeline. Counters are totals
// since the process started; they survive port reopens and pipeline restarts.
type Stats struct {
	StartedAt   jsontime.Milli    `json:"started_at"`
	Uptime      jsontime.Duration `json:"uptime"`
	PortOpen    bool              `json:"port_open"`
	Device      string            `json:"device,omitzero"`
	Baud        int               `json:"baud,omitzero"`
	Live        bool              `json:"live"`
	Mode        string            `json:"mode"`
	Capacity    int               `json:"capacity"`
	Buffered    int               `json:"buffered"`
	Free        int               `json:"free"`
	Received    uint64            `json:"received"`
	Transmitted uint64            `json:"transmitted"`
	Dropped     uint64            `json:"dropped"`
}
