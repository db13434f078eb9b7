package monitor

import (
	"context"
	"fmt"
	"io"

	"github.com/gorilla/websocket"

	"github.com/haivivi/geartap/pkg/tap"
)

// Watch connects to a monitor feed and renders incoming frames to w
// until ctx is canceled or the connection drops. Data frames are
// rendered in the given view mode; stats frames become a one-line
// summary.
func Watch(ctx context.Context, url string, w io.Writer, mode tap.ViewMode) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("monitor: connect %s: %w (status %s)", url, err, resp.Status)
		}
		return fmt.Errorf("monitor: connect %s: %w", url, err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the context is canceled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("monitor: read frame: %w", err)
		}

		switch f.Type {
		case FrameData:
			if _, err := io.WriteString(w, mode.Render(f.Data)); err != nil {
				return err
			}
		case FrameStats:
			if f.Stats == nil {
				continue
			}
			st := f.Stats
			line := fmt.Sprintf("\n-- %s rx=%d tx=%d dropped=%d buffered=%d/%d live=%v mode=%s\n",
				st.Uptime, st.Received, st.Transmitted, st.Dropped,
				st.Buffered, st.Capacity, st.Live, st.Mode)
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}
	}
}
