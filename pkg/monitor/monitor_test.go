package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/geartap/pkg/tap"
)

func startTestServer(t *testing.T, stats func() tap.Stats) *Server {
	t.Helper()
	srv := NewServer(Config{Stats: stats, StatsEvery: 50 * time.Millisecond})
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// syncWriter is a goroutine-safe bytes.Buffer.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func testStats() tap.Stats {
	return tap.Stats{
		PortOpen: true,
		Device:   "/dev/ttyUSB0",
		Baud:     115200,
		Mode:     "hex",
		Capacity: 65536,
		Received: 42,
	}
}

func TestServerStatsEndpoint(t *testing.T) {
	srv := startTestServer(t, testStats)

	resp, err := http.Get("http://" + srv.Addr() + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}

	var st tap.Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Device != "/dev/ttyUSB0" || st.Baud != 115200 || st.Received != 42 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestServerFeed(t *testing.T) {
	srv := startTestServer(t, testStats)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The stats ticker confirms the client is registered.
	var first Frame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != FrameStats || first.Stats == nil {
		t.Fatalf("first frame = %+v", first)
	}
	if first.Stats.Capacity != 65536 {
		t.Fatalf("stats frame = %+v", first.Stats)
	}

	srv.Feed([]byte("hello gear"))

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		if f.Type != FrameData {
			continue // interleaved stats frames are fine
		}
		if !bytes.Equal(f.Data, []byte("hello gear")) {
			t.Fatalf("data = %q", f.Data)
		}
		if f.At.IsZero() {
			t.Fatal("data frame has no timestamp")
		}
		return
	}
}

func TestServerIgnoresEmptyFeed(t *testing.T) {
	srv := startTestServer(t, testStats)
	srv.Feed(nil) // must not panic or broadcast
}

func TestWatch(t *testing.T) {
	srv := startTestServer(t, testStats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncWriter
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, "ws://"+srv.Addr()+"/ws", &out, tap.ViewHex)
	}()

	waitFor(t, "rendered data", func() bool {
		srv.Feed([]byte("AB"))
		return strings.Contains(out.String(), "41 42 ")
	})

	// Stats frames render as one-line summaries.
	waitFor(t, "stats summary", func() bool {
		return strings.Contains(out.String(), "rx=42")
	})

	cancel()
	select {
	case err := <-watchErr:
		if err != context.Canceled {
			t.Fatalf("Watch returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchBadURL(t *testing.T) {
	err := Watch(context.Background(), "ws://127.0.0.1:1/ws", &bytes.Buffer{}, tap.ViewASCII)
	if err == nil {
		t.Fatal("expected connect error")
	}
}
