package commands

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/geartap/pkg/tap"
	"github.com/haivivi/geartap/pkg/uart"
)

// newLoopbackPipeline builds a started pipeline wired to an echo port,
// the same arrangement 'send --loopback' uses.
func newLoopbackPipeline(t *testing.T) *tap.Pipeline {
	t.Helper()
	pipe, err := tap.New(tap.Config{
		Capacity: 256,
		Logger:   testLogger{t},
		Output:   io.Discard,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	dev, far := uart.Pipe()
	dev.SetReadTimeout(5 * time.Millisecond)
	far.SetReadTimeout(5 * time.Millisecond)
	pipe.AttachPort(dev)
	go echo(far)
	if err := pipe.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(pipe.Stop)
	return pipe
}

func TestPlayScript(t *testing.T) {
	pipe := newLoopbackPipeline(t)
	out := &bytes.Buffer{}

	steps := []sendStep{
		{Text: "AT+GMR\r\n"},
		{Expect: "AT+GMR", TimeoutMs: 1000},
		{WaitMs: 5},
		{Hex: "55 AA 0x0D"},
		{Expect: "\x55\xaa", TimeoutMs: 1000},
	}
	if err := playScript(pipe, steps, out); err != nil {
		t.Fatalf("playScript: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"step 1: sent 8 bytes",
		"step 2: matched",
		"step 3: waited 5ms",
		"step 4: sent 3/3 bytes",
		"step 5: matched",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlayScriptExpectTimeout(t *testing.T) {
	pipe := newLoopbackPipeline(t)

	err := playScript(pipe, []sendStep{{Expect: "never-arrives", TimeoutMs: 50}}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "no match within") {
		t.Fatalf("err = %v, want expect timeout", err)
	}
	if !strings.Contains(err.Error(), "step 1") {
		t.Errorf("err %v does not name the step", err)
	}
}

func TestPlayScriptBadSteps(t *testing.T) {
	pipe := newLoopbackPipeline(t)

	t.Run("empty step", func(t *testing.T) {
		err := playScript(pipe, []sendStep{{}}, io.Discard)
		if err == nil || !strings.Contains(err.Error(), "empty step") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("bad hex", func(t *testing.T) {
		err := playScript(pipe, []sendStep{{Hex: "GG"}}, io.Discard)
		if err == nil || !strings.Contains(err.Error(), "invalid hex") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("no port", func(t *testing.T) {
		bare, err := tap.New(tap.Config{Logger: testLogger{t}, Output: io.Discard})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		err = playScript(bare, []sendStep{{Text: "x"}}, io.Discard)
		if err == nil || !strings.Contains(err.Error(), "send") {
			t.Fatalf("err = %v", err)
		}
	})
}
