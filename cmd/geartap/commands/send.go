package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/pkg/cli"
	"github.com/haivivi/geartap/pkg/encoding"
	"github.com/haivivi/geartap/pkg/tap"
	"github.com/haivivi/geartap/pkg/uart"
)

var (
	sendFile     string
	sendLoopback bool
	sendBaud     int
)

var sendCmd = &cobra.Command{
	Use:   "send [device]",
	Short: "Play a transmit script against the link",
	Long: `Send a scripted byte sequence, with waits and reply checks.

The script is YAML or JSON, one action per step:

  steps:
    - text: "AT+GMR\r\n"
    - expect: "OK"
      timeout_ms: 1000
    - wait_ms: 100
    - hex: "55 AA 01 0D 0A"

'expect' polls the ring buffer until the pattern turns up or the
timeout (default 2000ms) expires. With --loopback the script runs
against an in-memory echo port instead of hardware, which makes a
script checkable before a device is plugged in.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "-", "script file (- for stdin)")
	sendCmd.Flags().BoolVar(&sendLoopback, "loopback", false, "run against an in-memory echo port")
	sendCmd.Flags().IntVarP(&sendBaud, "baud", "b", 0, "line rate (default from config)")
	rootCmd.AddCommand(sendCmd)
}

// sendStep is one entry in a transmit script. Exactly one action field
// should be set per step.
type sendStep struct {
	// Text is sent as-is.
	Text string `yaml:"text,omitempty" json:"text,omitempty"`

	// Hex is parsed loosely ("55 AA 0x0D 0A") and sent.
	Hex string `yaml:"hex,omitempty" json:"hex,omitempty"`

	// WaitMs pauses the script.
	WaitMs int `yaml:"wait_ms,omitempty" json:"wait_ms,omitempty"`

	// Expect polls the ring until this text shows up.
	Expect string `yaml:"expect,omitempty" json:"expect,omitempty"`

	// TimeoutMs bounds an expect step. Defaults to 2000.
	TimeoutMs int `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

type sendScript struct {
	Steps []sendStep `yaml:"steps" json:"steps"`
}

func runSend(cmd *cobra.Command, args []string) error {
	tapCfg, err := loadTap()
	if err != nil {
		return err
	}

	var script sendScript
	if err := cli.LoadRequest(sendFile, &script); err != nil {
		return err
	}
	if len(script.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}

	pipe, err := tap.New(tap.Config{
		Capacity:  tapCfg.Capacity,
		ChunkSize: tapCfg.ChunkSize,
		Output:    io.Discard,
	})
	if err != nil {
		return err
	}

	if sendLoopback {
		dev, far := uart.Pipe()
		far.SetReadTimeout(10 * time.Millisecond)
		pipe.AttachPort(dev)
		go echo(far)
	} else {
		device := tapCfg.Device
		if len(args) == 1 {
			device = args[0]
		}
		if device == "" {
			return fmt.Errorf("no device given (pass one, set 'device' in tap.yaml, or use --loopback)")
		}
		baud := tapCfg.Baud
		if sendBaud > 0 {
			baud = sendBaud
		}
		port, err := uart.Open(uart.Config{Device: device, Baud: baud})
		if err != nil {
			return fmt.Errorf("open %s: %w", device, err)
		}
		pipe.AttachPort(port)
	}

	if err := pipe.Start(); err != nil {
		return err
	}
	defer pipe.Stop()

	if err := playScript(pipe, script.Steps, os.Stdout); err != nil {
		return err
	}
	cli.PrintSuccess("script complete (%d steps)", len(script.Steps))
	return nil
}

// playScript runs the steps in order against a started pipeline,
// reporting progress per step.
func playScript(p *tap.Pipeline, steps []sendStep, out io.Writer) error {
	for i, step := range steps {
		switch {
		case step.Text != "":
			n, err := p.Send([]byte(step.Text))
			if err != nil {
				return fmt.Errorf("step %d: send: %w", i+1, err)
			}
			fmt.Fprintf(out, "step %d: sent %d bytes\n", i+1, n)
		case step.Hex != "":
			data, err := encoding.ParseHex(step.Hex)
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			n, err := p.Send(data)
			if err != nil {
				return fmt.Errorf("step %d: send: %w", i+1, err)
			}
			fmt.Fprintf(out, "step %d: sent %d/%d bytes\n", i+1, n, len(data))
		case step.Expect != "":
			timeout := 2 * time.Second
			if step.TimeoutMs > 0 {
				timeout = time.Duration(step.TimeoutMs) * time.Millisecond
			}
			if err := waitForPattern(p, []byte(step.Expect), timeout); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			fmt.Fprintf(out, "step %d: matched %q\n", i+1, step.Expect)
		case step.WaitMs > 0:
			time.Sleep(time.Duration(step.WaitMs) * time.Millisecond)
			fmt.Fprintf(out, "step %d: waited %dms\n", i+1, step.WaitMs)
		default:
			return fmt.Errorf("step %d: empty step (want text, hex, wait_ms or expect)", i+1)
		}
	}
	return nil
}

// waitForPattern polls the ring for the pattern until the timeout.
func waitForPattern(p *tap.Pipeline, pattern []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if p.Find(pattern) >= 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("expect %q: no match within %s", pattern, timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// echo reflects everything written to the port back at it, standing in
// for a device during loopback runs.
func echo(port *uart.PipePort) {
	buf := make([]byte, 4096)
	for {
		n, err := port.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if _, err := port.Write(buf[:n]); err != nil {
			return
		}
	}
}
