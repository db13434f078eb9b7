package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/pkg/cli"
	"github.com/haivivi/geartap/pkg/monitor"
	"github.com/haivivi/geartap/pkg/tap"
	"github.com/haivivi/geartap/pkg/uart"
)

var (
	monitorListen string
	monitorBaud   int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [device]",
	Short: "Headless tap with a WebSocket monitor endpoint",
	Long: `Run the tap without a terminal, exposing received traffic and
pipeline stats over HTTP:

  GET /api/stats   one JSON stats snapshot
  GET /ws          WebSocket feed of data and stats frames

Follow the feed from another machine with 'geartap watch'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorListen, "listen", "", "listen address (default from config)")
	monitorCmd.Flags().IntVarP(&monitorBaud, "baud", "b", 0, "line rate (default from config)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	tapCfg, err := loadTap()
	if err != nil {
		return err
	}

	device := tapCfg.Device
	if len(args) == 1 {
		device = args[0]
	}
	if device == "" {
		return fmt.Errorf("no device given (pass one or set 'device' in tap.yaml)")
	}
	baud := tapCfg.Baud
	if monitorBaud > 0 {
		baud = monitorBaud
	}
	mode, err := tap.ParseViewMode(tapCfg.Mode)
	if err != nil {
		return err
	}

	// The stats closure reads pipe, which is assigned right below and
	// before the server starts answering requests.
	var pipe *tap.Pipeline
	srv := monitor.NewServer(monitor.Config{
		Stats: func() tap.Stats { return pipe.Stats() },
	})

	pipe, err = tap.New(tap.Config{
		Capacity:  tapCfg.Capacity,
		ChunkSize: tapCfg.ChunkSize,
		Output:    io.Discard,
		Feed:      srv.Feed,
	})
	if err != nil {
		return err
	}
	pipe.SetMode(mode)

	port, err := uart.Open(uart.Config{Device: device, Baud: baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}
	pipe.AttachPort(port)

	if err := pipe.Start(); err != nil {
		return err
	}
	defer pipe.Stop()

	listen := tapCfg.Listen
	if monitorListen != "" {
		listen = monitorListen
	}
	if err := srv.Start(listen); err != nil {
		return err
	}
	defer srv.Close()

	cli.PrintInfo("tapping %s @ %d — ws://%s/ws (Ctrl-C to stop)", device, baud, srv.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	cli.PrintInfo("shutting down")
	return nil
}
