package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/pkg/monitor"
	"github.com/haivivi/geartap/pkg/tap"
)

var watchMode string

var watchCmd = &cobra.Command{
	Use:   "watch [url]",
	Short: "Follow a running monitor's feed",
	Long: `Connect to a 'geartap monitor' instance and render its traffic.

The URL defaults to the configured listen address, so on the same
machine a bare 'geartap watch' attaches to the local monitor. Stats
frames are printed between data as they arrive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMode, "mode", "", "render mode, ascii or hex (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	tapCfg, err := loadTap()
	if err != nil {
		return err
	}

	url := "ws://" + tapCfg.Listen + "/ws"
	if len(args) == 1 {
		url = args[0]
	}

	modeName := tapCfg.Mode
	if watchMode != "" {
		modeName = watchMode
	}
	mode, err := tap.ParseViewMode(modeName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = monitor.Watch(ctx, url, os.Stdout, mode)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
