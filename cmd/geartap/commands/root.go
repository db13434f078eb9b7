package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/cmd/geartap/internal/config"
	"github.com/haivivi/geartap/pkg/cli"
)

var (
	// Global flags
	verbose     bool
	contextName string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "geartap",
	Short: "Serial link tap with a lossy ring buffer",
	Long: `geartap - tap a serial link through a fixed-size ring buffer.

The tap never blocks the link: received bytes land in a ring buffer and
the oldest bytes are dropped when a consumer falls behind. Commands:

  shell      Interactive terminal (open, txs, txx, dump, find, rec, ...)
  monitor    Headless tap exposing stats and frames over WebSocket
  watch      Follow a running monitor from another terminal
  send       Play a transmit script (text, hex, waits, expects)
  sessions   Browse and archive recorded capture sessions

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/geartap/
  Linux:   ~/.config/geartap/
  Windows: %AppData%/geartap/

Examples:
  # Configure a context for the bench setup
  geartap config add bench
  geartap config use bench

  # Talk to a device interactively
  geartap shell /dev/ttyUSB0

  # Tap headless and watch from elsewhere
  geartap monitor /dev/ttyUSB0 --listen 0.0.0.0:8750
  geartap watch ws://bench-pi:8750/ws --mode hex`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "config context (default: current context)")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Store error for deferred reporting — commands that need config
		// will get a clear error via GetConfig(). This avoids failing
		// commands like 'geartap version'.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cli.NewLogWriter(os.Stderr), &slog.HandlerOptions{
		Level: level,
	})))
}

// GetConfig returns the global configuration.
// Returns an error if the config could not be loaded (e.g., HOME not set).
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		// Try loading again (e.g., dir was created since init).
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// loadTap resolves the tap settings for the selected context and
// validates them.
func loadTap() (*config.Tap, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	t, err := cfg.LoadTap(contextName)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tap config: %w", err)
	}
	return t, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
