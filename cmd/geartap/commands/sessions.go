package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/cmd/geartap/internal/config"
	"github.com/haivivi/geartap/pkg/capture"
	"github.com/haivivi/geartap/pkg/cli"
	"github.com/haivivi/geartap/pkg/kv"
	"github.com/haivivi/geartap/pkg/storage"
)

var (
	sessionsOutput string
	sessionsJQ     string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse and archive recorded capture sessions",
	Long: `Work with the capture sessions recorded by the shell's 'rec'
command. The session index lives in the context's data directory; the
capture files sit next to it until archived.

Examples:
  geartap sessions list
  geartap sessions list -o json --jq '.[] | select(.bytes > 1024) | .id'
  geartap sessions show 1b2a…
  geartap sessions archive 1b2a…
  geartap sessions rm 1b2a…`,
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openSessionStore()
		if err != nil {
			return err
		}
		defer closeStore()

		sessions, err := store.List(context.Background())
		if err != nil {
			return err
		}
		if len(sessions) == 0 && sessionsJQ == "" {
			fmt.Println("No sessions recorded.")
			return nil
		}
		return sessionsOut(sessionList(sessions), cli.FormatTable)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one session record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openSessionStore()
		if err != nil {
			return err
		}
		defer closeStore()

		sess, err := store.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		return sessionsOut(sess, cli.FormatYAML)
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a session record and its capture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openSessionStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := context.Background()
		sess, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(ctx, sess.ID); err != nil {
			return err
		}
		if sess.File != "" {
			if err := os.Remove(sess.File); err != nil && !os.IsNotExist(err) {
				cli.PrintWarning("capture file not removed: %v", err)
			}
		}
		cli.PrintSuccess("session %s deleted", sess.ID)
		return nil
	},
}

var sessionsArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Upload a session's capture file to the archive backend",
	Long: `Copy the capture file to the configured archive backend (a local
directory by default, S3 when the context says so) and stamp the
session record with the archive key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tapCfg, err := loadTap()
		if err != nil {
			return err
		}
		fs, err := archiveStore(tapCfg)
		if err != nil {
			return err
		}

		store, closeStore, err := openSessionStore()
		if err != nil {
			return err
		}
		defer closeStore()

		key, err := capture.Archive(context.Background(), store, fs, args[0])
		if err != nil {
			return err
		}
		cli.PrintSuccess("archived as %s", key)
		return nil
	},
}

func init() {
	sessionsCmd.PersistentFlags().StringVarP(&sessionsOutput, "output", "o", "", "output format: yaml, json or table")
	sessionsCmd.PersistentFlags().StringVar(&sessionsJQ, "jq", "", "jq expression applied to the result")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsRmCmd)
	sessionsCmd.AddCommand(sessionsArchiveCmd)

	rootCmd.AddCommand(sessionsCmd)
}

// openSessionStore opens the badger-backed session index for the
// selected context.
func openSessionStore() (*capture.Store, func() error, error) {
	tapCfg, err := loadTap()
	if err != nil {
		return nil, nil, err
	}
	db, err := kv.NewBadger(tapCfg.IndexDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open session index: %w", err)
	}
	return capture.NewStore(db), db.Close, nil
}

// archiveStore builds the capture archive backend from the context's
// settings.
func archiveStore(tapCfg *config.Tap) (storage.FileStore, error) {
	a := tapCfg.Archive
	switch a.Backend {
	case "", "local":
		return storage.NewLocal(tapCfg.ArchiveRoot())
	case "s3":
		return storage.NewS3FromConfig(storage.S3Config{
			Bucket:    a.Bucket,
			Prefix:    a.Prefix,
			Region:    a.Region,
			Endpoint:  a.Endpoint,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			PathStyle: a.PathStyle,
		}), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", a.Backend)
	}
}

// sessionsOut renders a sessions result honoring -o and --jq.
func sessionsOut(v any, def cli.OutputFormat) error {
	format := cli.OutputFormat(sessionsOutput)
	if format == "" {
		format = def
	}
	if sessionsJQ != "" {
		vals, err := cli.FilterJSON(v, sessionsJQ)
		if err != nil {
			return err
		}
		var filtered any = vals
		if len(vals) == 1 {
			filtered = vals[0]
		}
		// A jq result has no table shape; fall back to JSON.
		if format == cli.FormatTable {
			format = cli.FormatJSON
		}
		return cli.Output(filtered, cli.OutputOptions{Format: format})
	}
	return cli.Output(v, cli.OutputOptions{Format: format})
}

// sessionList renders sessions as a table.
type sessionList []capture.Session

func (l sessionList) TableHeader() []string {
	return []string{"ID", "NAME", "STARTED", "BYTES", "DROPPED", "STATE", "ARCHIVE"}
}

func (l sessionList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		state := "done"
		if s.Active() {
			state = "recording"
		}
		archive := "-"
		if s.ArchiveKey != "" {
			archive = s.ArchiveKey
		}
		rows = append(rows, []string{
			s.ID,
			s.Name,
			s.StartedAt.Time().Format("2006-01-02 15:04:05"),
			cli.FormatBytes(int64(s.Bytes)),
			strconv.FormatUint(s.Dropped, 10),
			state,
			archive,
		})
	}
	return rows
}
