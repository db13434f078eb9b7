package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/cmd/geartap/internal/config"
	"github.com/haivivi/geartap/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts and tap settings.

A context is a named directory holding a tap.yaml with the serial
device, ring size, monitor address and archive backend for one setup.
Switch contexts to move between benches without retyping flags.

Examples:
  geartap config add bench
  geartap config use bench
  geartap config edit bench
  geartap config list
  geartap config show`,
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("Create one with: geartap config add <name>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tDEVICE\tLISTEN")

		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}

			device, listen := "-", "-"
			if t, err := cfg.LoadTap(name); err == nil {
				if t.Device != "" {
					device = t.Device
				}
				listen = t.Listen
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, device, listen)
		}
		w.Flush()
		return nil
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.AddContext(name); err != nil {
			return err
		}
		fmt.Printf("Context %q created.\n", name)
		fmt.Printf("Edit its tap settings with: geartap config edit %s\n", name)
		return nil
	},
}

var configRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a context and its settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.DeleteContext(name); err != nil {
			return err
		}
		fmt.Printf("Context %q deleted.\n", name)
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.UseContext(name); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q.\n", name)
		return nil
	},
}

var configCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved tap settings",
	Long: `Print the tap settings the other commands would run with,
after applying defaults. Use -c to inspect a context other than the
current one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTap()
		if err != nil {
			return err
		}
		return cli.Output(t, cli.OutputOptions{Format: cli.FormatYAML})
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit [context]",
	Short: "Open a context's tap.yaml in the default editor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		dir, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}

		// Seed the file with the resolved settings if it doesn't exist,
		// so the editor opens on something to tweak.
		path := filepath.Join(dir, config.TapService+".yaml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t, err := cfg.LoadTap(name)
			if err != nil {
				return err
			}
			if err := config.SaveService(dir, config.TapService, t); err != nil {
				return err
			}
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		c := exec.Command(editor, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configRmCmd)
	configCmd.AddCommand(configUseCmd)
	configCmd.AddCommand(configCurrentCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}
