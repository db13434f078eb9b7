package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/haivivi/geartap/cmd/geartap/internal/config"
	"github.com/haivivi/geartap/pkg/capture"
	"github.com/haivivi/geartap/pkg/cli"
	"github.com/haivivi/geartap/pkg/encoding"
	"github.com/haivivi/geartap/pkg/kv"
	"github.com/haivivi/geartap/pkg/tap"
	"github.com/haivivi/geartap/pkg/uart"
)

var shellBaud int

var shellCmd = &cobra.Command{
	Use:   "shell [device]",
	Short: "Interactive serial terminal",
	Long: `Interactive terminal over the ring-buffered tap.

Received bytes stream to the terminal while live output is on, and stay
inspectable in the ring buffer either way. The link is never blocked:
when the ring fills, the oldest bytes are dropped and counted.

Type 'help' inside the shell for the command list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShell,
}

func init() {
	shellCmd.Flags().IntVarP(&shellBaud, "baud", "b", 0, "line rate (default from config)")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	tapCfg, err := loadTap()
	if err != nil {
		return err
	}
	mode, err := tap.ParseViewMode(tapCfg.Mode)
	if err != nil {
		return err
	}

	pipe, err := tap.New(tap.Config{
		Capacity:  tapCfg.Capacity,
		ChunkSize: tapCfg.ChunkSize,
		Output:    os.Stdout,
	})
	if err != nil {
		return err
	}
	pipe.SetMode(mode)
	pipe.SetLive(true)
	if err := pipe.Start(); err != nil {
		return err
	}

	sh := &shell{pipe: pipe, cfg: tapCfg, out: os.Stdout}
	defer sh.shutdown()

	device := tapCfg.Device
	if len(args) == 1 {
		device = args[0]
	}
	baud := tapCfg.Baud
	if shellBaud > 0 {
		baud = shellBaud
	}
	if device != "" {
		sh.openPort(device, baud)
	}

	styles := cli.NewStyles(cli.DefaultTheme)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          styles.Prompt.Render("ser> "),
		HistoryFile:     filepath.Join(cfg.Dir, "shell_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sh.exec(line) {
			break
		}
	}
	return nil
}

// shell holds the interactive state around one pipeline. Its exec method
// is the command dispatcher, kept free of readline so tests can drive it.
type shell struct {
	pipe *tap.Pipeline
	cfg  *config.Tap
	out  io.Writer

	store      *capture.Store
	storeClose func() error

	rec     *capture.Recorder // active recording, nil when off
	logPath string            // active log sink path, "" when off
	rtscts  bool              // last state pushed to the port
}

// exec runs one shell line and reports whether the shell should quit.
func (sh *shell) exec(line string) bool {
	cmd, rest := splitCommand(line)

	switch cmd {
	case "exit", "quit":
		return true
	case "help", "?":
		sh.printHelp()
	case "open":
		sh.cmdOpen(rest)
	case "close":
		sh.cmdClose()
	case "txs":
		sh.cmdSendText(rest)
	case "txx":
		sh.cmdSendHex(rest)
	case "live":
		sh.cmdLive(rest)
	case "mode":
		sh.cmdMode(rest)
	case "log":
		sh.cmdLog(rest)
	case "rec":
		sh.cmdRec(rest)
	case "dump":
		sh.cmdDump(rest)
	case "peek":
		sh.cmdPeek(rest)
	case "find":
		sh.cmdFind(rest)
	case "findx":
		sh.cmdFindHex(rest)
	case "json":
		sh.cmdJSON(rest)
	case "clear":
		sh.pipe.Clear()
		sh.printf("cleared\n")
	case "size":
		sh.printf("size = %d\n", sh.pipe.Buffered())
	case "free":
		sh.printf("free = %d\n", sh.pipe.Free())
	case "stat":
		sh.cmdStat()
	case "rtscts":
		sh.cmdFlowControl(rest)
	default:
		sh.printf("unknown command %q (try 'help')\n", cmd)
	}
	return false
}

func (sh *shell) cmdOpen(rest string) {
	if rest == "" {
		ports, err := uart.List()
		if err != nil {
			sh.printf("list ports: %v\n", err)
			return
		}
		if len(ports) == 0 {
			sh.printf("no serial ports found\n")
			return
		}
		for _, p := range ports {
			sh.printf("%s\n", p)
		}
		return
	}

	f := strings.Fields(rest)
	device := f[0]
	baud := sh.cfg.Baud
	if len(f) >= 2 {
		b, err := strconv.Atoi(f[1])
		if err != nil || b <= 0 {
			sh.printf("usage: open <device> [baud]\n")
			return
		}
		baud = b
	}
	sh.openPort(device, baud)
}

// openPort opens the device and hands it to the pipeline, replacing any
// port already attached.
func (sh *shell) openPort(device string, baud int) {
	port, err := uart.Open(uart.Config{Device: device, Baud: baud})
	if err != nil {
		sh.printf("open %s: %v\n", device, err)
		return
	}
	sh.pipe.AttachPort(port)
	sh.rtscts = false
	sh.printf("opened %s @ %d 8N1\n", device, baud)
}

func (sh *shell) cmdClose() {
	if !sh.pipe.PortOpen() {
		sh.printf("no port open\n")
		return
	}
	if err := sh.pipe.DetachPort(); err != nil {
		sh.printf("close: %v\n", err)
		return
	}
	sh.printf("closed\n")
}

func (sh *shell) cmdSendText(rest string) {
	if rest == "" {
		sh.printf("usage: txs <text>\n")
		return
	}
	n, err := sh.pipe.Send([]byte(rest))
	if err != nil {
		sh.printSendErr(err)
		return
	}
	sh.printf("sent %d bytes\n", n)
}

func (sh *shell) cmdSendHex(rest string) {
	if rest == "" {
		sh.printf("usage: txx <hex...>\n")
		return
	}
	data, err := encoding.ParseHex(rest)
	if err != nil {
		sh.printf("parse hex: %v\n", err)
		return
	}
	n, err := sh.pipe.Send(data)
	if err != nil {
		sh.printSendErr(err)
		return
	}
	sh.printf("sent %d/%d bytes\n", n, len(data))
}

func (sh *shell) printSendErr(err error) {
	if errors.Is(err, tap.ErrNoPort) {
		sh.printf("no port open (use: open <device>)\n")
		return
	}
	sh.printf("send: %v\n", err)
}

func (sh *shell) cmdLive(rest string) {
	switch rest {
	case "":
		sh.printf("live = %s\n", onOff(sh.pipe.Live()))
	case "on", "off":
		sh.pipe.SetLive(rest == "on")
		sh.printf("live = %s\n", rest)
	default:
		sh.printf("usage: live [on|off]\n")
	}
}

func (sh *shell) cmdMode(rest string) {
	if rest == "" {
		sh.printf("mode = %s\n", sh.pipe.Mode())
		return
	}
	m, err := tap.ParseViewMode(rest)
	if err != nil {
		sh.printf("usage: mode [ascii|hex]\n")
		return
	}
	sh.pipe.SetMode(m)
	sh.printf("mode = %s\n", m)
}

func (sh *shell) cmdLog(rest string) {
	f := strings.Fields(rest)
	switch {
	case len(f) >= 1 && f[0] == "on":
		if sh.rec != nil {
			sh.printf("recording in progress; stop it first (rec stop)\n")
			return
		}
		path := "serial.log"
		if len(f) >= 2 {
			path = f[1]
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			sh.printf("open log: %v\n", err)
			return
		}
		sh.pipe.SetSink(file)
		sh.logPath = path
		sh.printf("logging to %s\n", path)
	case len(f) == 1 && f[0] == "off":
		if sh.logPath == "" {
			sh.printf("logging is off\n")
			return
		}
		if err := sh.pipe.CloseSink(); err != nil {
			sh.printf("close log: %v\n", err)
		}
		sh.printf("stopped logging to %s\n", sh.logPath)
		sh.logPath = ""
	default:
		sh.printf("usage: log on [file] | log off\n")
	}
}

func (sh *shell) cmdRec(rest string) {
	if rest == "" {
		sh.printf("usage: rec <name> | rec stop\n")
		return
	}
	if rest == "stop" {
		if sh.rec == nil {
			sh.printf("not recording\n")
			return
		}
		if err := sh.pipe.CloseSink(); err != nil {
			sh.printf("stop recording: %v\n", err)
		}
		s := sh.rec.Session()
		sh.rec = nil
		if s.Dropped > 0 {
			sh.printf("recorded session %s (%d bytes, %d dropped upstream)\n", s.ID, s.Bytes, s.Dropped)
			return
		}
		sh.printf("recorded session %s (%d bytes)\n", s.ID, s.Bytes)
		return
	}

	if sh.rec != nil {
		sh.printf("already recording (rec stop first)\n")
		return
	}
	if sh.logPath != "" {
		sh.printf("logging in progress; stop it first (log off)\n")
		return
	}
	store, err := sh.openStore()
	if err != nil {
		sh.printf("open session index: %v\n", err)
		return
	}
	st := sh.pipe.Stats()
	rec, err := capture.NewRecorder(store, capture.RecorderConfig{
		Dir:    sh.cfg.CapturesDir(),
		Name:   rest,
		Device: st.Device,
		Baud:   st.Baud,
		Drops:  func() uint64 { return sh.pipe.Stats().Dropped },
	})
	if err != nil {
		sh.printf("start recording: %v\n", err)
		return
	}
	sh.pipe.SetSink(rec)
	sh.rec = rec
	sh.printf("recording %q -> %s\n", rest, rec.Session().File)
}

func (sh *shell) cmdDump(rest string) {
	n := 256
	if rest != "" {
		v, err := strconv.ParseInt(rest, 0, 32)
		if err != nil || v < 0 {
			sh.printf("usage: dump [n]\n")
			return
		}
		n = int(v)
	}
	if n == 0 {
		sh.printf("(n=0)\n")
		return
	}
	data := sh.pipe.Peek(n, 0)
	if len(data) == 0 {
		sh.printf("(empty)\n")
		return
	}
	sh.printf("%s\n", sh.pipe.Mode().Render(data))
}

func (sh *shell) cmdPeek(rest string) {
	f := strings.Fields(rest)
	if len(f) != 2 {
		sh.printf("usage: peek <offset> <n>\n")
		return
	}
	off, err1 := strconv.Atoi(f[0])
	n, err2 := strconv.Atoi(f[1])
	if err1 != nil || err2 != nil || off < 0 || n <= 0 {
		sh.printf("usage: peek <offset> <n>\n")
		return
	}
	data := sh.pipe.Peek(n, off)
	if len(data) == 0 {
		sh.printf("(empty)\n")
		return
	}
	sh.printf("%s\n", sh.pipe.Mode().Render(data))
}

func (sh *shell) cmdFind(rest string) {
	if rest == "" {
		sh.printf("usage: find <text>\n")
		return
	}
	sh.printFound(sh.pipe.Find([]byte(rest)))
}

func (sh *shell) cmdFindHex(rest string) {
	if rest == "" {
		sh.printf("usage: findx <hex...>\n")
		return
	}
	data, err := encoding.ParseHex(rest)
	if err != nil {
		sh.printf("parse hex: %v\n", err)
		return
	}
	sh.printFound(sh.pipe.Find(data))
}

func (sh *shell) printFound(idx int) {
	if idx < 0 {
		sh.printf("not found\n")
		return
	}
	sh.printf("found at offset %d\n", idx)
}

func (sh *shell) cmdJSON(rest string) {
	max := 4096
	if rest != "" {
		v, err := strconv.ParseInt(rest, 0, 32)
		if err != nil || v <= 0 {
			sh.printf("usage: json [max]\n")
			return
		}
		max = int(v)
	}
	data := sh.pipe.Peek(max, 0)
	obj, err := encoding.ExtractJSON(data)
	if err != nil {
		sh.printf("no JSON object found\n")
		return
	}
	var v any
	if err := json.Unmarshal(obj, &v); err != nil {
		sh.printf("%s\n", obj)
		return
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		sh.printf("%s\n", obj)
		return
	}
	sh.printf("%s\n", pretty)
}

func (sh *shell) cmdStat() {
	st := sh.pipe.Stats()
	sh.printf("RX=%d TX=%d dropped(oldest)=%d rb(size=%d free=%d cap=%d)\n",
		st.Received, st.Transmitted, st.Dropped, st.Buffered, st.Free, st.Capacity)
	if st.PortOpen {
		sh.printf("port %s @ %d (rtscts %s)\n", st.Device, st.Baud, onOff(sh.rtscts))
	}
}

func (sh *shell) cmdFlowControl(rest string) {
	switch rest {
	case "":
		sh.printf("rtscts = %s\n", onOff(sh.rtscts))
	case "on", "off":
		on := rest == "on"
		if err := sh.pipe.SetFlowControl(on); err != nil {
			if errors.Is(err, tap.ErrNoPort) {
				sh.printf("no port open\n")
				return
			}
			sh.printf("set rtscts: %v\n", err)
			return
		}
		sh.rtscts = on
		sh.printf("rtscts = %s\n", rest)
	default:
		sh.printf("usage: rtscts [on|off]\n")
	}
}

func (sh *shell) printHelp() {
	sh.printf(`commands:
  open [device [baud]]   open a port (bare: list candidates)
  close                  close the port
  txs <text>             send text bytes as-is
  txx <hex...>           send hex bytes ("55 AA 0x0D 0A")
  live [on|off]          toggle live output
  mode [ascii|hex]       switch the render mode
  log on [file] | off    mirror raw received bytes to a file (append)
  rec <name> | rec stop  record a capture session
  dump [n]               show up to n buffered bytes (default 256)
  peek <offset> <n>      show n bytes at a logical offset
  find <text>            search the buffer for text
  findx <hex...>         search the buffer for a hex pattern
  json [max]             salvage the first JSON object in the buffer
  clear                  drop everything buffered
  size / free            buffered / free byte counts
  stat                   RX/TX/dropped counters and ring usage
  rtscts [on|off]        RTS/CTS flow control
  exit | quit            leave the shell
`)
}

// openStore opens the session index on first use.
func (sh *shell) openStore() (*capture.Store, error) {
	if sh.store != nil {
		return sh.store, nil
	}
	db, err := kv.NewBadger(sh.cfg.IndexDir())
	if err != nil {
		return nil, err
	}
	sh.store = capture.NewStore(db)
	sh.storeClose = db.Close
	return sh.store, nil
}

// shutdown stops the pipeline, which also finalizes any active sink
// (log file or recording), then releases the session index.
func (sh *shell) shutdown() {
	sh.pipe.Stop()
	if sh.storeClose != nil {
		if err := sh.storeClose(); err != nil {
			slog.Warn("shell: close session index", "err", err)
		}
	}
}

func (sh *shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

// splitCommand splits a shell line into the lowercased command word and
// the rest of the line with leading spaces removed. Internal spacing is
// preserved so txs sends exactly what was typed.
func splitCommand(line string) (string, string) {
	line = strings.TrimLeft(line, " \t")
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:i]), strings.TrimLeft(line[i+1:], " \t")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
