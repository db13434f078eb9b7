package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// LogWriter colors slog text-handler lines by level, for use as the
// handler's output in interactive commands. Multi-line writes are
// split so each line is styled on its own.
type LogWriter struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
}

// NewLogWriter wraps w, typically os.Stderr.
func NewLogWriter(w io.Writer) *LogWriter {
	return &LogWriter{w: w, styles: defaultStyles}
}

// Write implements io.Writer.
func (lw *LogWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		style := lw.styles.Help
		switch {
		case strings.Contains(line, "level=ERROR"):
			style = lw.styles.Error
		case strings.Contains(line, "level=WARN"):
			style = lw.styles.Warning
		case strings.Contains(line, "level=INFO"):
			style = lw.styles.Success
		}
		if _, err := fmt.Fprintln(lw.w, style.Render(line)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
