package tap

import (
	"fmt"
	"strings"

	"github.com/haivivi/geartap/pkg/encoding"
)

// ViewMode selects how drained bytes are rendered.
type ViewMode int32

const (
	// ViewASCII renders printable bytes as-is and everything else as '.'.
	ViewASCII ViewMode = iota
	// ViewHex renders each byte as two uppercase hex digits plus a space.
	ViewHex
)

// String returns the mode name as used by the shell.
func (m ViewMode) String() string {
	if m == ViewHex {
		return "hex"
	}
	return "ascii"
}

// Render formats p for display in this view mode.
func (m ViewMode) Render(p []byte) string {
	if m == ViewHex {
		return encoding.FormatHex(p)
	}
	return encoding.FormatASCII(p)
}

// ParseViewMode converts a mode name ("ascii" or "hex") to a ViewMode.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(s) {
	case "ascii":
		return ViewASCII, nil
	case "hex":
		return ViewHex, nil
	}
	return ViewASCII, fmt.Errorf("tap: unknown view mode %q", s)
}
