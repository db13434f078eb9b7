// Package cli provides terminal plumbing shared by geartap commands:
//
//   - Output formatting (yaml, json, table, raw) with optional file target
//   - Styled success/error/info printers and the shell prompt styles
//   - A jq filter for query commands (--jq)
//   - Request file loading (YAML/JSON) for send scripts
//   - A colored line writer for slog output in interactive commands
package cli
