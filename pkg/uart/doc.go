// Package uart is the serial transport boundary of the tap: a Port
// interface with a real implementation over go.bug.st/serial, and an
// in-memory pipe pair for tests and dry runs.
package uart
