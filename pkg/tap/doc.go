// Package tap runs the serial capture pipeline: one goroutine pulls chunks
// from an attached uart.Port into a fixed-capacity ring, a second drains the
// ring to a writer when live output is on. The ring never blocks either side;
// when the producer outruns the consumer the oldest bytes are evicted and
// counted instead of stalling the link.
package tap
