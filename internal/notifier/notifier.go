// Package notifier implements a single-producer/single-consumer one-byte
// wake-up channel, the Go analogue of the self-pipe (Pipe/eventfd) idiom
// used throughout the original carpi daemon to let a poll()-based worker
// loop wake up on demand. A buffered channel of size 1 plays the role of
// the pipe's read descriptor: it can be waited on alongside other channels
// in a select, which is this codebase's "readable descriptor for
// multiplexed waits".
package notifier

import "log"

// Notifier delivers at most one undelivered byte at a time to its
// consumer. Send never blocks. If the consumer hasn't drained the
// previous value yet, the new value is logged and dropped rather than
// merged with the pending one -- distinguishable codes (e.g. button
// PRESS vs RELEASE, or EXIT vs BUTTON_CHANGED) must never be conflated.
type Notifier struct {
	name string
	ch   chan byte
}

// New creates a Notifier. name is used only for diagnostic logging when
// a send is dropped.
func New(name string) *Notifier {
	return &Notifier{
		name: name,
		ch:   make(chan byte, 1),
	}
}

// Send posts code to the notifier. It never blocks: if a previous code is
// still pending, the send is dropped and logged.
func (n *Notifier) Send(code byte) {
	select {
	case n.ch <- code:
	default:
		log.Printf("notifier %s: dropped code %d, consumer not draining", n.name, code)
	}
}

// C returns the channel to select on. Each receive drains exactly one
// pending code.
func (n *Notifier) C() <-chan byte {
	return n.ch
}
