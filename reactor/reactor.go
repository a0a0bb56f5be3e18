// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor contract and readiness flags.

package reactor

import "strings"

// ReadyFlags describes what the multiplexer reported for one token.
type ReadyFlags uint8

const (
	FlagReadable ReadyFlags = 1 << iota
	FlagWritable
	FlagError
	FlagHangUp
)

// Readable reports read readiness.
func (f ReadyFlags) Readable() bool { return f&FlagReadable != 0 }

// Writable reports write readiness.
func (f ReadyFlags) Writable() bool { return f&FlagWritable != 0 }

// Failed reports an error or hang-up condition on the descriptor.
func (f ReadyFlags) Failed() bool { return f&(FlagError|FlagHangUp) != 0 }

func (f ReadyFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f&FlagReadable != 0 {
		parts = append(parts, "readable")
	}
	if f&FlagWritable != 0 {
		parts = append(parts, "writable")
	}
	if f&FlagError != 0 {
		parts = append(parts, "error")
	}
	if f&FlagHangUp != 0 {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}

// Reactor reacts to one readiness event for one token.
// Returning an error aborts the rest of the current batch; per-connection
// failures must be contained by the implementation and not returned here.
type Reactor interface {
	React(ep *EventPoll, token Token, flags ReadyFlags) error
}

// ReactorFunc adapts a plain function to the Reactor interface.
type ReactorFunc func(ep *EventPoll, token Token, flags ReadyFlags) error

// React calls f.
func (f ReactorFunc) React(ep *EventPoll, token Token, flags ReadyFlags) error {
	return f(ep, token, flags)
}

// Option customises an EventPoll.
type Option func(*options)

type options struct {
	maxEvents     int
	edgeTriggered bool
}

// WithMaxEvents bounds the number of events dequeued per wait call.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

// WithEdgeTriggered registers every descriptor edge-triggered.
func WithEdgeTriggered(on bool) Option {
	return func(o *options) { o.edgeTriggered = on }
}

func buildOptions(opts []Option) options {
	o := options{maxEvents: 256}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
