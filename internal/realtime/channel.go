// Package realtime defines the push-change channel consumed by the sync
// engine, plus its websocket implementation.
package realtime

import (
	"context"

	"taskdeck-cli/internal/model"
)

// Status is one connection-state transition reported by a channel.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusSubscribed   Status = "subscribed"
	StatusChannelError Status = "channel_error"
	StatusTimedOut     Status = "timed_out"
	StatusClosed       Status = "closed"
)

// Terminal reports whether the channel stops delivering events after s.
func (s Status) Terminal() bool {
	switch s {
	case StatusChannelError, StatusTimedOut, StatusClosed:
		return true
	}
	return false
}

// Channel is one subscribable push-change stream.
//
// Subscribe opens the named topic and returns a status stream. Events are
// delivered through onEvent from a single goroutine, so onEvent is the one
// dispatch point for inbound changes. The status stream is closed after a
// terminal status. No delivery guarantee is made: events may be dropped
// across reconnects, which is why the engine keeps a polling backstop.
type Channel interface {
	Subscribe(ctx context.Context, topic string, onEvent func(model.ChangeEvent)) (<-chan Status, error)
	Unsubscribe() error
}
