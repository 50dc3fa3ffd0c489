// Package events is the internal event bus that carries call signaling
// events between the coordinator and every process's gateway instance.
// The coordinator may run in a different process than the websocket
// connection it needs to reach; the bus makes delivery uniform — every
// subscriber process receives every event, including the publisher's own,
// and each independently checks its local presence directory.
package events

import (
	"context"
	"encoding/json"
)

// Signaling event names delivered to clients.
const (
	CallAnswered  = "call-answered"
	CallCancelled = "call-cancelled"
	CallDeclined  = "call-declined"
	CallEnded     = "call-ended"
)

// Event is the envelope published on the bus. Target is the user the
// event is addressed to; Data is the client-facing payload forwarded
// verbatim over the websocket.
type Event struct {
	Name   string          `json:"event"`
	Target string          `json:"target"`
	Data   json.RawMessage `json:"data"`
}

// Handler consumes one event. Receiving an event twice must be harmless;
// the bus guarantees at-least-once local delivery, not exactly-once.
type Handler func(ctx context.Context, e Event)

// Bus decouples event emission from delivery so the underlying transport
// (Redis pub/sub here, a broker elsewhere) is swappable.
type Bus interface {
	Publish(ctx context.Context, e Event) error

	// Subscribe registers h for all events until ctx is done.
	Subscribe(ctx context.Context, h Handler) error
}
