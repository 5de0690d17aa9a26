package eredis

import "fmt"

// EventKind tags the kind of event a subscription client delivers to its
// controlling process.
type EventKind uint8

const (
	EventMessage EventKind = iota
	EventPMessage
	EventSubscribed
	EventUnsubscribed
	EventDroppedMessages
	EventConnected
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventPMessage:
		return "pmessage"
	case EventSubscribed:
		return "subscribed"
	case EventUnsubscribed:
		return "unsubscribed"
	case EventDroppedMessages:
		return "dropped"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// RequiresAck reports whether the consumer must call AckMessage before the
// subscription client delivers the next queued message/pmessage event.
func (k EventKind) RequiresAck() bool {
	return k == EventMessage || k == EventPMessage
}

// Event is one item delivered to a subscription client's controlling
// process: an ordinary or pattern pub/sub message, a subscribe/unsubscribe
// acknowledgment, a dropped-message notice, or a connection state
// transition.
type Event struct {
	Kind    EventKind
	Channel string
	Pattern string
	Payload string
	Dropped int   // EventDroppedMessages only
	Err     error // EventDisconnected only
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Kind: %v, Channel: %q, Pattern: %q, Payload: %q, Dropped: %d, Err: %v}",
		e.Kind, e.Channel, e.Pattern, e.Payload, e.Dropped, e.Err)
}
