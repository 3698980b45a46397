package enum

// EventKind is the wire tag of an order event.
type EventKind uint8

const (
	EventKindUnknown EventKind = iota
	EventKindOrderSubmitted
	EventKindOrderAccepted
	EventKindOrderRejected
	EventKindOrderWorking
	EventKindOrderCancelled
	EventKindOrderCancelReject
	EventKindOrderModified
	EventKindOrderExpired
	EventKindOrderFilled
	EventKindOrderPartiallyFilled
	_event_kind_end
)

// EventKindCount is the number of recognized kinds, EventKindUnknown excluded.
const EventKindCount = int(_event_kind_end) - 1

var eventKindTags = [...]string{
	EventKindUnknown:              "unknown",
	EventKindOrderSubmitted:       "order_submitted",
	EventKindOrderAccepted:        "order_accepted",
	EventKindOrderRejected:        "order_rejected",
	EventKindOrderWorking:         "order_working",
	EventKindOrderCancelled:       "order_cancelled",
	EventKindOrderCancelReject:    "order_cancel_reject",
	EventKindOrderModified:        "order_modified",
	EventKindOrderExpired:         "order_expired",
	EventKindOrderFilled:          "order_filled",
	EventKindOrderPartiallyFilled: "order_partially_filled",
}

func (k EventKind) IsAvailable() bool {
	return k > EventKindUnknown && k < _event_kind_end
}

// String returns the wire tag, e.g. "order_filled".
func (k EventKind) String() string {
	if k >= _event_kind_end {
		return eventKindTags[EventKindUnknown]
	}
	return eventKindTags[k]
}

// ParseEventKind matches the literal wire tag.
func ParseEventKind(tag string) (EventKind, bool) {
	for k := EventKindUnknown + 1; k < _event_kind_end; k++ {
		if eventKindTags[k] == tag {
			return k, true
		}
	}
	return EventKindUnknown, false
}

// EventKinds lists every recognized kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, EventKindCount)
	for k := EventKindUnknown + 1; k < _event_kind_end; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
