package codec

import "execgate/internal/model/enum"

// Keys present in every binary frame.
const (
	keySymbol         = "symbol"
	keyOrderID        = "order_id"
	keyEventID        = "event_id"
	keyEventTimestamp = "event_timestamp"
	keyEventType      = "event_type"
)

// Variant keys. The text encoding uses the same names for its positional fields.
const (
	keySubmittedTime      = "submitted_time"
	keyAcceptedTime       = "accepted_time"
	keyRejectedTime       = "rejected_time"
	keyRejectedReason     = "rejected_reason"
	keyBrokerOrderID      = "broker_order_id"
	keyWorkingTime        = "working_time"
	keyCancelledTime      = "cancelled_time"
	keyCancelRejectTime   = "cancel_reject_time"
	keyCancelRejectReason = "cancel_reject_reason"
	keyModifiedPrice      = "modified_price"
	keyModifiedTime       = "modified_time"
	keyExpiredTime        = "expired_time"
	keyExecutionID        = "execution_id"
	keyExecutionTicket    = "execution_ticket"
	keyOrderSide          = "order_side"
	keyFilledQuantity     = "filled_quantity"
	keyLeavesQuantity     = "leaves_quantity"
	keyAveragePrice       = "average_price"
	keyExecutionTime      = "execution_time"
)

// TimestampLayout is ISO-8601 with millisecond precision and a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// headerKeys are required by every binary frame, in check order.
var headerKeys = [...]string{keySymbol, keyOrderID, keyEventID, keyEventTimestamp, keyEventType}

// layouts lists the variant fields of each kind in text position order.
// Symbol and order id always precede them.
var layouts = [...][]string{
	enum.EventKindUnknown:           nil,
	enum.EventKindOrderSubmitted:    {keySubmittedTime},
	enum.EventKindOrderAccepted:     {keyAcceptedTime},
	enum.EventKindOrderRejected:     {keyRejectedTime, keyRejectedReason},
	enum.EventKindOrderWorking:      {keyBrokerOrderID, keyWorkingTime},
	enum.EventKindOrderCancelled:    {keyCancelledTime},
	enum.EventKindOrderCancelReject: {keyCancelRejectTime, keyCancelRejectReason},
	enum.EventKindOrderModified:     {keyBrokerOrderID, keyModifiedPrice, keyModifiedTime},
	enum.EventKindOrderExpired:      {keyExpiredTime},
	enum.EventKindOrderFilled: {
		keyExecutionID, keyExecutionTicket, keyOrderSide, keyFilledQuantity,
		keyAveragePrice, keyExecutionTime,
	},
	enum.EventKindOrderPartiallyFilled: {
		keyExecutionID, keyExecutionTicket, keyOrderSide, keyFilledQuantity,
		keyLeavesQuantity, keyAveragePrice, keyExecutionTime,
	},
}

func layoutOf(kind enum.EventKind) []string {
	if !kind.IsAvailable() {
		return nil
	}
	return layouts[kind]
}

// TextFieldCount is the number of comma separated fields after the tag for kind.
func TextFieldCount(kind enum.EventKind) int {
	return 2 + len(layoutOf(kind))
}
