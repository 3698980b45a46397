package codec

import (
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	unixEpoch  = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	audusdFXCM = model.NewSymbol("AUDUSD", enum.VenueFXCM)
)

func sampleHeader() model.EventHeader {
	return model.EventHeader{
		EventID:        uuid.MustParse("ccc850ff-30b5-43fe-8e56-4eaa63927e51"),
		EventTimestamp: unixEpoch.Add(1500 * time.Millisecond),
		Symbol:         audusdFXCM,
		OrderID:        "O123456",
	}
}

// sampleEvents returns one event per kind, in kind order.
func sampleEvents() []model.Event {
	h := sampleHeader()
	price := decimal.RequireFromString("1.50001")
	return []model.Event{
		model.OrderSubmitted{EventHeader: h, SubmittedTime: unixEpoch},
		model.OrderAccepted{EventHeader: h, AcceptedTime: unixEpoch},
		model.OrderRejected{EventHeader: h, RejectedTime: unixEpoch, RejectedReason: "INVALID_ORDER_ID"},
		model.OrderWorking{EventHeader: h, BrokerOrderID: "B123456", WorkingTime: unixEpoch},
		model.OrderCancelled{EventHeader: h, CancelledTime: unixEpoch},
		model.OrderCancelReject{EventHeader: h, CancelRejectTime: unixEpoch, CancelRejectReason: "ORDER_DOES_NOT_EXIST"},
		model.OrderModified{EventHeader: h, BrokerOrderID: "B123456", ModifiedPrice: decimal.RequireFromString("1.00001"), ModifiedTime: unixEpoch},
		model.OrderExpired{EventHeader: h, ExpiredTime: unixEpoch},
		model.OrderFilled{
			EventHeader:     h,
			ExecutionID:     "EX123456",
			ExecutionTicket: "P123456",
			OrderSide:       enum.OrderSideBuy,
			FilledQuantity:  100000,
			AveragePrice:    price,
			ExecutionTime:   unixEpoch,
		},
		model.OrderPartiallyFilled{
			EventHeader:     h,
			ExecutionID:     "EX123456",
			ExecutionTicket: "P123456",
			OrderSide:       enum.OrderSideSell,
			FilledQuantity:  50000,
			LeavesQuantity:  25000,
			AveragePrice:    price,
			ExecutionTime:   unixEpoch,
		},
	}
}
