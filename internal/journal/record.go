package journal

import (
	"time"

	"execgate/internal/codec"
	"execgate/internal/model"
)

// Record is one routed event. Payload holds the canonical binary frame so the event
// can be restored exactly.
type Record struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	EventID    string    `gorm:"column:event_id;type:varchar(36);uniqueIndex;not null"`
	StrategyID string    `gorm:"column:strategy_id;type:varchar(64);index;not null"`
	OrderID    string    `gorm:"column:order_id;type:varchar(64);index;not null"`
	EventType  string    `gorm:"column:event_type;type:varchar(32);not null"`
	Symbol     string    `gorm:"column:symbol;type:varchar(32);not null"`
	VenueTime  time.Time `gorm:"column:venue_time;not null"`
	EventTime  time.Time `gorm:"column:event_time;not null"`
	Payload    []byte    `gorm:"column:payload;type:bytea;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Record) TableName() string {
	return "execution_events"
}

// NewRecord builds the journal row of e routed to strategyID.
func NewRecord(strategyID string, e model.Event) (Record, error) {
	payload, err := codec.EncodeBinary(e)
	if err != nil {
		return Record{}, err
	}
	h := e.Header()
	return Record{
		EventID:    h.EventID.String(),
		StrategyID: strategyID,
		OrderID:    h.OrderID,
		EventType:  e.Kind().String(),
		Symbol:     h.Symbol.String(),
		VenueTime:  e.Time().UTC(),
		EventTime:  h.EventTimestamp.UTC(),
		Payload:    payload,
	}, nil
}

// Event decodes the stored frame.
func (r Record) Event() (model.Event, error) {
	return codec.DecodeBinary(r.Payload)
}
