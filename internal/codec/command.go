package codec

import (
	"bytes"

	"execgate/internal/model"
	"execgate/pkg/exception"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeCommand writes cmd as a msgpack map with the same scalar conventions as event
// frames: decimals and timestamps as strings, quantities as integers.
func EncodeCommand(cmd model.Command) ([]byte, error) {
	if !cmd.Kind.IsAvailable() {
		return nil, exception.ErrInvalidArgument
	}
	o := cmd.Order
	m := map[string]any{
		"command_type":  cmd.Kind.String(),
		"command_id":    cmd.ID.String(),
		"timestamp":     FormatTimestamp(cmd.Timestamp),
		"strategy_id":   cmd.StrategyID,
		keyOrderID:      o.ID,
		keySymbol:       o.Symbol.String(),
		keyOrderSide:    o.Side.String(),
		"order_type":    o.Type.String(),
		"quantity":      o.Quantity,
		"price":         o.Price.String(),
		"time_in_force": o.TimeInForce.String(),
		"label":         o.Label,
	}
	if !o.ExpireTime.IsZero() {
		m["expire_time"] = FormatTimestamp(o.ExpireTime)
	}
	if !cmd.ModifyPrice.IsZero() {
		m[keyModifiedPrice] = cmd.ModifyPrice.String()
	}
	if cmd.CancelReason != "" {
		m["cancel_reason"] = cmd.CancelReason
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
