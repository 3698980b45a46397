package codec

import (
	"testing"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeCommand(t *testing.T) {
	cmd := model.Command{
		ID:         uuid.MustParse("ccc850ff-30b5-43fe-8e56-4eaa63927e51"),
		Kind:       enum.CommandKindModifyOrder,
		StrategyID: "EMACross-01",
		Order: model.Order{
			ID:          "O123456",
			Symbol:      audusdFXCM,
			Side:        enum.OrderSideSell,
			Type:        enum.OrderTypeLimit,
			Quantity:    100000,
			Price:       decimal.RequireFromString("0.75010"),
			TimeInForce: enum.TimeInForceDay,
		},
		ModifyPrice: decimal.RequireFromString("0.75020"),
		Timestamp:   unixEpoch,
	}

	frame, err := EncodeCommand(cmd)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, msgpack.Unmarshal(frame, &m))
	assert.Equal(t, "modify_order", m["command_type"])
	assert.Equal(t, "EMACross-01", m["strategy_id"])
	assert.Equal(t, "O123456", m["order_id"])
	assert.Equal(t, "AUDUSD.FXCM", m["symbol"])
	assert.Equal(t, "SELL", m["order_side"])
	assert.Equal(t, "0.7501", m["price"])
	assert.Equal(t, "0.7502", m["modified_price"])
	assert.Equal(t, "1970-01-01T00:00:00.000Z", m["timestamp"])
	assert.NotContains(t, m, "cancel_reason")

	qty, ok := scalarString(m["quantity"])
	require.True(t, ok)
	assert.Equal(t, "100000", qty)

	_, err = EncodeCommand(model.Command{})
	require.ErrorIs(t, err, exception.ErrInvalidArgument)
}
