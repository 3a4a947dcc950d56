package net

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"skoll/internal/common"
)

func TestNewOrderMessage_RoundTrip(t *testing.T) {
	sent := NewOrderMessage{
		Side:     common.Ask,
		Ticker:   "AAPL",
		Price:    101.25,
		Quantity: 42,
		Owner:    "alice",
	}

	parsed, err := parseMessage(sent.Serialize())
	assert.NoError(t, err)

	m, ok := parsed.(*NewOrderMessage)
	assert.True(t, ok)
	assert.Equal(t, common.Ask, m.Side)
	assert.Equal(t, "AAPL", m.Ticker)
	assert.Equal(t, 101.25, m.Price)
	assert.Equal(t, uint64(42), m.Quantity)
	assert.Equal(t, "alice", m.Owner)

	order, err := m.Order()
	assert.NoError(t, err)
	assert.True(t, order.Price.Equal(decimal.RequireFromString("101.25")))
	assert.Equal(t, uint64(42), order.Quantity)
}

func TestNewOrderMessage_InvalidOrderFieldsSurfaceAtOrder(t *testing.T) {
	sent := NewOrderMessage{
		Side:     common.Bid,
		Ticker:   "AAPL",
		Price:    100.0,
		Quantity: 0,
		Owner:    "alice",
	}

	parsed, err := parseMessage(sent.Serialize())
	assert.NoError(t, err, "the codec carries the fields; validation happens at Order()")

	_, err = parsed.(*NewOrderMessage).Order()
	assert.Error(t, err)
}

func TestCancelOrderMessage_RoundTrip(t *testing.T) {
	sent := CancelOrderMessage{OrderID: 7}

	parsed, err := parseMessage(sent.Serialize())
	assert.NoError(t, err)

	m, ok := parsed.(*CancelOrderMessage)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), m.OrderID)
}

func TestParseMessage_TooShort(t *testing.T) {
	_, err := parseMessage([]byte{0x01})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	// A new-order header with a declared owner longer than the payload.
	truncated := (&NewOrderMessage{Ticker: "AAPL", Owner: "alice"}).Serialize()
	truncated[23] = 200 // owner length byte
	_, err = parseMessage(truncated)
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseMessage_InvalidType(t *testing.T) {
	_, err := parseMessage([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrInvalidMessageType)
}

func TestReport_RoundTrip(t *testing.T) {
	sent := Report{
		TypeOf:       ExecutionReport,
		Side:         common.Bid,
		Outcome:      2,
		OrderID:      15,
		Timestamp:    1700000000,
		Quantity:     10,
		Price:        6.0,
		CounterPrice: 5.0,
		Ticker:       "AAPL",
		TradeID:      "0195325a-3a9d-7b42-9ef0-3c1ff2b0a111",
		Err:          "",
		Counterparty: "seller",
	}

	parsed, err := ParseReport(sent.Serialize())
	assert.NoError(t, err)
	assert.Equal(t, ExecutionReport, parsed.TypeOf)
	assert.Equal(t, common.Bid, parsed.Side)
	assert.Equal(t, uint8(2), parsed.Outcome)
	assert.Equal(t, uint64(15), parsed.OrderID)
	assert.Equal(t, uint64(1700000000), parsed.Timestamp)
	assert.Equal(t, uint64(10), parsed.Quantity)
	assert.Equal(t, 6.0, parsed.Price)
	assert.Equal(t, 5.0, parsed.CounterPrice)
	assert.Equal(t, "AAPL", parsed.Ticker)
	assert.Equal(t, sent.TradeID, parsed.TradeID)
	assert.Equal(t, "seller", parsed.Counterparty)
	assert.Empty(t, parsed.Err)
}

func TestReport_ErrorRoundTrip(t *testing.T) {
	sent := Report{
		TypeOf: ErrorReport,
		Err:    "insufficient funds",
	}

	parsed, err := ParseReport(sent.Serialize())
	assert.NoError(t, err)
	assert.Equal(t, ErrorReport, parsed.TypeOf)
	assert.Equal(t, "insufficient funds", parsed.Err)
	assert.Empty(t, parsed.Ticker, "padding strips back to empty")
	assert.Empty(t, parsed.TradeID)
}

func TestParseReport_TooShort(t *testing.T) {
	_, err := ParseReport(make([]byte, reportFixedHeaderLen-1))
	assert.ErrorIs(t, err, ErrMessageTooShort)
}
