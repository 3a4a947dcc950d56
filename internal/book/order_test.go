package book_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"skoll/internal/book"
	"skoll/internal/common"
)

func TestNewOrder_Normal(t *testing.T) {
	actual, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.RequireFromString("0.01"), 1)
	assert.NoError(t, err)

	expected, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.RequireFromString("0.01"), 1)
	assert.NoError(t, err)

	assert.True(t, actual.Equal(expected))
	assert.Equal(t, book.OrderID(0), actual.ID, "identifier is assigned by the book, not at construction")
}

func TestNewOrder_EqualityIsByValue(t *testing.T) {
	// 5 and 5.00 are the same price.
	a, err := book.NewOrder("alice", common.Ask, "AAPL", decimal.RequireFromString("5"), 10)
	assert.NoError(t, err)
	b, err := book.NewOrder("alice", common.Ask, "AAPL", decimal.RequireFromString("5.00"), 10)
	assert.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestNewOrder_ZeroPrice(t *testing.T) {
	_, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.Zero, 1)
	assert.ErrorIs(t, err, book.ErrInvalidPrice)
}

func TestNewOrder_NegativePrice(t *testing.T) {
	_, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.RequireFromString("-1.00"), 1)
	assert.ErrorIs(t, err, book.ErrInvalidPrice)
}

func TestNewOrder_ZeroQuantity(t *testing.T) {
	_, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.RequireFromString("0.01"), 0)
	assert.ErrorIs(t, err, book.ErrInvalidQuantity)
}

func TestNewOrder_QuantityBeyondLedgerRange(t *testing.T) {
	// Quantities past the signed range would wrap the ledger's position
	// arithmetic; they are invalid on entry.
	_, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.RequireFromString("1.00"), uint64(1)<<63)
	assert.ErrorIs(t, err, book.ErrInvalidQuantity)

	_, err = book.NewOrder("alice", common.Ask, "AAPL", decimal.RequireFromString("1.00"), math.MaxUint64)
	assert.ErrorIs(t, err, book.ErrInvalidQuantity)
}

func TestOrder_Notional(t *testing.T) {
	order, err := book.NewOrder("alice", common.Bid, "AAPL", decimal.RequireFromString("5.00"), 10)
	assert.NoError(t, err)

	assert.True(t, order.Notional().Equal(decimal.RequireFromString("50.00")))
}
