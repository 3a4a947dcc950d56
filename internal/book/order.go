package book

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"skoll/internal/common"
)

// OrderID identifies a resting order within a book. Zero means the order has
// not rested (fresh submissions, and orders consumed entirely on admission).
type OrderID uint64

type Order struct {
	ID        OrderID         // Assigned by the book when the order rests
	Owner     string          // Who owns this order
	Side      common.Side     // Order direction
	Ticker    string          // Book the order belongs to
	Price     decimal.Decimal // Limit price, always positive
	Quantity  uint64          // Remaining quantity, decreases on partial fills
	Timestamp time.Time       // Time of arrival of order
}

// NewOrder validates and builds an order ready for admission. Price and
// quantity must both be positive for the order to exist at all, and the
// quantity must stay within the ledger's signed position range.
func NewOrder(owner string, side common.Side, ticker string, price decimal.Decimal, quantity uint64) (*Order, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if quantity == 0 || quantity > math.MaxInt64 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		Owner:     owner,
		Side:      side,
		Ticker:    ticker,
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.Now(),
	}, nil
}

// Notional is price times remaining quantity.
func (o *Order) Notional() decimal.Decimal {
	return o.Price.Mul(qtyDecimal(o.Quantity))
}

// Equal compares identity and economic fields; prices compare by value, not
// representation, and arrival timestamps are ignored.
func (o *Order) Equal(other *Order) bool {
	return o.ID == other.ID &&
		o.Owner == other.Owner &&
		o.Side == other.Side &&
		o.Ticker == other.Ticker &&
		o.Price.Equal(other.Price) &&
		o.Quantity == other.Quantity
}

func (o Order) String() string {
	return fmt.Sprintf(
		`ID:        %d
Owner:     %s
Side:      %v
Ticker:    %s
Price:     %s
Quantity:  %d
Timestamp: %v`,
		o.ID,
		o.Owner,
		o.Side,
		o.Ticker,
		o.Price.String(),
		o.Quantity,
		o.Timestamp.Format(time.RFC3339),
	)
}

// qtyDecimal converts exactly over the whole uint64 range; a narrowing cast
// would wrap negative at 2^63 and let an oversized notional slip the
// admission gate.
func qtyDecimal(qty uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(qty), 0)
}
