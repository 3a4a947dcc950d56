package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade accounts for the two parties who matched. Each party settles at its
// own recorded limit price, so both prices are carried rather than a single
// negotiated trade price.
type Trade struct {
	ID         string          // Trade tracked uuid
	Ticker     string          // Book the trade happened on
	Taker      string          // Owner of the incoming order
	Maker      string          // Owner of the resting order
	TakerSide  Side            // Direction of the incoming order
	TakerPrice decimal.Decimal // Price the taker settled at
	MakerPrice decimal.Decimal // Price the maker settled at
	Quantity   uint64          // Matched quantity
	Timestamp  time.Time       // Time of the match
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`ID:         %s
Ticker:     %s
Taker:      %s (%v @ %s)
Maker:      %s (@ %s)
Quantity:   %d
Timestamp:  %v`,
		t.ID,
		t.Ticker,
		t.Taker,
		t.TakerSide,
		t.TakerPrice.String(),
		t.Maker,
		t.MakerPrice.String(),
		t.Quantity,
		t.Timestamp.Format(time.RFC3339),
	)
}
