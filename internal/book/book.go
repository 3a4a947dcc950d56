package book

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"skoll/internal/common"
)

// currencyScale is the ledger's minimum currency increment, in decimal
// places. Spread is reported rounded to it.
const currencyScale = 2

// Outcome tags what admission did with an order once the funds gate passed.
type Outcome int

const (
	// Filled: the order was entirely consumed by matching and never rested.
	Filled Outcome = iota
	// RestedVolume: the opposite side lacked the resting volume to cover the
	// order's full quantity, so it rested on its own side.
	RestedVolume
	// RestedPrice: the order's limit price was not compatible with the
	// opposite side's best, so it rested on its own side.
	RestedPrice
)

var outcomeName = map[Outcome]string{
	Filled:       "FILLED",
	RestedVolume: "RESTED_VOLUME",
	RestedPrice:  "RESTED_PRICE",
}

func (o Outcome) String() string {
	return outcomeName[o]
}

// Placement is the admission result. OrderID is nonzero only when the order
// rested: identifiers exist to find resting orders, so a fully matched order
// never gets one.
type Placement struct {
	Outcome Outcome
	OrderID OrderID
}

// Reporter receives one trade per matched pair of orders.
type Reporter interface {
	ReportTrade(trade common.Trade) error
}

// Book is the matching engine for one symbol: both priced sides, the
// participant ledger it settles against, a fixed-key parameter map, and the
// last traded price.
//
// Every method runs to completion before another may begin; the book holds
// no locks. A host exposing it to concurrent callers must serialize all
// calls per book, since matching is a multi-step read-check-then-mutate
// sequence over the sides and the ledger.
type Book struct {
	name   string
	ledger *Ledger
	bids   *Side
	asks   *Side
	params map[string]string

	ltp      decimal.Decimal
	nextID   OrderID
	reporter Reporter
}

// New builds a book over the given ledger. The params map seeds the fixed
// set of recognized parameter names; keys are never created after this.
func New(name string, ledger *Ledger, params map[string]string) *Book {
	book := &Book{
		name:   name,
		ledger: ledger,
		bids:   NewSide(common.Bid),
		asks:   NewSide(common.Ask),
		params: make(map[string]string, len(params)),
	}
	for name, value := range params {
		book.params[name] = value
	}
	return book
}

// SetReporter wires trade reporting. A nil reporter drops trades.
func (b *Book) SetReporter(reporter Reporter) {
	b.reporter = reporter
}

func (b *Book) Name() string {
	return b.name
}

func (b *Book) Bids() *Side {
	return b.bids
}

func (b *Book) Asks() *Side {
	return b.asks
}

// Top returns (best bid, best ask); an empty side reports zero.
func (b *Book) Top() (bid, ask decimal.Decimal) {
	if price, err := b.bids.Best(); err == nil {
		bid = price
	}
	if price, err := b.asks.Best(); err == nil {
		ask = price
	}
	return bid, ask
}

// Spread is the absolute difference of top, rounded to the minimum currency
// increment. Zero while either side is empty.
func (b *Book) Spread() decimal.Decimal {
	if b.bids.Depth() == 0 || b.asks.Depth() == 0 {
		return decimal.Zero
	}
	bid, ask := b.Top()
	return bid.Sub(ask).Abs().Round(currencyScale)
}

// Depth returns (bid levels, ask levels).
func (b *Book) Depth() (int, int) {
	return b.bids.Depth(), b.asks.Depth()
}

// Volume returns (bid resting quantity, ask resting quantity).
func (b *Book) Volume() (uint64, uint64) {
	return b.bids.Volume(), b.asks.Volume()
}

// LTP is the price recorded on the most recently executed order, zero before
// any trade.
func (b *Book) LTP() decimal.Decimal {
	return b.ltp
}

// Crossed reports best bid >= best ask. Matching on admission resolves a
// cross immediately, so observing one is a diagnostic, not a steady state.
func (b *Book) Crossed() bool {
	bid, err := b.bids.Best()
	if err != nil {
		return false
	}
	ask, err := b.asks.Best()
	if err != nil {
		return false
	}
	return bid.GreaterThanOrEqual(ask)
}

// GetParam reads a named parameter. The recognized set is fixed at
// construction.
func (b *Book) GetParam(name string) (string, error) {
	value, ok := b.params[name]
	if !ok {
		return "", ErrNoSuchParameter
	}
	return value, nil
}

// SetParam updates a named parameter; unknown names fail, never create.
func (b *Book) SetParam(name, value string) error {
	if _, ok := b.params[name]; !ok {
		return ErrNoSuchParameter
	}
	b.params[name] = value
	return nil
}

// AddParticipant registers a new account on the ledger.
func (b *Book) AddParticipant(p Participant) error {
	return b.ledger.Add(p)
}

// Participant returns a snapshot copy of the named account.
func (b *Book) Participant(name string) (Participant, bool) {
	return b.ledger.Account(name)
}

// Add admits an order. A bid must be coverable by the submitter's balance
// (price x quantity) and an ask by their position; failing that the order is
// rejected outright with ErrInsufficientFunds and never touches the book.
//
// Past the gate the order matches against the opposite side. If it is
// entirely consumed the placement comes back Filled with no identifier.
// Otherwise - not enough resting volume, or an incompatible price - the book
// assigns a fresh identifier and rests the order on its own side.
func (b *Book) Add(order *Order) (Placement, error) {
	acct, ok := b.ledger.Account(order.Owner)
	if !ok {
		return Placement{}, ErrUnknownParticipant
	}

	var own, counter *Side
	switch order.Side {
	case common.Bid:
		if order.Notional().GreaterThan(acct.Balance) {
			return Placement{}, ErrInsufficientFunds
		}
		own, counter = b.bids, b.asks
	case common.Ask:
		if acct.Position < 0 || order.Quantity > uint64(acct.Position) {
			return Placement{}, ErrInsufficientFunds
		}
		own, counter = b.asks, b.bids
	default:
		return Placement{}, fmt.Errorf("unknown side %d", order.Side)
	}

	outcome := b.match(counter, order)
	if outcome == Filled {
		return Placement{Outcome: Filled}, nil
	}

	b.nextID++
	order.ID = b.nextID
	own.Put(order)

	return Placement{Outcome: outcome, OrderID: order.ID}, nil
}

// match attempts to consume the incoming order against the counter side and
// reports why it could not. The two resting outcomes are control decisions,
// not failures: admission turns either into a resting order.
func (b *Book) match(counter *Side, order *Order) Outcome {
	best, err := counter.Best()
	if err != nil {
		// Empty side: no resting volume at all.
		return RestedVolume
	}
	if !compatible(order, best) {
		return RestedPrice
	}
	if order.Quantity > counter.Volume() {
		return RestedVolume
	}

	// Sweep the counter side's levels best-first, oldest order first. The
	// sufficiency check above guarantees the side outlasts the order.
	for order.Quantity > 0 {
		resting, ok := counter.peek()
		if !ok {
			break
		}

		switch {
		case order.Quantity < resting.Quantity:
			amount := order.Quantity
			b.executeFull(order)
			b.executePartial(resting, amount)
			b.reportTrade(order, resting, amount)
			return Filled
		case order.Quantity == resting.Quantity:
			amount := order.Quantity
			b.executeFull(order)
			b.executeFull(resting)
			b.reportTrade(order, resting, amount)
			return Filled
		default:
			amount := resting.Quantity
			b.executePartial(order, amount)
			b.executeFull(resting)
			b.reportTrade(order, resting, amount)
		}
	}
	return Filled
}

// compatible reports whether the order's limit price is at-or-better than
// the counter side's best: a bid lifts asks at or below its price, an ask
// hits bids at or above it.
func compatible(order *Order, best decimal.Decimal) bool {
	if order.Side == common.Bid {
		return order.Price.GreaterThanOrEqual(best)
	}
	return order.Price.LessThanOrEqual(best)
}

// executeFull settles the order's entire remaining quantity at its own
// recorded price and removes it from its side (a no-op for orders that never
// rested).
func (b *Book) executeFull(order *Order) {
	b.ledger.settle(order.Owner, order.Side, order.Price, order.Quantity)
	b.sideFor(order.Side).Remove(order.ID)
	order.Quantity = 0
	b.ltp = order.Price
}

// executePartial settles only amount of the order's quantity, again at the
// order's own recorded price, and leaves it resting with the remainder.
func (b *Book) executePartial(order *Order, amount uint64) {
	b.ledger.settle(order.Owner, order.Side, order.Price, amount)
	order.Quantity -= amount
	b.sideFor(order.Side).reduced(order.ID, amount)
	b.ltp = order.Price
}

// Cancel removes the identifier from both sides unconditionally. Absence on
// either or both sides is not an error, and cancellation never settles.
func (b *Book) Cancel(id OrderID) {
	b.bids.Remove(id)
	b.asks.Remove(id)
}

func (b *Book) sideFor(direction common.Side) *Side {
	if direction == common.Bid {
		return b.bids
	}
	return b.asks
}

func (b *Book) reportTrade(taker, maker *Order, quantity uint64) {
	if b.reporter == nil {
		return
	}
	// Reporting failures are the reporter's problem; the match already
	// settled.
	_ = b.reporter.ReportTrade(common.Trade{
		ID:         uuid.New().String(),
		Ticker:     b.name,
		Taker:      taker.Owner,
		Maker:      maker.Owner,
		TakerSide:  taker.Side,
		TakerPrice: taker.Price,
		MakerPrice: maker.Price,
		Quantity:   quantity,
		Timestamp:  time.Now(),
	})
}

func (b *Book) String() string {
	bids, asks := b.Depth()
	return fmt.Sprintf("%s with depth (%d, %d)", b.name, bids, asks)
}
