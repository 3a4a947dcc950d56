package book

import (
	"iter"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"skoll/internal/common"
)

type priceLevel struct {
	price  decimal.Decimal
	orders []*Order
}

type priceLevels = btree.BTreeG[*priceLevel]

// Side is one direction of a book: price levels sorted best-first, each
// holding a FIFO queue of resting orders at that exact price as they will be
// push-back'd.
type Side struct {
	direction common.Side
	levels    *priceLevels

	// Some book keeping
	index  map[OrderID]decimal.Decimal // order id -> level price, for cancels
	volume uint64                      // resting quantity across all levels
}

func NewSide(direction common.Side) *Side {
	// Bids sorted greatest first, asks sorted least first, so the minimum of
	// either tree is that side's best price.
	less := func(a, b *priceLevel) bool {
		return a.price.LessThan(b.price)
	}
	if direction == common.Bid {
		less = func(a, b *priceLevel) bool {
			return a.price.GreaterThan(b.price)
		}
	}
	return &Side{
		direction: direction,
		levels:    btree.NewBTreeG(less),
		index:     make(map[OrderID]decimal.Decimal),
	}
}

func (s *Side) Direction() common.Side {
	return s.direction
}

// Best returns the best resting price: highest for a bid side, lowest for an
// ask side. Fails with ErrNoPrice when the side is empty.
func (s *Side) Best() (decimal.Decimal, error) {
	level, ok := s.levels.Min()
	if !ok {
		return decimal.Decimal{}, ErrNoPrice
	}
	return level.price, nil
}

// Prices yields the distinct resting prices best-first.
func (s *Side) Prices() iter.Seq[decimal.Decimal] {
	return func(yield func(decimal.Decimal) bool) {
		s.levels.Scan(func(level *priceLevel) bool {
			return yield(level.price)
		})
	}
}

// OrdersAt returns a snapshot of the FIFO queue resting at that exact price,
// oldest first. Fails with ErrNoPrice if no level exists there.
func (s *Side) OrdersAt(price decimal.Decimal) ([]*Order, error) {
	level, ok := s.levels.Get(&priceLevel{price: price})
	if !ok {
		return nil, ErrNoPrice
	}
	orders := make([]*Order, len(level.orders))
	copy(orders, level.orders)
	return orders, nil
}

// Put rests the order at the level for its price, creating the level if
// absent. Appending to the level's queue preserves time priority.
func (s *Side) Put(order *Order) {
	level, ok := s.levels.GetMut(&priceLevel{price: order.Price})
	if ok {
		level.orders = append(level.orders, order)
	} else {
		s.levels.Set(&priceLevel{
			price:  order.Price,
			orders: []*Order{order},
		})
	}

	s.volume += order.Quantity
	if order.ID != 0 {
		s.index[order.ID] = order.Price
	}
}

// Remove takes the order with that identifier off the side wherever it
// rests. Absent identifiers are a no-op, not an error: cancellation is
// applied to both sides unconditionally.
func (s *Side) Remove(id OrderID) {
	price, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)

	level, ok := s.levels.GetMut(&priceLevel{price: price})
	if !ok {
		return
	}
	for i, order := range level.orders {
		if order.ID == id {
			s.volume -= order.Quantity
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			break
		}
	}
	if len(level.orders) == 0 {
		s.levels.Delete(level)
	}
}

// Volume is the sum of remaining quantity across all resting orders.
func (s *Side) Volume() uint64 {
	return s.volume
}

// Depth is the number of distinct price levels with at least one resting
// order.
func (s *Side) Depth() int {
	return s.levels.Len()
}

// peek returns the oldest order at the best price, if any.
func (s *Side) peek() (*Order, bool) {
	level, ok := s.levels.Min()
	if !ok || len(level.orders) == 0 {
		return nil, false
	}
	return level.orders[0], true
}

// reduced records a partial fill of a resting order so the running volume
// stays in step with the order's mutated quantity. A no-op for orders that
// are not resting here.
func (s *Side) reduced(id OrderID, amount uint64) {
	if _, ok := s.index[id]; ok {
		s.volume -= amount
	}
}
