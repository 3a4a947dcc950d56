package common

// Side tags the direction of an order or a book side.
type Side int

const (
	Bid Side = iota
	Ask
)

var sideName = map[Side]string{
	Bid: "BID",
	Ask: "ASK",
}

func (s Side) String() string {
	return sideName[s]
}

// Opposite returns the side an order of this direction matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}
