package book

import "errors"

var (
	ErrInvalidPrice       = errors.New("order price must be positive")
	ErrInvalidQuantity    = errors.New("order quantity must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoPrice            = errors.New("no such price level")
	ErrParticipantExists  = errors.New("participant already exists")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrNoSuchParameter    = errors.New("no such parameter")
)
