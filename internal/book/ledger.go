package book

import (
	"github.com/shopspring/decimal"

	"skoll/internal/common"
)

// Participant is one account on the ledger: a currency balance and an
// inventory position. Admission gates keep both non-negative on entry, but
// settlement itself places no floor on either.
type Participant struct {
	Name     string
	Balance  decimal.Decimal
	Position int64
}

// Ledger holds the participant accounts a book settles against. The owning
// book has the only mutation handle; everything else sees value copies.
type Ledger struct {
	accounts map[string]*Participant
}

func NewLedger(participants ...Participant) *Ledger {
	ledger := &Ledger{
		accounts: make(map[string]*Participant),
	}
	for _, p := range participants {
		ledger.accounts[p.Name] = &p
	}
	return ledger
}

// Add registers a new participant. Fails with ErrParticipantExists if the
// identity is already registered.
func (l *Ledger) Add(p Participant) error {
	if _, ok := l.accounts[p.Name]; ok {
		return ErrParticipantExists
	}
	l.accounts[p.Name] = &p
	return nil
}

// Account returns a snapshot copy of the named account. Mutations only ever
// happen through settlement.
func (l *Ledger) Account(name string) (Participant, bool) {
	acct, ok := l.accounts[name]
	if !ok {
		return Participant{}, false
	}
	return *acct, true
}

// settle applies one fill to the owner's account: a bid pays price*qty and
// takes delivery, an ask receives price*qty and gives it up.
func (l *Ledger) settle(owner string, side common.Side, price decimal.Decimal, qty uint64) {
	acct, ok := l.accounts[owner]
	if !ok {
		// Admission rejects unregistered owners before anything settles.
		return
	}

	notional := price.Mul(qtyDecimal(qty))
	switch side {
	case common.Bid:
		acct.Balance = acct.Balance.Sub(notional)
		acct.Position += int64(qty)
	case common.Ask:
		acct.Balance = acct.Balance.Add(notional)
		acct.Position -= int64(qty)
	}
}
