package book_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"skoll/internal/book"
)

func TestLedger_AddDuplicate(t *testing.T) {
	ledger := book.NewLedger()

	assert.NoError(t, ledger.Add(book.Participant{Name: "alice"}))
	assert.ErrorIs(t, ledger.Add(book.Participant{Name: "alice"}), book.ErrParticipantExists)
}

func TestLedger_AccountUnknown(t *testing.T) {
	ledger := book.NewLedger()

	_, ok := ledger.Account("nobody")
	assert.False(t, ok)
}

func TestLedger_AccountIsSnapshot(t *testing.T) {
	ledger := book.NewLedger(book.Participant{
		Name:     "alice",
		Balance:  decimal.RequireFromString("100.00"),
		Position: 5,
	})

	snapshot, ok := ledger.Account("alice")
	assert.True(t, ok)

	// Mutating the snapshot must not reach the ledger.
	snapshot.Balance = decimal.Zero
	snapshot.Position = 0

	fresh, ok := ledger.Account("alice")
	assert.True(t, ok)
	assert.True(t, fresh.Balance.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, int64(5), fresh.Position)
}
