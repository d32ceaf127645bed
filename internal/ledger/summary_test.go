package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karzdaar/ledger/internal/domain"
)

func TestGroupByCustomer_SortedByLatestActivity(t *testing.T) {
	old := testNow.AddDate(0, -2, 0)
	recent := testNow.AddDate(0, 0, -1)

	entries := []domain.DebtEntry{
		gaveEntry("Alice", 500, old),
		gaveEntry("Bob", 300, recent),
		gaveEntry("alice", 200, testNow), // bumps Alice to the top
	}

	summaries := GroupByCustomer(entries)

	require.Len(t, summaries, 2)
	assert.Equal(t, "Alice", summaries[0].Name)
	assert.Equal(t, testNow, summaries[0].LatestTransaction)
	assert.Equal(t, int64(700), summaries[0].Balance)
	assert.Len(t, summaries[0].Entries, 2)
	assert.Equal(t, "Bob", summaries[1].Name)
}

func TestGroupByCustomer_PlaceholderOnlyCustomerSurfaces(t *testing.T) {
	placeholderDate := testNow.AddDate(0, 0, -1)
	placeholder := NewPlaceholderEntry("Newbie", placeholderDate)

	entries := []domain.DebtEntry{
		gaveEntry("Alice", 500, testNow.AddDate(0, -1, 0)),
		placeholder,
	}

	summaries := GroupByCustomer(entries)

	require.Len(t, summaries, 2)
	// The placeholder date stands in for latest activity, so the new
	// customer sorts above the stale one.
	assert.Equal(t, "Newbie", summaries[0].Name)
	assert.Empty(t, summaries[0].Entries)
	assert.Equal(t, int64(0), summaries[0].Balance)
	assert.Equal(t, placeholderDate, summaries[0].LatestTransaction)
}

func TestSummarize(t *testing.T) {
	past := testNow.AddDate(0, 0, -3)

	lent := gaveEntry("Alice", 10000, past)
	lent.DueDate = &past // overdue
	received := NewDebtEntry("Bob", domain.DirectionGot, 2000, "", past, nil, testNow)
	overpaid := NewOverpaymentEntry("Carol", 1500, "", testNow)
	placeholder := NewPlaceholderEntry("Newbie", testNow)

	entries := []domain.DebtEntry{lent, received, overpaid, placeholder}
	_, err := AddPartialPayment(entries, lent.ID, 4000, "", testNow)
	require.NoError(t, err)

	s := Summarize(entries, testNow)

	assert.Equal(t, int64(10000), s.TotalGave)
	assert.Equal(t, int64(6000), s.TotalPendingGave)
	assert.Equal(t, int64(3500), s.TotalGot)
	assert.Equal(t, int64(1500), s.TotalPendingGot, "only unresolved reverse debts are pending")
	assert.Equal(t, 1, s.OverdueCount)
}
