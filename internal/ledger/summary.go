package ledger

import (
	"sort"
	"time"

	"github.com/karzdaar/ledger/internal/domain"
	"github.com/karzdaar/ledger/pkg/utils"
)

// GroupByCustomer partitions the snapshot into per-customer summaries.
// Placeholder entries never contribute to a group's entries or balance, but
// a customer that has nothing except a placeholder still gets a row so newly
// created customers surface in the listing; the placeholder's date stands in
// as the latest activity. Result is sorted by latest transaction, newest
// first.
func GroupByCustomer(entries []domain.DebtEntry) []domain.CustomerSummary {
	groups := make(map[string]*domain.CustomerSummary)
	var order []string

	for i := range entries {
		e := &entries[i]
		if IsPlaceholder(e) {
			continue
		}
		key := NormalizeName(e.CustomerName)
		g, ok := groups[key]
		if !ok {
			g = &domain.CustomerSummary{Name: e.CustomerName, LatestTransaction: e.TransactionDate}
			groups[key] = g
			order = append(order, key)
		}
		g.Entries = append(g.Entries, *e)
		if e.TransactionDate.After(g.LatestTransaction) {
			g.LatestTransaction = e.TransactionDate
		}
	}

	// Placeholder-only customers: visible, empty, balance zero.
	for i := range entries {
		e := &entries[i]
		if !IsPlaceholder(e) {
			continue
		}
		key := NormalizeName(e.CustomerName)
		if _, ok := groups[key]; !ok {
			groups[key] = &domain.CustomerSummary{Name: e.CustomerName, LatestTransaction: e.TransactionDate}
			order = append(order, key)
		}
	}

	summaries := make([]domain.CustomerSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Balance = ComputeCustomerBalance(entries, g.Name)
		summaries = append(summaries, *g)
	}
	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].LatestTransaction.After(summaries[b].LatestTransaction)
	})
	return summaries
}

// Summarize aggregates the whole book for the dashboard. Placeholders are
// excluded throughout.
func Summarize(entries []domain.DebtEntry, now time.Time) domain.LedgerSummary {
	var s domain.LedgerSummary
	for i := range entries {
		e := &entries[i]
		if IsPlaceholder(e) {
			continue
		}
		if e.IsGave() {
			s.TotalGave += e.OriginalAmount
			s.TotalPendingGave += RemainingAmount(e)
		} else {
			s.TotalGot += e.OriginalAmount
			if e.Status == domain.StatusPending {
				s.TotalPendingGot += e.CurrentAmount
			}
		}
		if e.DueDate != nil && utils.IsDateOverdue(*e.DueDate, now) && e.Status != domain.StatusPaid {
			s.OverdueCount++
		}
	}
	return s
}
