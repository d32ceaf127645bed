// Package ledger implements the balance and payment-allocation rules of the
// debt book. Every function here is a synchronous computation over an
// in-memory snapshot of entries; callers own persistence and must not
// interleave two mutating calls on the same snapshot.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karzdaar/ledger/internal/domain"
	apperrors "github.com/karzdaar/ledger/pkg/errors"
	"github.com/karzdaar/ledger/pkg/utils"
)

// NormalizeName maps a customer name to its canonical grouping key.
// Two names that normalize equally refer to the same customer.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameCustomer reports whether two names refer to the same customer.
func SameCustomer(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// IsPlaceholder reports whether an entry exists only to register a customer
// with no transactions. Placeholders are excluded from every aggregate.
func IsPlaceholder(e *domain.DebtEntry) bool {
	return e.OriginalAmount == 0 && e.Status == domain.StatusPaid && e.Note == domain.PlaceholderNote
}

// TotalPaid sums the payments recorded against an entry.
func TotalPaid(e *domain.DebtEntry) int64 {
	var total int64
	for _, p := range e.Payments {
		total += p.Amount
	}
	return total
}

// RemainingAmount returns the authoritative outstanding amount of an entry.
// For gave entries it is always derived from the original amount and payment
// history, never read from the cached current amount. Got entries are not
// paid down individually; an unresolved one is outstanding in full.
func RemainingAmount(e *domain.DebtEntry) int64 {
	if !e.IsGave() {
		if e.Status == domain.StatusPaid {
			return 0
		}
		return e.CurrentAmount
	}
	remaining := e.OriginalAmount - TotalPaid(e)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NewDebtEntry builds an entry with the creation defaults: gave entries start
// pending, got entries start paid (the money was received in full).
func NewDebtEntry(customerName, direction string, amount int64, note string, txDate time.Time, dueDate *time.Time, now time.Time) domain.DebtEntry {
	if strings.TrimSpace(note) == "" {
		note = domain.DefaultNote
	}
	status := domain.StatusPending
	if direction == domain.DirectionGot {
		status = domain.StatusPaid
	}
	if txDate.IsZero() {
		txDate = now
	}
	return domain.DebtEntry{
		ID:              uuid.New(),
		CustomerName:    strings.TrimSpace(customerName),
		Direction:       direction,
		OriginalAmount:  amount,
		CurrentAmount:   amount,
		Status:          status,
		Note:            note,
		TransactionDate: txDate,
		DueDate:         dueDate,
		Payments:        []domain.Payment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewPlaceholderEntry registers a customer that has no transactions yet.
func NewPlaceholderEntry(customerName string, now time.Time) domain.DebtEntry {
	return domain.DebtEntry{
		ID:              uuid.New(),
		CustomerName:    strings.TrimSpace(customerName),
		Direction:       domain.DirectionGot,
		OriginalAmount:  0,
		CurrentAmount:   0,
		Status:          domain.StatusPaid,
		Note:            domain.PlaceholderNote,
		TransactionDate: now,
		Payments:        []domain.Payment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewOverpaymentEntry records the unallocated remainder of a received payment
// as a reverse debt the owner owes back. It starts pending and is cleared
// only through the net-overpayment accounting in ComputeCustomerBalance.
func NewOverpaymentEntry(customerName string, amount int64, note string, now time.Time) domain.DebtEntry {
	if strings.TrimSpace(note) == "" {
		note = "Overpayment - You owe them"
	}
	e := NewDebtEntry(customerName, domain.DirectionGot, amount, note, now, nil, now)
	e.Status = domain.StatusPending
	return e
}

// ComputeCustomerBalance derives the customer's running balance from the
// snapshot. Positive means the customer owes the owner, negative means the
// owner owes the customer.
//
// Got entries that merely mirror payments already applied against gave
// entries must not be double counted: only the portion of received money
// exceeding what was applied to open entries is a true reverse debt.
func ComputeCustomerBalance(entries []domain.DebtEntry, customerName string) int64 {
	var owedToOwner int64
	var paidDownViaGave int64
	var totalGotEntries int64

	for i := range entries {
		e := &entries[i]
		if !SameCustomer(e.CustomerName, customerName) || IsPlaceholder(e) {
			continue
		}
		if e.IsGave() {
			owedToOwner += RemainingAmount(e)
			paidDownViaGave += TotalPaid(e)
		} else {
			totalGotEntries += e.CurrentAmount
		}
	}

	overpayment := totalGotEntries - paidDownViaGave
	if overpayment < 0 {
		overpayment = 0
	}
	return owedToOwner - overpayment
}

// Allocation records one payment produced by ApplyPaymentAgainstOpenEntries
// together with the status the target entry transitioned to.
type Allocation struct {
	EntryID   uuid.UUID
	Payment   domain.Payment
	NewStatus string
}

// ApplyPaymentAgainstOpenEntries applies a received amount against the
// customer's open gave entries, oldest transaction date first, and returns
// the unallocated remainder plus the allocations made. The snapshot is
// updated in place. Creating a reverse-debt entry for the remainder is the
// caller's decision, not this function's.
//
// A non-positive amount is a no-op and comes back unallocated; callers are
// expected to validate before invoking.
func ApplyPaymentAgainstOpenEntries(entries []domain.DebtEntry, customerName string, amount int64, now time.Time) (int64, []Allocation) {
	if amount <= 0 {
		return amount, nil
	}

	open := make([]int, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if SameCustomer(e.CustomerName, customerName) && e.IsGave() && RemainingAmount(e) > 0 {
			open = append(open, i)
		}
	}
	// Stable keeps creation order as the tie-break for equal dates.
	sort.SliceStable(open, func(a, b int) bool {
		return entries[open[a]].TransactionDate.Before(entries[open[b]].TransactionDate)
	})

	remainder := amount
	var allocations []Allocation
	for _, idx := range open {
		if remainder <= 0 {
			break
		}
		e := &entries[idx]
		alreadyPaid := TotalPaid(e)
		remainingOnEntry := e.OriginalAmount - alreadyPaid
		if remainingOnEntry <= 0 {
			continue // stale data, tolerate
		}

		portion := remainder
		if remainingOnEntry < portion {
			portion = remainingOnEntry
		}
		kind := domain.PaymentKindPartial
		if portion >= remainingOnEntry {
			kind = domain.PaymentKindFull
		}
		payment := domain.Payment{
			ID:          uuid.New(),
			DebtID:      e.ID,
			Amount:      portion,
			PaymentDate: now,
			Description: "Payment received",
			Kind:        kind,
			CreatedAt:   now,
		}

		e.Payments = append(e.Payments, payment)
		if alreadyPaid+portion >= e.OriginalAmount {
			e.Status = domain.StatusPaid
		} else {
			e.Status = domain.StatusPartial
		}
		e.CurrentAmount = e.OriginalAmount - alreadyPaid - portion
		e.UpdatedAt = now
		remainder -= portion

		allocations = append(allocations, Allocation{EntryID: e.ID, Payment: payment, NewStatus: e.Status})
	}

	return remainder, allocations
}

// MarkFullyPaid settles whatever remains on a gave entry with one synthetic
// full payment. Idempotent: an already settled entry is left untouched and
// no zero-amount payment is recorded.
func MarkFullyPaid(entries []domain.DebtEntry, entryID uuid.UUID, now time.Time) (*domain.Payment, error) {
	e, ok := entryByID(entries, entryID)
	if !ok {
		return nil, apperrors.WrapEntryNotFound(entryID.String())
	}
	if !e.IsGave() {
		return nil, apperrors.WrapEntryNotPayable(entryID.String())
	}
	remaining := RemainingAmount(e)
	if remaining == 0 {
		return nil, nil
	}

	payment := domain.Payment{
		ID:          uuid.New(),
		DebtID:      e.ID,
		Amount:      remaining,
		PaymentDate: now,
		Description: "Marked as fully paid",
		Kind:        domain.PaymentKindFull,
		CreatedAt:   now,
	}
	e.Payments = append(e.Payments, payment)
	e.Status = domain.StatusPaid
	e.CurrentAmount = 0
	e.UpdatedAt = now
	return &payment, nil
}

// AddPartialPayment records a payment against one gave entry. Callers must
// validate amount > 0 and amount <= remaining; the engine still clamps the
// portion so no sequence of calls can drive the remainder negative.
func AddPartialPayment(entries []domain.DebtEntry, entryID uuid.UUID, amount int64, note string, now time.Time) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, apperrors.WrapInvalidPaymentAmount(amount)
	}
	e, ok := entryByID(entries, entryID)
	if !ok {
		return nil, apperrors.WrapEntryNotFound(entryID.String())
	}
	if !e.IsGave() {
		return nil, apperrors.WrapEntryNotPayable(entryID.String())
	}
	remaining := RemainingAmount(e)
	if remaining == 0 {
		return nil, apperrors.WrapPaymentExceedsBalance(amount, 0)
	}

	portion := amount
	if remaining < portion {
		portion = remaining
	}
	kind := domain.PaymentKindPartial
	if portion >= remaining {
		kind = domain.PaymentKindFull
	}
	if strings.TrimSpace(note) == "" {
		note = "Partial payment"
	}
	payment := domain.Payment{
		ID:          uuid.New(),
		DebtID:      e.ID,
		Amount:      portion,
		PaymentDate: now,
		Description: note,
		Kind:        kind,
		CreatedAt:   now,
	}
	e.Payments = append(e.Payments, payment)
	if kind == domain.PaymentKindFull {
		e.Status = domain.StatusPaid
	} else {
		e.Status = domain.StatusPartial
	}
	e.CurrentAmount = remaining - portion
	e.UpdatedAt = now
	return &payment, nil
}

// RenameCustomer rewrites the customer name on every matching entry and
// returns how many were touched. Uniqueness of the new name is the caller's
// contract; the engine has no customer entity to check against.
func RenameCustomer(entries []domain.DebtEntry, oldName, newName string, now time.Time) int {
	newName = strings.TrimSpace(newName)
	count := 0
	for i := range entries {
		if SameCustomer(entries[i].CustomerName, oldName) {
			entries[i].CustomerName = newName
			entries[i].UpdatedAt = now
			count++
		}
	}
	return count
}

// DeleteCustomer removes every entry of the customer, placeholders included,
// and returns the remaining snapshot.
func DeleteCustomer(entries []domain.DebtEntry, customerName string) []domain.DebtEntry {
	kept := entries[:0:0]
	for _, e := range entries {
		if !SameCustomer(e.CustomerName, customerName) {
			kept = append(kept, e)
		}
	}
	return kept
}

// EntryByID finds an entry by id, returning a copy.
func EntryByID(entries []domain.DebtEntry, id uuid.UUID) (domain.DebtEntry, bool) {
	if e, ok := entryByID(entries, id); ok {
		return *e, true
	}
	return domain.DebtEntry{}, false
}

func entryByID(entries []domain.DebtEntry, id uuid.UUID) (*domain.DebtEntry, bool) {
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], true
		}
	}
	return nil, false
}

// PendingEntries returns entries still awaiting their first payment.
func PendingEntries(entries []domain.DebtEntry) []domain.DebtEntry {
	var out []domain.DebtEntry
	for _, e := range entries {
		if e.Status == domain.StatusPending {
			out = append(out, e)
		}
	}
	return out
}

// OverdueEntries returns unpaid entries whose due date has passed.
func OverdueEntries(entries []domain.DebtEntry, now time.Time) []domain.DebtEntry {
	var out []domain.DebtEntry
	for _, e := range entries {
		if e.DueDate != nil && utils.IsDateOverdue(*e.DueDate, now) && e.Status != domain.StatusPaid {
			out = append(out, e)
		}
	}
	return out
}
