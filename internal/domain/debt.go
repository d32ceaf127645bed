package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction of a debt entry relative to the book owner.
const (
	DirectionGave = "gave" // money the owner lent out, counterparty owes the owner
	DirectionGot  = "got"  // money the owner received, owner owes the counterparty
)

// Entry status values. Status is derived from payment history for gave
// entries; got entries keep whatever status they were created with.
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// PlaceholderNote marks zero-amount entries that exist only to register a
// customer with no transactions yet. They are excluded from all balance math.
const PlaceholderNote = "Customer created - no transactions yet"

// DefaultNote is substituted when an entry is created without a description.
const DefaultNote = "No description"

// DebtEntry is the atomic unit of the ledger.
type DebtEntry struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	CustomerName    string     `json:"customer_name" db:"customer_name"`
	Direction       string     `json:"direction" db:"direction"`
	OriginalAmount  int64      `json:"original_amount" db:"original_amount"` // paise, immutable after creation
	CurrentAmount   int64      `json:"current_amount" db:"current_amount"`   // display cache; authoritative remainder is derived from payments
	Status          string     `json:"status" db:"status"`
	Note            string     `json:"note" db:"note"`
	TransactionDate time.Time  `json:"transaction_date" db:"transaction_date"`
	DueDate         *time.Time `json:"due_date,omitempty" db:"due_date"`
	Payments        []Payment  `json:"payments"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsGave reports whether the entry records money lent out by the owner.
func (e *DebtEntry) IsGave() bool {
	return e.Direction == DirectionGave
}

// CustomerSummary is one row of the grouped customer listing.
type CustomerSummary struct {
	Name              string      `json:"name"`
	Entries           []DebtEntry `json:"entries"`
	Balance           int64       `json:"balance"` // positive: customer owes owner
	LatestTransaction time.Time   `json:"latest_transaction"`
}

// LedgerSummary aggregates the whole book for the dashboard.
type LedgerSummary struct {
	TotalGave        int64 `json:"total_gave"`         // total ever lent
	TotalGot         int64 `json:"total_got"`          // total ever received
	TotalPendingGave int64 `json:"total_pending_gave"` // still owed to the owner
	TotalPendingGot  int64 `json:"total_pending_got"`  // owed back by the owner
	OverdueCount     int   `json:"overdue_count"`
}

// DTOs for requests and responses

type CreateDebtRequest struct {
	CustomerName    string     `json:"customer_name" validate:"required"`
	Direction       string     `json:"direction" validate:"required,oneof=gave got"`
	Amount          int64      `json:"amount" validate:"required,gt=0"` // paise
	Note            string     `json:"note"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

type UpdateDebtRequest struct {
	Note            *string    `json:"note,omitempty"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

type CreateCustomerRequest struct {
	Name string `json:"name" validate:"required"`
}

type RenameCustomerRequest struct {
	NewName string `json:"new_name" validate:"required"`
}

type RecordPaymentRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"` // paise
	Note   string `json:"note"`
}

type RecordPaymentResponse struct {
	Allocated        int64      `json:"allocated"`
	Unallocated      int64      `json:"unallocated"`
	OverpaymentEntry *DebtEntry `json:"overpayment_entry,omitempty"`
	Balance          int64      `json:"balance"`
}

type BalanceResponse struct {
	CustomerName string `json:"customer_name"`
	Balance      int64  `json:"balance"`
	Formatted    string `json:"formatted"`
}

type CustomerListItem struct {
	Name         string `json:"name"`
	Balance      int64  `json:"balance"`
	Formatted    string `json:"formatted"`
	EntryCount   int    `json:"entry_count"`
	LastActivity string `json:"last_activity"`
}
