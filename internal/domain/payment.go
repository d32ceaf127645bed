package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment kinds. A payment is full when it, together with prior payments,
// exhausts the entry's original amount.
const (
	PaymentKindFull    = "full"
	PaymentKindPartial = "partial"
)

// Payment is a settlement action recorded against one debt entry. Payments
// are append-only; DebtID is a foreign key back to the entry.
type Payment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	DebtID      uuid.UUID `json:"debt_id" db:"debt_id"`
	Amount      int64     `json:"amount" db:"amount"` // paise, always > 0
	PaymentDate time.Time `json:"payment_date" db:"payment_date"`
	Description string    `json:"description,omitempty" db:"description"`
	Kind        string    `json:"kind" db:"kind"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}

type AddPartialPaymentRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"` // paise
	Note   string `json:"note"`
}
