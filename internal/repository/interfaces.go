package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/karzdaar/ledger/internal/domain"
)

// DebtRepository defines the interface for debt entry persistence.
// Implementations load entries with their payment history attached so the
// ledger engine can operate on complete snapshots.
type DebtRepository interface {
	// Create persists a new debt entry
	Create(ctx context.Context, entry *domain.DebtEntry) error

	// GetByID retrieves one entry with its payments
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtEntry, error)

	// GetAll retrieves the full entry snapshot with payments
	GetAll(ctx context.Context) ([]domain.DebtEntry, error)

	// GetByCustomer retrieves all entries whose normalized name matches
	GetByCustomer(ctx context.Context, customerName string) ([]domain.DebtEntry, error)

	// Update rewrites the mutable fields of an entry
	Update(ctx context.Context, entry *domain.DebtEntry) error

	// UpdateStatus updates status and cached current amount after payment application
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, currentAmount int64, updatedAt time.Time) error

	// RenameCustomer rewrites the customer name on every matching entry
	RenameCustomer(ctx context.Context, oldName, newName string, now time.Time) (int64, error)

	// Delete removes one entry and its payments
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByCustomer removes every entry of a customer, payments included
	DeleteByCustomer(ctx context.Context, customerName string) (int64, error)

	// FlagOverdue flips pending entries with a past due date to overdue
	FlagOverdue(ctx context.Context, now time.Time) (int64, error)
}

// PaymentRepository defines the interface for payment records. Payments are
// append-only; there is no update or delete path.
type PaymentRepository interface {
	// Create persists a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByDebtID retrieves all payments for an entry, oldest first
	GetByDebtID(ctx context.Context, debtID uuid.UUID) ([]domain.Payment, error)

	// GetTotalPaid sums the payments recorded against an entry
	GetTotalPaid(ctx context.Context, debtID uuid.UUID) (int64, error)
}
