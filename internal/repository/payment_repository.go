package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/karzdaar/ledger/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, debt_id, amount, payment_date, description, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.DebtID,
		payment.Amount,
		payment.PaymentDate,
		payment.Description,
		payment.Kind,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) GetByDebtID(ctx context.Context, debtID uuid.UUID) ([]domain.Payment, error) {
	query := `
		SELECT id, debt_id, amount, payment_date, description, kind, created_at
		FROM payments
		WHERE debt_id = $1
		ORDER BY created_at
	`

	var payments []domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, debtID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, debtID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE debt_id = $1
	`

	var total int64
	if err := r.db.GetContext(ctx, &total, query, debtID); err != nil {
		return 0, err
	}

	return total, nil
}
