package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/karzdaar/ledger/internal/domain"
)

type debtRepository struct {
	db *sqlx.DB
}

func NewDebtRepository(db *sqlx.DB) DebtRepository {
	return &debtRepository{db: db}
}

const debtColumns = `id, customer_name, direction, original_amount, current_amount, status, note, transaction_date, due_date, created_at, updated_at`

func (r *debtRepository) Create(ctx context.Context, entry *domain.DebtEntry) error {
	query := `
		INSERT INTO debt_entries (id, customer_name, direction, original_amount, current_amount, status, note, transaction_date, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.CustomerName,
		entry.Direction,
		entry.OriginalAmount,
		entry.CurrentAmount,
		entry.Status,
		entry.Note,
		entry.TransactionDate,
		entry.DueDate,
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	return err
}

func (r *debtRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtEntry, error) {
	query := `
		SELECT ` + debtColumns + `
		FROM debt_entries
		WHERE id = $1
	`

	var entry domain.DebtEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}

	if err := r.attachPayments(ctx, []*domain.DebtEntry{&entry}); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *debtRepository) GetAll(ctx context.Context) ([]domain.DebtEntry, error) {
	query := `
		SELECT ` + debtColumns + `
		FROM debt_entries
		ORDER BY created_at
	`

	var entries []domain.DebtEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, err
	}

	if err := r.attachPaymentsToSlice(ctx, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *debtRepository) GetByCustomer(ctx context.Context, customerName string) ([]domain.DebtEntry, error) {
	query := `
		SELECT ` + debtColumns + `
		FROM debt_entries
		WHERE LOWER(TRIM(customer_name)) = LOWER(TRIM($1))
		ORDER BY created_at
	`

	var entries []domain.DebtEntry
	if err := r.db.SelectContext(ctx, &entries, query, customerName); err != nil {
		return nil, err
	}

	if err := r.attachPaymentsToSlice(ctx, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *debtRepository) Update(ctx context.Context, entry *domain.DebtEntry) error {
	query := `
		UPDATE debt_entries
		SET customer_name = $2, current_amount = $3, status = $4, note = $5, transaction_date = $6, due_date = $7, updated_at = $8
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.CustomerName,
		entry.CurrentAmount,
		entry.Status,
		entry.Note,
		entry.TransactionDate,
		entry.DueDate,
		entry.UpdatedAt,
	)

	return err
}

func (r *debtRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, currentAmount int64, updatedAt time.Time) error {
	query := `
		UPDATE debt_entries
		SET status = $2, current_amount = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, currentAmount, updatedAt)
	return err
}

func (r *debtRepository) RenameCustomer(ctx context.Context, oldName, newName string, now time.Time) (int64, error) {
	query := `
		UPDATE debt_entries
		SET customer_name = $2, updated_at = $3
		WHERE LOWER(TRIM(customer_name)) = LOWER(TRIM($1))
	`

	res, err := r.db.ExecContext(ctx, query, oldName, newName, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *debtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments WHERE debt_id = $1`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM debt_entries WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *debtRepository) DeleteByCustomer(ctx context.Context, customerName string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	deletePayments := `
		DELETE FROM payments
		WHERE debt_id IN (
			SELECT id FROM debt_entries
			WHERE LOWER(TRIM(customer_name)) = LOWER(TRIM($1))
		)
	`
	if _, err = tx.ExecContext(ctx, deletePayments, customerName); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM debt_entries
		WHERE LOWER(TRIM(customer_name)) = LOWER(TRIM($1))
	`, customerName)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return count, tx.Commit()
}

func (r *debtRepository) FlagOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE debt_entries
		SET status = $1, updated_at = $2
		WHERE status = $3 AND due_date IS NOT NULL AND due_date < $2
	`

	res, err := r.db.ExecContext(ctx, query, domain.StatusOverdue, now, domain.StatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *debtRepository) attachPaymentsToSlice(ctx context.Context, entries []domain.DebtEntry) error {
	ptrs := make([]*domain.DebtEntry, len(entries))
	for i := range entries {
		ptrs[i] = &entries[i]
	}
	return r.attachPayments(ctx, ptrs)
}

func (r *debtRepository) attachPayments(ctx context.Context, entries []*domain.DebtEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(entries))
	byID := make(map[uuid.UUID]*domain.DebtEntry, len(entries))
	for _, e := range entries {
		e.Payments = []domain.Payment{}
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}

	query := `
		SELECT id, debt_id, amount, payment_date, description, kind, created_at
		FROM payments
		WHERE debt_id = ANY($1)
		ORDER BY created_at
	`

	var payments []domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, pq.Array(ids)); err != nil {
		return err
	}

	for _, p := range payments {
		if e, ok := byID[p.DebtID]; ok {
			e.Payments = append(e.Payments, p)
		}
	}
	return nil
}
