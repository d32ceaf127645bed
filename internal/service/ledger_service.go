package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/karzdaar/ledger/internal/config"
	"github.com/karzdaar/ledger/internal/domain"
	"github.com/karzdaar/ledger/internal/ledger"
	"github.com/karzdaar/ledger/internal/repository"
	"github.com/karzdaar/ledger/internal/storage"
	apperrors "github.com/karzdaar/ledger/pkg/errors"
)

// LedgerService orchestrates the pure ledger engine over persisted
// snapshots: it loads the relevant entries, runs the engine, and writes the
// resulting payments and status changes back. Validation happens before any
// write, so a failed operation leaves the stored book untouched.
type LedgerService struct {
	DebtRepo    repository.DebtRepository
	PaymentRepo repository.PaymentRepository
	redis       *redis.Client
	snapshots   *storage.SnapshotStore
	config      *config.Config
	now         func() time.Time
}

func NewLedgerService(
	debtRepo repository.DebtRepository,
	paymentRepo repository.PaymentRepository,
	redisClient *redis.Client,
	snapshots *storage.SnapshotStore,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		DebtRepo:    debtRepo,
		PaymentRepo: paymentRepo,
		redis:       redisClient,
		snapshots:   snapshots,
		config:      cfg,
		now:         time.Now,
	}
}

// CreateDebt records a new gave or got transaction. Gave entries start
// pending. Got entries recorded through this path represent money received
// in full: the entry starts paid, and the received amount is additionally
// applied against the customer's open gave entries, oldest first.
func (s *LedgerService) CreateDebt(ctx context.Context, request *domain.CreateDebtRequest) (*domain.DebtEntry, error) {
	if request.Amount <= 0 {
		return nil, apperrors.WrapInvalidAmount(request.Amount)
	}

	now := s.now()
	txDate := now
	if request.TransactionDate != nil {
		txDate = *request.TransactionDate
	}
	var dueDate *time.Time
	if request.Direction == domain.DirectionGave {
		// Due dates are only meaningful for money lent out.
		dueDate = request.DueDate
	}

	entry := ledger.NewDebtEntry(request.CustomerName, request.Direction, request.Amount, request.Note, txDate, dueDate, now)

	if err := s.DebtRepo.Create(ctx, &entry); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	if entry.Direction == domain.DirectionGot {
		entries, err := s.DebtRepo.GetByCustomer(ctx, entry.CustomerName)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
		_, allocations := ledger.ApplyPaymentAgainstOpenEntries(entries, entry.CustomerName, request.Amount, now)
		if err := s.persistAllocations(ctx, entries, allocations); err != nil {
			return nil, err
		}
	}

	s.invalidateBalance(ctx, entry.CustomerName)
	return &entry, nil
}

// CreateCustomer registers a customer with no transactions yet by inserting
// a placeholder entry. Duplicate names are rejected case-insensitively.
func (s *LedgerService) CreateCustomer(ctx context.Context, name string) (*domain.DebtEntry, error) {
	existing, err := s.DebtRepo.GetByCustomer(ctx, name)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if len(existing) > 0 {
		return nil, apperrors.WrapCustomerAlreadyExists(name)
	}

	placeholder := ledger.NewPlaceholderEntry(name, s.now())
	if err := s.DebtRepo.Create(ctx, &placeholder); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return &placeholder, nil
}

// RecordPayment applies money received from a customer against their open
// gave entries, oldest first, and records any unallocated remainder as a
// pending reverse debt the owner owes back.
func (s *LedgerService) RecordPayment(ctx context.Context, customerName string, amount int64, note string) (*domain.RecordPaymentResponse, error) {
	if amount <= 0 {
		return nil, apperrors.WrapInvalidPaymentAmount(amount)
	}

	entries, err := s.DebtRepo.GetByCustomer(ctx, customerName)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if len(entries) == 0 {
		return nil, apperrors.WrapCustomerNotFound(customerName)
	}

	now := s.now()
	remainder, allocations := ledger.ApplyPaymentAgainstOpenEntries(entries, customerName, amount, now)

	if err := s.persistAllocations(ctx, entries, allocations); err != nil {
		return nil, err
	}

	result := &domain.RecordPaymentResponse{
		Allocated:   amount - remainder,
		Unallocated: remainder,
	}

	if remainder > 0 {
		overpayment := ledger.NewOverpaymentEntry(customerName, remainder, note, now)
		if err := s.DebtRepo.Create(ctx, &overpayment); err != nil {
			return nil, apperrors.WrapDatabaseError(err)
		}
		entries = append(entries, overpayment)
		result.OverpaymentEntry = &overpayment
	}

	result.Balance = ledger.ComputeCustomerBalance(entries, customerName)
	s.invalidateBalance(ctx, customerName)

	return result, nil
}

// MarkFullyPaid settles whatever remains on an entry with one synthetic full
// payment. Calling it on an already settled entry is a no-op.
func (s *LedgerService) MarkFullyPaid(ctx context.Context, entryID uuid.UUID) (*domain.DebtEntry, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	entries := []domain.DebtEntry{*entry}
	payment, err := ledger.MarkFullyPaid(entries, entryID, s.now())
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return entry, nil
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if err := s.DebtRepo.UpdateStatus(ctx, entryID, entries[0].Status, entries[0].CurrentAmount, entries[0].UpdatedAt); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.invalidateBalance(ctx, entries[0].CustomerName)
	return &entries[0], nil
}

// AddPartialPayment records a payment against one entry. The amount must be
// positive and not exceed the entry's remaining balance.
func (s *LedgerService) AddPartialPayment(ctx context.Context, entryID uuid.UUID, amount int64, note string) (*domain.DebtEntry, error) {
	if amount <= 0 {
		return nil, apperrors.WrapInvalidPaymentAmount(amount)
	}

	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if remaining := ledger.RemainingAmount(entry); amount > remaining {
		return nil, apperrors.WrapPaymentExceedsBalance(amount, remaining)
	}

	entries := []domain.DebtEntry{*entry}
	payment, err := ledger.AddPartialPayment(entries, entryID, amount, note, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if err := s.DebtRepo.UpdateStatus(ctx, entryID, entries[0].Status, entries[0].CurrentAmount, entries[0].UpdatedAt); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	s.invalidateBalance(ctx, entries[0].CustomerName)
	return &entries[0], nil
}

// UpdateDebt edits the user-editable fields of an entry: note, transaction
// date and due date. Amounts and direction are immutable after creation.
func (s *LedgerService) UpdateDebt(ctx context.Context, entryID uuid.UUID, request *domain.UpdateDebtRequest) (*domain.DebtEntry, error) {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if request.Note != nil {
		entry.Note = *request.Note
		if entry.Note == "" {
			entry.Note = domain.DefaultNote
		}
	}
	if request.TransactionDate != nil {
		entry.TransactionDate = *request.TransactionDate
	}
	if request.DueDate != nil {
		entry.DueDate = request.DueDate
	}
	entry.UpdatedAt = s.now()

	if err := s.DebtRepo.Update(ctx, entry); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return entry, nil
}

// DeleteDebt removes one entry and its payment history.
func (s *LedgerService) DeleteDebt(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.DebtRepo.Delete(ctx, entryID); err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	s.invalidateBalance(ctx, entry.CustomerName)
	return nil
}

// GetEntry returns one entry with its payment history.
func (s *LedgerService) GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.DebtEntry, error) {
	return s.getEntry(ctx, entryID)
}

// GetPaymentHistory returns the payments recorded against one entry together
// with their running total.
func (s *LedgerService) GetPaymentHistory(ctx context.Context, entryID uuid.UUID) ([]domain.Payment, int64, error) {
	if _, err := s.getEntry(ctx, entryID); err != nil {
		return nil, 0, err
	}

	payments, err := s.PaymentRepo.GetByDebtID(ctx, entryID)
	if err != nil {
		return nil, 0, apperrors.WrapDatabaseError(err)
	}
	total, err := s.PaymentRepo.GetTotalPaid(ctx, entryID)
	if err != nil {
		return nil, 0, apperrors.WrapDatabaseError(err)
	}
	return payments, total, nil
}

// GetEntriesByCustomer returns the customer's entries.
func (s *LedgerService) GetEntriesByCustomer(ctx context.Context, customerName string) ([]domain.DebtEntry, error) {
	entries, err := s.DebtRepo.GetByCustomer(ctx, customerName)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return entries, nil
}

// GetCustomerBalance returns the customer's running balance, serving from
// the cache when possible. Cache failures are logged and fall through to a
// fresh computation.
func (s *LedgerService) GetCustomerBalance(ctx context.Context, customerName string) (int64, error) {
	key := balanceKey(customerName)
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			if balance, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return balance, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("balance cache read failed", "customer", customerName, "error", apperrors.WrapCacheError(err))
		}
	}

	entries, err := s.DebtRepo.GetByCustomer(ctx, customerName)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}
	if len(entries) == 0 {
		return 0, apperrors.WrapCustomerNotFound(customerName)
	}

	balance := ledger.ComputeCustomerBalance(entries, customerName)

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, strconv.FormatInt(balance, 10), s.config.GetBalanceTTL()).Err(); err != nil {
			slog.Warn("balance cache write failed", "customer", customerName, "error", err)
		}
	}
	return balance, nil
}

// ListCustomers returns the grouped customer listing, most recent activity
// first.
func (s *LedgerService) ListCustomers(ctx context.Context) ([]domain.CustomerSummary, error) {
	entries, err := s.DebtRepo.GetAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return ledger.GroupByCustomer(entries), nil
}

// GetPendingEntries returns entries still awaiting their first payment.
func (s *LedgerService) GetPendingEntries(ctx context.Context) ([]domain.DebtEntry, error) {
	entries, err := s.DebtRepo.GetAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return ledger.PendingEntries(entries), nil
}

// GetOverdueEntries returns unpaid entries whose due date has passed.
func (s *LedgerService) GetOverdueEntries(ctx context.Context) ([]domain.DebtEntry, error) {
	entries, err := s.DebtRepo.GetAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return ledger.OverdueEntries(entries, s.now()), nil
}

// GetSummary aggregates the whole book.
func (s *LedgerService) GetSummary(ctx context.Context) (*domain.LedgerSummary, error) {
	entries, err := s.DebtRepo.GetAll(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	summary := ledger.Summarize(entries, s.now())
	return &summary, nil
}

// RenameCustomer rewrites the name on every entry of the customer. The new
// name must not collide with a different existing customer; renaming a
// customer to a different casing of itself is allowed.
func (s *LedgerService) RenameCustomer(ctx context.Context, oldName, newName string) error {
	if !ledger.SameCustomer(oldName, newName) {
		existing, err := s.DebtRepo.GetByCustomer(ctx, newName)
		if err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		if len(existing) > 0 {
			return apperrors.WrapCustomerAlreadyExists(newName)
		}
	}

	count, err := s.DebtRepo.RenameCustomer(ctx, oldName, newName, s.now())
	if err != nil {
		return apperrors.WrapDatabaseError(err)
	}
	if count == 0 {
		return apperrors.WrapCustomerNotFound(oldName)
	}

	s.invalidateBalance(ctx, oldName)
	s.invalidateBalance(ctx, newName)
	return nil
}

// DeleteCustomer removes every entry of the customer, payments included.
func (s *LedgerService) DeleteCustomer(ctx context.Context, customerName string) (int64, error) {
	count, err := s.DebtRepo.DeleteByCustomer(ctx, customerName)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}
	if count == 0 {
		return 0, apperrors.WrapCustomerNotFound(customerName)
	}
	s.invalidateBalance(ctx, customerName)
	return count, nil
}

// FlagOverdueEntries flips pending entries with a past due date to overdue.
// Run daily by the scheduler; balance math never reads the flag.
func (s *LedgerService) FlagOverdueEntries(ctx context.Context) (int64, error) {
	count, err := s.DebtRepo.FlagOverdue(ctx, s.now())
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}
	return count, nil
}

// ExportSnapshot refreshes the primary snapshot file and writes the full
// book to a timestamped JSON backup, returning the backup's path.
func (s *LedgerService) ExportSnapshot(ctx context.Context) (string, error) {
	entries, err := s.DebtRepo.GetAll(ctx)
	if err != nil {
		return "", apperrors.WrapDatabaseError(err)
	}
	if err := s.snapshots.Save(entries); err != nil {
		return "", apperrors.WrapStorageError(err)
	}
	path, err := s.snapshots.Backup(entries, s.now())
	if err != nil {
		return "", apperrors.WrapStorageError(err)
	}
	return path, nil
}

// ImportSnapshot loads the JSON snapshot file and inserts every entry not
// already stored, payment history included. Entries already present are left
// untouched. Returns the number of entries imported.
func (s *LedgerService) ImportSnapshot(ctx context.Context) (int, error) {
	imported, err := s.snapshots.Load()
	if err != nil {
		return 0, apperrors.WrapStorageError(err)
	}
	existing, err := s.DebtRepo.GetAll(ctx)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err)
	}

	seen := make(map[uuid.UUID]struct{}, len(existing))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
	}

	count := 0
	for i := range imported {
		entry := &imported[i]
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		if err := s.DebtRepo.Create(ctx, entry); err != nil {
			return count, apperrors.WrapDatabaseError(err)
		}
		for j := range entry.Payments {
			if err := s.PaymentRepo.Create(ctx, &entry.Payments[j]); err != nil {
				return count, apperrors.WrapDatabaseError(err)
			}
		}
		s.invalidateBalance(ctx, entry.CustomerName)
		count++
	}
	return count, nil
}

// persistAllocations writes the payment rows and status changes produced by
// the engine back to the store. Entries must already carry the mutations.
func (s *LedgerService) persistAllocations(ctx context.Context, entries []domain.DebtEntry, allocations []ledger.Allocation) error {
	for _, alloc := range allocations {
		if err := s.PaymentRepo.Create(ctx, &alloc.Payment); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
		entry, ok := ledger.EntryByID(entries, alloc.EntryID)
		if !ok {
			return apperrors.WrapEntryNotFound(alloc.EntryID.String())
		}
		if err := s.DebtRepo.UpdateStatus(ctx, alloc.EntryID, alloc.NewStatus, entry.CurrentAmount, entry.UpdatedAt); err != nil {
			return apperrors.WrapDatabaseError(err)
		}
	}
	return nil
}

func (s *LedgerService) getEntry(ctx context.Context, entryID uuid.UUID) (*domain.DebtEntry, error) {
	entry, err := s.DebtRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapEntryNotFound(entryID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return entry, nil
}

func (s *LedgerService) invalidateBalance(ctx context.Context, customerName string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, balanceKey(customerName)).Err(); err != nil {
		slog.Warn("balance cache invalidation failed", "customer", customerName, "error", apperrors.WrapCacheError(err))
	}
}

func balanceKey(customerName string) string {
	return fmt.Sprintf("balance:%s", ledger.NormalizeName(customerName))
}
