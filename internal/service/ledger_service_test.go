package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/karzdaar/ledger/internal/config"
	"github.com/karzdaar/ledger/internal/domain"
	"github.com/karzdaar/ledger/internal/ledger"
	"github.com/karzdaar/ledger/internal/storage"
	apperrors "github.com/karzdaar/ledger/pkg/errors"
	"github.com/karzdaar/ledger/tests/mocks"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(debtRepo *mocks.MockDebtRepository, paymentRepo *mocks.MockPaymentRepository) *LedgerService {
	return &LedgerService{
		DebtRepo:    debtRepo,
		PaymentRepo: paymentRepo,
		config:      &config.Config{},
		now:         func() time.Time { return testNow },
	}
}

func TestRecordPayment_AllocatesOldestFirst(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	older := ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow.AddDate(0, 0, -10), nil, testNow)
	newer := ledger.NewDebtEntry("Alice", domain.DirectionGave, 300, "", testNow.AddDate(0, 0, -5), nil, testNow)
	debtRepo.On("GetByCustomer", mock.Anything, "Alice").Return([]domain.DebtEntry{newer, older}, nil)

	paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.DebtID == older.ID && p.Amount == 500 && p.Kind == domain.PaymentKindFull
	})).Return(nil)
	paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.DebtID == newer.ID && p.Amount == 100 && p.Kind == domain.PaymentKindPartial
	})).Return(nil)
	debtRepo.On("UpdateStatus", mock.Anything, older.ID, domain.StatusPaid, int64(0), testNow).Return(nil)
	debtRepo.On("UpdateStatus", mock.Anything, newer.ID, domain.StatusPartial, int64(200), testNow).Return(nil)

	result, err := svc.RecordPayment(context.Background(), "Alice", 600, "")

	require.NoError(t, err)
	assert.Equal(t, int64(600), result.Allocated)
	assert.Equal(t, int64(0), result.Unallocated)
	assert.Nil(t, result.OverpaymentEntry)
	assert.Equal(t, int64(200), result.Balance)

	debtRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestRecordPayment_OverpaymentCreatesReverseDebt(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	open := ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow.AddDate(0, 0, -1), nil, testNow)
	debtRepo.On("GetByCustomer", mock.Anything, "Alice").Return([]domain.DebtEntry{open}, nil)

	paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.DebtID == open.ID && p.Amount == 500
	})).Return(nil)
	debtRepo.On("UpdateStatus", mock.Anything, open.ID, domain.StatusPaid, int64(0), testNow).Return(nil)
	debtRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DebtEntry) bool {
		return e.Direction == domain.DirectionGot &&
			e.OriginalAmount == 700 &&
			e.Status == domain.StatusPending
	})).Return(nil)

	result, err := svc.RecordPayment(context.Background(), "Alice", 1200, "")

	require.NoError(t, err)
	assert.Equal(t, int64(500), result.Allocated)
	assert.Equal(t, int64(700), result.Unallocated)
	require.NotNil(t, result.OverpaymentEntry)
	// Net overpayment: the 700 reverse debt less the 500 already applied
	// to the settled entry.
	assert.Equal(t, int64(-200), result.Balance)

	debtRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestCreateDebt_GotPaymentSettlesOpenDebts(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	open := ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow.AddDate(0, 0, -3), nil, testNow)
	debtRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DebtEntry) bool {
		return e.Direction == domain.DirectionGot &&
			e.OriginalAmount == 1200 &&
			e.Status == domain.StatusPaid
	})).Return(nil)
	debtRepo.On("GetByCustomer", mock.Anything, "Alice").Return([]domain.DebtEntry{open}, nil)
	paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.DebtID == open.ID && p.Amount == 500 && p.Kind == domain.PaymentKindFull
	})).Return(nil)
	debtRepo.On("UpdateStatus", mock.Anything, open.ID, domain.StatusPaid, int64(0), testNow).Return(nil)

	entry, err := svc.CreateDebt(context.Background(), &domain.CreateDebtRequest{
		CustomerName: "Alice",
		Direction:    domain.DirectionGot,
		Amount:       1200,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, entry.Status)

	debtRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestRecordPayment_InvalidAmount(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	_, err := svc.RecordPayment(context.Background(), "Alice", 0, "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
	debtRepo.AssertNotCalled(t, "GetByCustomer", mock.Anything, mock.Anything)
}

func TestRecordPayment_UnknownCustomer(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	debtRepo.On("GetByCustomer", mock.Anything, "Ghost").Return([]domain.DebtEntry{}, nil)

	_, err := svc.RecordPayment(context.Background(), "Ghost", 100, "")

	assert.ErrorIs(t, err, apperrors.ErrCustomerNotFound)
}

func TestAddPartialPayment_ExceedsRemaining(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	entry := ledger.NewDebtEntry("Alice", domain.DirectionGave, 600, "", testNow, nil, testNow)
	debtRepo.On("GetByID", mock.Anything, entry.ID).Return(&entry, nil)

	_, err := svc.AddPartialPayment(context.Background(), entry.ID, 1000, "")

	assert.ErrorIs(t, err, apperrors.ErrPaymentExceedsBalance)
	paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	debtRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddPartialPayment_Success(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	entry := ledger.NewDebtEntry("Alice", domain.DirectionGave, 10000, "lunch", testNow, nil, testNow)
	debtRepo.On("GetByID", mock.Anything, entry.ID).Return(&entry, nil)
	paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Amount == 4000 && p.Kind == domain.PaymentKindPartial
	})).Return(nil)
	debtRepo.On("UpdateStatus", mock.Anything, entry.ID, domain.StatusPartial, int64(6000), testNow).Return(nil)

	updated, err := svc.AddPartialPayment(context.Background(), entry.ID, 4000, "installment")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, updated.Status)
	assert.Equal(t, int64(6000), ledger.RemainingAmount(updated))

	debtRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestMarkFullyPaid_AlreadySettledIsNoop(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	entry := ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow, nil, testNow)
	entries := []domain.DebtEntry{entry}
	_, err := ledger.MarkFullyPaid(entries, entry.ID, testNow)
	require.NoError(t, err)

	debtRepo.On("GetByID", mock.Anything, entry.ID).Return(&entries[0], nil)

	updated, err := svc.MarkFullyPaid(context.Background(), entry.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, updated.Status)
	paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateCustomer_DuplicateRejected(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	existing := ledger.NewPlaceholderEntry("Alice", testNow)
	debtRepo.On("GetByCustomer", mock.Anything, "alice").Return([]domain.DebtEntry{existing}, nil)

	_, err := svc.CreateCustomer(context.Background(), "alice")

	assert.ErrorIs(t, err, apperrors.ErrCustomerAlreadyExists)
	debtRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateCustomer_CreatesPlaceholder(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	debtRepo.On("GetByCustomer", mock.Anything, "Alice").Return([]domain.DebtEntry{}, nil)
	debtRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DebtEntry) bool {
		return e.OriginalAmount == 0 &&
			e.Status == domain.StatusPaid &&
			e.Note == domain.PlaceholderNote
	})).Return(nil)

	placeholder, err := svc.CreateCustomer(context.Background(), "Alice")

	require.NoError(t, err)
	assert.True(t, ledger.IsPlaceholder(placeholder))
	debtRepo.AssertExpectations(t)
}

func TestCreateDebt_DueDateOnlyForGave(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	due := testNow.AddDate(0, 0, 7)
	debtRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DebtEntry) bool {
		return e.Direction == domain.DirectionGot && e.DueDate == nil && e.Status == domain.StatusPaid
	})).Return(nil)
	debtRepo.On("GetByCustomer", mock.Anything, "Bob").Return([]domain.DebtEntry{}, nil)

	entry, err := svc.CreateDebt(context.Background(), &domain.CreateDebtRequest{
		CustomerName: "Bob",
		Direction:    domain.DirectionGot,
		Amount:       15000,
		DueDate:      &due,
	})

	require.NoError(t, err)
	assert.Nil(t, entry.DueDate, "due dates are meaningless on received money")
	debtRepo.AssertExpectations(t)
}

func TestUpdateDebt_StampsInjectedClock(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	entry := ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow.AddDate(0, 0, -30), nil, testNow.AddDate(0, 0, -30))
	debtRepo.On("GetByID", mock.Anything, entry.ID).Return(&entry, nil)
	// The persisted row must carry the service clock, not wall time.
	debtRepo.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.DebtEntry) bool {
		return e.ID == entry.ID && e.Note == "corrected" && e.UpdatedAt.Equal(testNow)
	})).Return(nil)

	note := "corrected"
	updated, err := svc.UpdateDebt(context.Background(), entry.ID, &domain.UpdateDebtRequest{Note: &note})

	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(testNow))
	debtRepo.AssertExpectations(t)
}

func TestRenameCustomer(t *testing.T) {
	tests := []struct {
		name        string
		oldName     string
		newName     string
		setupMocks  func(*mocks.MockDebtRepository)
		expectedErr error
	}{
		{
			name:    "success",
			oldName: "Alice",
			newName: "Alicia",
			setupMocks: func(m *mocks.MockDebtRepository) {
				m.On("GetByCustomer", mock.Anything, "Alicia").Return([]domain.DebtEntry{}, nil)
				m.On("RenameCustomer", mock.Anything, "Alice", "Alicia", testNow).Return(int64(3), nil)
			},
		},
		{
			name:    "case change of the same customer skips the collision check",
			oldName: "alice",
			newName: "Alice",
			setupMocks: func(m *mocks.MockDebtRepository) {
				m.On("RenameCustomer", mock.Anything, "alice", "Alice", testNow).Return(int64(2), nil)
			},
		},
		{
			name:    "collision with another customer",
			oldName: "Alice",
			newName: "Bob",
			setupMocks: func(m *mocks.MockDebtRepository) {
				bob := ledger.NewDebtEntry("Bob", domain.DirectionGave, 100, "", testNow, nil, testNow)
				m.On("GetByCustomer", mock.Anything, "Bob").Return([]domain.DebtEntry{bob}, nil)
			},
			expectedErr: apperrors.ErrCustomerAlreadyExists,
		},
		{
			name:    "unknown customer",
			oldName: "Ghost",
			newName: "Spirit",
			setupMocks: func(m *mocks.MockDebtRepository) {
				m.On("GetByCustomer", mock.Anything, "Spirit").Return([]domain.DebtEntry{}, nil)
				m.On("RenameCustomer", mock.Anything, "Ghost", "Spirit", testNow).Return(int64(0), nil)
			},
			expectedErr: apperrors.ErrCustomerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debtRepo := &mocks.MockDebtRepository{}
			svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})
			tt.setupMocks(debtRepo)

			err := svc.RenameCustomer(context.Background(), tt.oldName, tt.newName)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			debtRepo.AssertExpectations(t)
		})
	}
}

func TestDeleteCustomer_Unknown(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	debtRepo.On("DeleteByCustomer", mock.Anything, "Ghost").Return(int64(0), nil)

	_, err := svc.DeleteCustomer(context.Background(), "Ghost")

	assert.ErrorIs(t, err, apperrors.ErrCustomerNotFound)
}

func TestGetCustomerBalance_ComputedWithoutCache(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	entries := []domain.DebtEntry{
		ledger.NewDebtEntry("Alice", domain.DirectionGave, 10000, "", testNow, nil, testNow),
		ledger.NewOverpaymentEntry("Alice", 2500, "", testNow),
	}
	debtRepo.On("GetByCustomer", mock.Anything, "Alice").Return(entries, nil)

	balance, err := svc.GetCustomerBalance(context.Background(), "Alice")

	require.NoError(t, err)
	assert.Equal(t, int64(7500), balance)
}

func TestFlagOverdueEntries(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	debtRepo.On("FlagOverdue", mock.Anything, testNow).Return(int64(4), nil)

	count, err := svc.FlagOverdueEntries(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestGetPendingEntries(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	pending := ledger.NewDebtEntry("Alice", domain.DirectionGave, 100, "", testNow, nil, testNow)
	settledSlice := []domain.DebtEntry{ledger.NewDebtEntry("Bob", domain.DirectionGave, 100, "", testNow, nil, testNow)}
	_, err := ledger.MarkFullyPaid(settledSlice, settledSlice[0].ID, testNow)
	require.NoError(t, err)

	debtRepo.On("GetAll", mock.Anything).Return([]domain.DebtEntry{pending, settledSlice[0]}, nil)

	entries, err := svc.GetPendingEntries(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pending.ID, entries[0].ID)
}

func TestGetPaymentHistory(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	entry := ledger.NewDebtEntry("Alice", domain.DirectionGave, 10000, "", testNow, nil, testNow)
	payments := []domain.Payment{
		{ID: uuid.New(), DebtID: entry.ID, Amount: 4000, Kind: domain.PaymentKindPartial},
		{ID: uuid.New(), DebtID: entry.ID, Amount: 6000, Kind: domain.PaymentKindFull},
	}
	debtRepo.On("GetByID", mock.Anything, entry.ID).Return(&entry, nil)
	paymentRepo.On("GetByDebtID", mock.Anything, entry.ID).Return(payments, nil)
	paymentRepo.On("GetTotalPaid", mock.Anything, entry.ID).Return(int64(10000), nil)

	got, total, err := svc.GetPaymentHistory(context.Background(), entry.ID)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(10000), total)
}

func TestImportSnapshot_SkipsExistingEntries(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	paymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(debtRepo, paymentRepo)

	store := storage.NewSnapshotStore(filepath.Join(t.TempDir(), "debts.json"), t.TempDir())
	svc.snapshots = store

	known := ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow, nil, testNow)
	fresh := ledger.NewDebtEntry("Bob", domain.DirectionGave, 900, "", testNow, nil, testNow)
	require.NoError(t, store.Save([]domain.DebtEntry{known, fresh}))

	debtRepo.On("GetAll", mock.Anything).Return([]domain.DebtEntry{known}, nil)
	debtRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DebtEntry) bool {
		return e.ID == fresh.ID
	})).Return(nil)

	count, err := svc.ImportSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	debtRepo.AssertExpectations(t)
}

func TestExportSnapshot_WritesSnapshotAndBackup(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	snapshotPath := filepath.Join(t.TempDir(), "debts.json")
	store := storage.NewSnapshotStore(snapshotPath, t.TempDir())
	svc.snapshots = store

	entries := []domain.DebtEntry{
		ledger.NewDebtEntry("Alice", domain.DirectionGave, 500, "", testNow, nil, testNow),
	}
	debtRepo.On("GetAll", mock.Anything).Return(entries, nil)

	path, err := svc.ExportSnapshot(context.Background())

	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.FileExists(t, snapshotPath)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, entries[0].ID, loaded[0].ID)
}

func TestGetEntry_NotFound(t *testing.T) {
	debtRepo := &mocks.MockDebtRepository{}
	svc := newTestService(debtRepo, &mocks.MockPaymentRepository{})

	id := uuid.New()
	debtRepo.On("GetByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

	_, err := svc.GetEntry(context.Background(), id)

	assert.ErrorIs(t, err, apperrors.ErrEntryNotFound)
}
