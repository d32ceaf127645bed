package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/karzdaar/ledger/internal/domain"
)

type MockDebtRepository struct {
	mock.Mock
}

func (m *MockDebtRepository) Create(ctx context.Context, entry *domain.DebtEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDebtRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebtEntry), args.Error(1)
}

func (m *MockDebtRepository) GetAll(ctx context.Context) ([]domain.DebtEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DebtEntry), args.Error(1)
}

func (m *MockDebtRepository) GetByCustomer(ctx context.Context, customerName string) ([]domain.DebtEntry, error) {
	args := m.Called(ctx, customerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DebtEntry), args.Error(1)
}

func (m *MockDebtRepository) Update(ctx context.Context, entry *domain.DebtEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDebtRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, currentAmount int64, updatedAt time.Time) error {
	args := m.Called(ctx, id, status, currentAmount, updatedAt)
	return args.Error(0)
}

func (m *MockDebtRepository) RenameCustomer(ctx context.Context, oldName, newName string, now time.Time) (int64, error) {
	args := m.Called(ctx, oldName, newName, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDebtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDebtRepository) DeleteByCustomer(ctx context.Context, customerName string) (int64, error) {
	args := m.Called(ctx, customerName)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDebtRepository) FlagOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByDebtID(ctx context.Context, debtID uuid.UUID) ([]domain.Payment, error) {
	args := m.Called(ctx, debtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetTotalPaid(ctx context.Context, debtID uuid.UUID) (int64, error) {
	args := m.Called(ctx, debtID)
	return args.Get(0).(int64), args.Error(1)
}
