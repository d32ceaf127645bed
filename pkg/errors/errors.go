package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrEntryNotFound         = errors.New("debt entry not found")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer already exists")
	ErrInvalidPaymentAmount  = errors.New("invalid payment amount")
	ErrPaymentExceedsBalance = errors.New("payment exceeds remaining balance")
	ErrEntryNotPayable       = errors.New("entry cannot receive payments")
	ErrInvalidAmount         = errors.New("invalid amount")
)

// LedgerError represents a business logic error
type LedgerError struct {
	Code    string
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new ledger error
func NewLedgerError(code, message string, err error) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeEntryNotFound         = "ENTRY_NOT_FOUND"
	ErrCodeCustomerNotFound      = "CUSTOMER_NOT_FOUND"
	ErrCodeCustomerAlreadyExists = "CUSTOMER_ALREADY_EXISTS"
	ErrCodeInvalidPaymentAmount  = "INVALID_PAYMENT_AMOUNT"
	ErrCodePaymentExceedsBalance = "PAYMENT_EXCEEDS_BALANCE"
	ErrCodeEntryNotPayable       = "ENTRY_NOT_PAYABLE"
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
	ErrCodeStorageError          = "STORAGE_ERROR"
)

// IsNotFound reports whether the error is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrCustomerNotFound)
}

// IsValidation reports whether the error is a caller-input violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPaymentAmount) ||
		errors.Is(err, ErrPaymentExceedsBalance) ||
		errors.Is(err, ErrEntryNotPayable) ||
		errors.Is(err, ErrCustomerAlreadyExists) ||
		errors.Is(err, ErrInvalidAmount)
}

// Wrap common errors with business context
func WrapEntryNotFound(entryID string) *LedgerError {
	return NewLedgerError(
		ErrCodeEntryNotFound,
		fmt.Sprintf("Debt entry %s not found", entryID),
		ErrEntryNotFound,
	)
}

func WrapCustomerNotFound(name string) *LedgerError {
	return NewLedgerError(
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer %q not found", name),
		ErrCustomerNotFound,
	)
}

func WrapCustomerAlreadyExists(name string) *LedgerError {
	return NewLedgerError(
		ErrCodeCustomerAlreadyExists,
		fmt.Sprintf("A customer named %q already exists", name),
		ErrCustomerAlreadyExists,
	)
}

func WrapInvalidPaymentAmount(amount int64) *LedgerError {
	return NewLedgerError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %d", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapPaymentExceedsBalance(amount, remaining int64) *LedgerError {
	return NewLedgerError(
		ErrCodePaymentExceedsBalance,
		fmt.Sprintf("Payment of %d exceeds remaining balance %d", amount, remaining),
		ErrPaymentExceedsBalance,
	)
}

func WrapEntryNotPayable(entryID string) *LedgerError {
	return NewLedgerError(
		ErrCodeEntryNotPayable,
		fmt.Sprintf("Entry %s records received money and cannot be paid down", entryID),
		ErrEntryNotPayable,
	)
}

func WrapInvalidAmount(amount int64) *LedgerError {
	return NewLedgerError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Amount must be positive, got %d", amount),
		ErrInvalidAmount,
	)
}

func WrapDatabaseError(err error) *LedgerError {
	return NewLedgerError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *LedgerError {
	return NewLedgerError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}

func WrapStorageError(err error) *LedgerError {
	return NewLedgerError(
		ErrCodeStorageError,
		"snapshot storage operation failed",
		err,
	)
}
