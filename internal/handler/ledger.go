package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/karzdaar/ledger/internal/domain"
	"github.com/karzdaar/ledger/internal/service"
	apperrors "github.com/karzdaar/ledger/pkg/errors"
	"github.com/karzdaar/ledger/pkg/response"
	"github.com/karzdaar/ledger/pkg/utils"
)

type LedgerHandler struct {
	service   *service.LedgerService
	validator *validator.Validate
}

func NewLedgerHandler(service *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateDebt handles POST /debts
func (h *LedgerHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDebtRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.service.CreateDebt(r.Context(), &req)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Created(w, entry)
}

// GetDebt handles GET /debts/{debtId}
func (h *LedgerHandler) GetDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.debtID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, entry)
}

// UpdateDebt handles PUT /debts/{debtId}
func (h *LedgerHandler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.debtID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateDebtRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.service.UpdateDebt(r.Context(), id, &req)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, entry)
}

// DeleteDebt handles DELETE /debts/{debtId}
func (h *LedgerHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.debtID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDebt(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, map[string]string{"deleted": id.String()})
}

// AddPartialPayment handles POST /debts/{debtId}/payments
func (h *LedgerHandler) AddPartialPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.debtID(w, r)
	if !ok {
		return
	}

	var req domain.AddPartialPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.service.AddPartialPayment(r.Context(), id, req.Amount, req.Note)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, entry)
}

// GetPaymentHistory handles GET /debts/{debtId}/payments
func (h *LedgerHandler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.debtID(w, r)
	if !ok {
		return
	}

	payments, total, err := h.service.GetPaymentHistory(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"payments":   payments,
		"total_paid": total,
		"formatted":  utils.FormatCurrency(total),
	})
}

// MarkFullyPaid handles POST /debts/{debtId}/paid
func (h *LedgerHandler) MarkFullyPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.debtID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.MarkFullyPaid(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, entry)
}

// GetPendingDebts handles GET /debts/pending
func (h *LedgerHandler) GetPendingDebts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetPendingEntries(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, entries)
}

// GetOverdueDebts handles GET /debts/overdue
func (h *LedgerHandler) GetOverdueDebts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetOverdueEntries(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, entries)
}

// ListCustomers handles GET /customers
func (h *LedgerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}

	now := time.Now()
	items := make([]domain.CustomerListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, domain.CustomerListItem{
			Name:         s.Name,
			Balance:      s.Balance,
			Formatted:    utils.FormatCurrency(s.Balance),
			EntryCount:   len(s.Entries),
			LastActivity: utils.FormatRelativeTime(s.LatestTransaction, now),
		})
	}
	response.Success(w, items)
}

// CreateCustomer handles POST /customers
func (h *LedgerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	placeholder, err := h.service.CreateCustomer(r.Context(), req.Name)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Created(w, placeholder)
}

// RenameCustomer handles PUT /customers/{name}/rename
func (h *LedgerHandler) RenameCustomer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req domain.RenameCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.RenameCustomer(r.Context(), name, req.NewName); err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, map[string]string{"old_name": name, "new_name": req.NewName})
}

// DeleteCustomer handles DELETE /customers/{name}
func (h *LedgerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	count, err := h.service.DeleteCustomer(r.Context(), name)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{"name": name, "entries_deleted": count})
}

// GetCustomerBalance handles GET /customers/{name}/balance
func (h *LedgerHandler) GetCustomerBalance(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	balance, err := h.service.GetCustomerBalance(r.Context(), name)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, domain.BalanceResponse{
		CustomerName: name,
		Balance:      balance,
		Formatted:    utils.FormatCurrency(balance),
	})
}

// GetCustomerEntries handles GET /customers/{name}/entries
func (h *LedgerHandler) GetCustomerEntries(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	entries, err := h.service.GetEntriesByCustomer(r.Context(), name)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if len(entries) == 0 {
		response.NotFound(w, "Customer not found")
		return
	}
	response.Success(w, entries)
}

// RecordPayment handles POST /customers/{name}/payments
func (h *LedgerHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req domain.RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.RecordPayment(r.Context(), name, req.Amount, req.Note)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, result)
}

// GetSummary handles GET /summary
func (h *LedgerHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, summary)
}

// ExportSnapshot handles POST /export
func (h *LedgerHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.ExportSnapshot(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, map[string]string{"path": path})
}

// ImportSnapshot handles POST /import
func (h *LedgerHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ImportSnapshot(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	response.Success(w, map[string]int{"imported": count})
}

// decode parses and validates the JSON request body, writing the error
// response itself when the body is unusable.
func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func (h *LedgerHandler) debtID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["debtId"])
	if err != nil {
		response.BadRequest(w, "Invalid debt id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *LedgerHandler) serviceError(w http.ResponseWriter, err error) {
	var ledgerErr *apperrors.LedgerError
	message := "Operation failed"
	if errors.As(err, &ledgerErr) {
		message = ledgerErr.Message
	}

	switch {
	case apperrors.IsNotFound(err):
		response.NotFound(w, message)
	case errors.Is(err, apperrors.ErrCustomerAlreadyExists):
		response.Conflict(w, message, err)
	case apperrors.IsValidation(err):
		response.BadRequest(w, message, err)
	default:
		response.InternalServerError(w, message, err)
	}
}
