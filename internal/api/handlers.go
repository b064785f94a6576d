// Package api serves the ledger over a JSON REST interface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/roomsync/internal/service"
)

const maxBodyBytes = 1 << 20

// Handler adapts the services to HTTP.
type Handler struct {
	ledger   *service.LedgerService
	accounts *service.AccountService
}

func NewHandler(ledger *service.LedgerService, accounts *service.AccountService) *Handler {
	return &Handler{ledger: ledger, accounts: accounts}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errBadBody.Error()})
		return false
	}
	return true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.accounts.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGroupRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.accounts.CreateGroup(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req service.JoinGroupRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.accounts.JoinGroup(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req service.CreateExpenseRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.ledger.CreateExpense(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) CreateRecurringExpense(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRecurringExpenseRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.ledger.CreateRecurringExpense(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req service.RecordPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.ledger.RecordPayment(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GroupBalances(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ledger.GroupBalances(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DebtHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ledger.DebtHistory(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SettlementPlan(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ledger.SettlementPlan(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) PersonalSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ledger.PersonalSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateRecurring(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ledger.GenerateRecurring(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
