package services

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	mW "github.com/headshotly/backend/internal/middleware"
)

// AccountService exposes the read side of the credit ledger.
type AccountService struct {
	ledger    *CreditLedgerService
	validator *ValidationHelper
}

func NewAccountService(ledger *CreditLedgerService) *AccountService {
	return &AccountService{
		ledger:    ledger,
		validator: NewValidationHelper(),
	}
}

// GetCredits returns the caller's credit balance
// @Summary Get credit balance
// @Description Return the authenticated user's current credit balance, creating the account on first sign-in
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{creditBalance=int64}
// @Failure 401 {object} services.ErrorResponse
// @Router /credits [get]
func (as *AccountService) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if err := as.ledger.EnsureAccount(r.Context(), userID, mW.UserEmail(r.Context())); err != nil {
		log.Printf("[CREDITS] Failed to ensure account %s: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	balance, err := as.ledger.Balance(r.Context(), userID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"creditBalance": balance,
	})
}

// GetTransactions returns the caller's ledger history
// @Summary List credit transactions
// @Description Return the authenticated user's most recent credit transactions
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of transactions to return (default: 20, max: 100)"
// @Success 200 {object} object{transactions=[]models.CreditTransaction,count=int}
// @Failure 401 {object} services.ErrorResponse
// @Router /credits/transactions [get]
func (as *AccountService) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Limit int `validate:"omitempty,min=1,max=100"`
	}
	req.Limit = 20

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			req.Limit = l
		}
	}

	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	transactions, err := as.ledger.Transactions(r.Context(), userID, req.Limit)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}
