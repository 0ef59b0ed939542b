package models

import "time"

// Credit transaction classification.
const (
	TransactionTypePurchase = "purchase"
	TransactionTypeUsage    = "usage"

	ActionTypeSubscription    = "subscription"
	ActionTypeTraining        = "training"
	ActionTypeImageGeneration = "image_generation"
)

// CreditTransaction is one row of the append-only credit ledger. Rows are
// never mutated or deleted; BalanceAfter snapshots the account balance the
// mutation left behind.
type CreditTransaction struct {
	ID              string    `json:"id" db:"id"`
	AccountID       string    `json:"account_id" db:"account_id"`
	Amount          int64     `json:"amount" db:"amount"` // signed
	BalanceAfter    int64     `json:"balance_after" db:"balance_after"`
	TransactionType string    `json:"transaction_type" db:"transaction_type"`
	ActionType      string    `json:"action_type" db:"action_type"`
	ReferenceID     string    `json:"reference_id" db:"reference_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
