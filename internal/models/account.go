package models

import "time"

// Account holds a user's consumable credit balance. The id is the
// auth provider's user id; the row is created on first sign-in.
type Account struct {
	ID               string    `json:"id" db:"id"`
	Email            string    `json:"email" db:"email"`
	CreditBalance    int64     `json:"credit_balance" db:"credit_balance"`
	PlanID           *string   `json:"plan_id,omitempty" db:"plan_id"`
	Version          int       `json:"version" db:"version"` // for optimistic locking
	LastCreditUpdate time.Time `json:"last_credit_update" db:"last_credit_update"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
