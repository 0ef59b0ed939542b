package models

import "time"

// Subscription mirrors one successful Paddle checkout. The id is the
// payment processor's subscription id, which also serves as the
// idempotency key for the checkout webhook.
type Subscription struct {
	ID               string    `json:"id" db:"id"`
	AccountID        string    `json:"account_id" db:"account_id"`
	PlanID           string    `json:"plan_id" db:"plan_id"`
	StartDate        string    `json:"start_date" db:"start_date"`
	EndDate          string    `json:"end_date" db:"end_date"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	AutoRenew        bool      `json:"auto_renew" db:"auto_renew"`
	PaddleUnitAmount int64     `json:"paddle_unit_amount" db:"paddle_unit_amount"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
