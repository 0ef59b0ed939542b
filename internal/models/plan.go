package models

import "time"

// Plan is immutable reference data: the credit grant on subscription and
// the per-training cost are defined here, pricing display data comes from
// Paddle at read time.
type Plan struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	PaddleProductID string    `json:"paddle_product_id" db:"paddle_product_id"`
	DefaultPrice    int64     `json:"default_price" db:"default_price"` // in cents
	TotalCredits    int64     `json:"total_credits" db:"total_credits"`
	TrainingCost    int64     `json:"training_cost" db:"training_cost"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// PricedPlan is a Plan annotated with a live Paddle price. Error is set
// when the live lookup failed and DefaultPrice was used instead.
type PricedPlan struct {
	Plan
	PriceInUSD    string `json:"price_in_usd"`
	CurrencyCode  string `json:"currency_code"`
	PaddlePriceID string `json:"paddle_price_id,omitempty"`
	Error         string `json:"error,omitempty"`
}
