package models

import "time"

// StylePreferences are the wizard selections upserted as the user moves
// through the onboarding steps.
type StylePreferences struct {
	AccountID string    `json:"account_id" db:"account_id"`
	ModelType string    `json:"model_type" db:"model_type"`
	Style     string    `json:"style" db:"style"`
	EyeColor  string    `json:"eye_color" db:"eye_color"`
	HairColor string    `json:"hair_color" db:"hair_color"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
