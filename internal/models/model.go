package models

import "time"

// Training job lifecycle: processing until the provider's completion
// webhook arrives, then finished. No failure state is modeled; a rejected
// submission never creates a row.
const (
	ModelStatusProcessing = "processing"
	ModelStatusFinished   = "finished"
)

// Model is a fine-tune keyed to a user's uploaded reference photos.
// TuneID is the training provider's job id.
type Model struct {
	ID        int64     `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	TuneID    int64     `json:"tune_id" db:"tune_id"`
	Name      string    `json:"name" db:"name"`
	Type      string    `json:"type" db:"type"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Sample is one uploaded reference photo attached to a model.
type Sample struct {
	ID      int64  `json:"id" db:"id"`
	ModelID int64  `json:"model_id" db:"model_id"`
	URI     string `json:"uri" db:"uri"`
}

// Image is one generated headshot reported by the prompt webhook.
type Image struct {
	ID        int64     `json:"id" db:"id"`
	ModelID   int64     `json:"model_id" db:"model_id"`
	PromptID  int64     `json:"prompt_id" db:"prompt_id"`
	Prompt    string    `json:"prompt" db:"prompt"`
	URI       string    `json:"uri" db:"uri"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
