package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/headshotly/backend/internal/models"
)

// The wizard's fixed step sequence. Steps are independently reversible;
// moving forward only ever advances one step at a time.
var WizardSteps = []string{
	"gender",
	"style",
	"eyes-color",
	"hair-color",
	"image-upload",
	"get-credits",
}

const wizardStateTTL = 24 * time.Hour

// WizardState is the draft progress of one user's onboarding run.
type WizardState struct {
	Step        string                   `json:"step"`
	Preferences *models.StylePreferences `json:"preferences,omitempty"`
}

// OnboardingService keeps draft wizard progress in Redis and persists
// style selections to the account store as the user confirms each step.
type OnboardingService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewOnboardingService(db *sql.DB, redisClient *redis.Client) *OnboardingService {
	return &OnboardingService{
		db:    db,
		redis: redisClient,
	}
}

// State returns the user's current step and saved preferences.
func (s *OnboardingService) State(ctx context.Context, userID string) (*WizardState, error) {
	state := &WizardState{Step: WizardSteps[0]}

	if s.redis != nil {
		step, err := s.redis.Get(ctx, s.stateKey(userID)).Result()
		if err == nil && stepIndex(step) >= 0 {
			state.Step = step
		} else if err != nil && err != redis.Nil {
			return nil, err
		}
	}

	prefs, err := s.getPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Preferences = prefs
	return state, nil
}

// Advance moves the wizard to the given step. Any earlier step is
// allowed; forward movement is limited to the next step in sequence.
func (s *OnboardingService) Advance(ctx context.Context, userID, step string) (*WizardState, error) {
	target := stepIndex(step)
	if target < 0 {
		return nil, fmt.Errorf("unknown onboarding step %q", step)
	}

	current, err := s.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	if target > stepIndex(current.Step)+1 {
		return nil, fmt.Errorf("cannot skip ahead to step %q", step)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, s.stateKey(userID), step, wizardStateTTL).Err(); err != nil {
			return nil, err
		}
	}

	current.Step = step
	return current, nil
}

// UpsertPreferences persists the wizard's style selections immediately;
// photo uploads are deferred until the training submission.
func (s *OnboardingService) UpsertPreferences(ctx context.Context, prefs *models.StylePreferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO onboarding_preferences (account_id, model_type, style, eye_color, hair_color, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE SET
			model_type = EXCLUDED.model_type,
			style = EXCLUDED.style,
			eye_color = EXCLUDED.eye_color,
			hair_color = EXCLUDED.hair_color,
			updated_at = EXCLUDED.updated_at`,
		prefs.AccountID, prefs.ModelType, prefs.Style, prefs.EyeColor, prefs.HairColor, time.Now())
	return err
}

func (s *OnboardingService) getPreferences(ctx context.Context, userID string) (*models.StylePreferences, error) {
	var prefs models.StylePreferences
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, model_type, style, eye_color, hair_color, updated_at
		FROM onboarding_preferences
		WHERE account_id = $1`, userID).
		Scan(&prefs.AccountID, &prefs.ModelType, &prefs.Style, &prefs.EyeColor, &prefs.HairColor, &prefs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (s *OnboardingService) stateKey(userID string) string {
	return fmt.Sprintf("onboarding:%s", userID)
}

func stepIndex(step string) int {
	for i, s := range WizardSteps {
		if s == step {
			return i
		}
	}
	return -1
}
