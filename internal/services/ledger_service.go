package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/headshotly/backend/internal/audit"
	"github.com/headshotly/backend/internal/models"
)

// Credit policy: a training run fires five prompts at fifty credits each,
// charged once at submission time. The completion webhook only reconciles
// job status; it never debits again.
const (
	TrainingPromptCount = 5
	CreditsPerPrompt    = 50
	TrainingCredits     = TrainingPromptCount * CreditsPerPrompt
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrModelNotFound       = errors.New("model not found")
	ErrDuplicateEvent      = errors.New("duplicate webhook event")
)

// SubscriptionEvent is the distilled subscription_created webhook payload.
type SubscriptionEvent struct {
	AccountID      string
	PlanID         string
	SubscriptionID string
	StartDate      string
	EndDate        string
	UnitAmount     int64
}

// CreditLedgerService owns every mutation of account credit balances.
// All writes run inside a sql.Tx with the account row locked, so two
// concurrent reconciliation events for the same account serialize instead
// of racing on read-modify-write. Webhook-driven mutations record their
// external event id first and no-op on redelivery.
type CreditLedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewCreditLedgerService(db *sql.DB) *CreditLedgerService {
	return &CreditLedgerService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// EnsureAccount creates the account row on first sign-in. Existing rows
// are left untouched.
func (s *CreditLedgerService) EnsureAccount(ctx context.Context, accountID, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, credit_balance, version, last_credit_update, created_at, updated_at)
		VALUES ($1, $2, 0, 1, $3, $3, $3)
		ON CONFLICT (id) DO NOTHING`,
		accountID, email, time.Now())
	return err
}

// Balance returns the account's current credit balance.
func (s *CreditLedgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT credit_balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// Transactions returns the most recent ledger rows for an account.
func (s *CreditLedgerService) Transactions(ctx context.Context, accountID string, limit int) ([]models.CreditTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, amount, balance_after, transaction_type, action_type, reference_id, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.CreditTransaction{}
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.BalanceAfter,
			&t.TransactionType, &t.ActionType, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// AccountEmail returns the stored notification address for an account.
func (s *CreditLedgerService) AccountEmail(ctx context.Context, accountID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `
		SELECT email FROM accounts WHERE id = $1`, accountID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return email, err
}

// GetPlan fetches immutable plan reference data.
func (s *CreditLedgerService) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	var p models.Plan
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, paddle_product_id, default_price, total_credits, training_cost, created_at
		FROM plans WHERE id = $1`, planID).
		Scan(&p.ID, &p.Name, &p.Description, &p.PaddleProductID, &p.DefaultPrice,
			&p.TotalCredits, &p.TrainingCost, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActivateSubscription applies a subscription_created event: the plan's
// credit grant replaces the balance rather than accumulating, a
// Subscription row is created and a purchase transaction appended, all in
// one database transaction keyed by the processor's subscription id.
func (s *CreditLedgerService) ActivateSubscription(ctx context.Context, ev SubscriptionEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.recordEvent(tx, "paddle", ev.SubscriptionID); err != nil {
		return err
	}

	var totalCredits int64
	err = tx.QueryRow(`SELECT total_credits FROM plans WHERE id = $1`, ev.PlanID).Scan(&totalCredits)
	if err == sql.ErrNoRows {
		return ErrPlanNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO accounts (id, email, credit_balance, plan_id, version, last_credit_update, created_at, updated_at)
		VALUES ($1, '', $2, $3, 1, $4, $4, $4)
		ON CONFLICT (id) DO UPDATE SET
			credit_balance = EXCLUDED.credit_balance,
			plan_id = EXCLUDED.plan_id,
			version = accounts.version + 1,
			last_credit_update = EXCLUDED.last_credit_update,
			updated_at = EXCLUDED.updated_at`,
		ev.AccountID, totalCredits, ev.PlanID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO subscriptions (id, account_id, plan_id, start_date, end_date, is_active, auto_renew, paddle_unit_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, true, $6, $7, $7)`,
		ev.SubscriptionID, ev.AccountID, ev.PlanID, ev.StartDate, ev.EndDate, ev.UnitAmount, now)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	txID := uuid.NewString()
	if err := s.appendTransactionTx(tx, txID, ev.AccountID, totalCredits, totalCredits,
		models.TransactionTypePurchase, models.ActionTypeSubscription, ev.SubscriptionID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(txID, ev.AccountID, err)
		return err
	}

	s.audit.LogCredit(txID, ev.AccountID, totalCredits, models.ActionTypeSubscription)
	return nil
}

// DebitTrainingTx debits a fixed training cost inside the caller's
// transaction. The account row is locked first, so two concurrent debits
// for the same account serialize and the loser sees the reduced balance.
// Returns the balance left after the debit.
func (s *CreditLedgerService) DebitTrainingTx(tx *sql.Tx, accountID string, cost int64, referenceID string) (int64, error) {
	account, err := s.lockAccount(tx, accountID)
	if err != nil {
		return 0, err
	}

	if account.CreditBalance < cost {
		return account.CreditBalance, ErrInsufficientCredits
	}

	newBalance := account.CreditBalance - cost
	if err := s.updateBalanceTx(tx, accountID, newBalance, account.Version); err != nil {
		return 0, err
	}

	txID := uuid.NewString()
	if err := s.appendTransactionTx(tx, txID, accountID, -cost, newBalance,
		models.TransactionTypeUsage, models.ActionTypeTraining, referenceID); err != nil {
		return 0, err
	}

	s.audit.LogDebit(txID, accountID, cost, models.ActionTypeTraining)
	return newBalance, nil
}

// CompleteTraining reconciles a training-completion webhook: the model is
// marked finished, exactly once per tune id. The run was already paid for
// at submission, so no ledger row is appended here.
func (s *CreditLedgerService) CompleteTraining(ctx context.Context, accountID string, tuneID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.recordEvent(tx, "astria-train", fmt.Sprintf("%d", tuneID)); err != nil {
		return err
	}

	result, err := tx.Exec(`
		UPDATE models SET status = $1, updated_at = $2
		WHERE tune_id = $3 AND account_id = $4`,
		models.ModelStatusFinished, time.Now(), tuneID, accountID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrModelNotFound
	}

	return tx.Commit()
}

// StoreGeneratedImages persists the image URLs reported by the prompt
// webhook, exactly once per prompt id.
func (s *CreditLedgerService) StoreGeneratedImages(ctx context.Context, accountID string, tuneID, promptID int64, prompt string, urls []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.recordEvent(tx, "astria-prompt", fmt.Sprintf("%d", promptID)); err != nil {
		return err
	}

	var modelID int64
	err = tx.QueryRow(`
		SELECT id FROM models WHERE tune_id = $1 AND account_id = $2`,
		tuneID, accountID).Scan(&modelID)
	if err == sql.ErrNoRows {
		return ErrModelNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	for _, uri := range urls {
		_, err = tx.Exec(`
			INSERT INTO images (model_id, prompt_id, prompt, uri, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			modelID, promptID, prompt, uri, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// recordEvent claims an external webhook event id. Redelivered events hit
// the primary key and return ErrDuplicateEvent before any mutation.
func (s *CreditLedgerService) recordEvent(tx *sql.Tx, provider, eventID string) error {
	result, err := tx.Exec(`
		INSERT INTO webhook_events (provider, event_id, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, event_id) DO NOTHING`,
		provider, eventID, time.Now())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (s *CreditLedgerService) lockAccount(tx *sql.Tx, accountID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT id, credit_balance, version, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).
		Scan(&account.ID, &account.CreditBalance, &account.Version, &account.UpdatedAt)
	return &account, err
}

func (s *CreditLedgerService) updateBalanceTx(tx *sql.Tx, accountID string, newBalance int64, version int) error {
	result, err := tx.Exec(`
		UPDATE accounts
		SET credit_balance = $1, version = version + 1, last_credit_update = $2, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), accountID, version)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("optimistic lock failed for account %s", accountID)
	}
	return nil
}

func (s *CreditLedgerService) appendTransactionTx(tx *sql.Tx, txID, accountID string, amount, balanceAfter int64, txType, actionType, referenceID string) error {
	_, err := tx.Exec(`
		INSERT INTO credit_transactions (id, account_id, amount, balance_after, transaction_type, action_type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txID, accountID, amount, balanceAfter, txType, actionType, referenceID, time.Now())
	return err
}
