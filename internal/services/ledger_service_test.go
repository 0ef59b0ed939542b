package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/headshotly/backend/internal/models"
)

func TestCreditLedgerService_ActivateSubscription(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCreditLedgerService(db)

	event := SubscriptionEvent{
		AccountID:      "user1",
		PlanID:         "basic",
		SubscriptionID: "sub_123",
		StartDate:      "2024-01-01",
		EndDate:        "2024-02-01",
		UnitAmount:     4500,
	}

	t.Run("grant replaces existing balance", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("paddle", "sub_123", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectQuery("SELECT total_credits FROM plans WHERE id = \\$1").
			WithArgs("basic").
			WillReturnRows(sqlmock.NewRows([]string{"total_credits"}).AddRow(1000))

		// ON CONFLICT sets credit_balance to the grant, not balance + grant
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("user1", int64(1000), "basic", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO subscriptions").
			WithArgs("sub_123", "user1", "basic", "2024-01-01", "2024-02-01", int64(4500), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO credit_transactions").
			WithArgs(sqlmock.AnyArg(), "user1", int64(1000), int64(1000),
				models.TransactionTypePurchase, models.ActionTypeSubscription, "sub_123", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.ActivateSubscription(context.Background(), event)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivered event is a no-op", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("paddle", "sub_123", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0)) // PK hit, nothing inserted

		mock.ExpectRollback()

		err := service.ActivateSubscription(context.Background(), event)
		assert.ErrorIs(t, err, ErrDuplicateEvent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown plan", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("paddle", "sub_123", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectQuery("SELECT total_credits FROM plans WHERE id = \\$1").
			WithArgs("basic").
			WillReturnRows(sqlmock.NewRows([]string{"total_credits"}))

		mock.ExpectRollback()

		err := service.ActivateSubscription(context.Background(), event)
		assert.ErrorIs(t, err, ErrPlanNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreditLedgerService_DebitTrainingTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCreditLedgerService(db)

	t.Run("successful debit", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT id, credit_balance, version, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "credit_balance", "version", "updated_at"}).
				AddRow("user1", 1000, 3, time.Now()))

		mock.ExpectExec("UPDATE accounts SET credit_balance = \\$1, version = version \\+ 1").
			WithArgs(int64(750), sqlmock.AnyArg(), "user1", 3).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO credit_transactions").
			WithArgs(sqlmock.AnyArg(), "user1", int64(-250), int64(750),
				models.TransactionTypeUsage, models.ActionTypeTraining, "tune-42", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		newBalance, err := service.DebitTrainingTx(tx, "user1", TrainingCredits, "tune-42")
		assert.NoError(t, err)
		assert.Equal(t, int64(750), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exact balance debits to zero", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT id, credit_balance, version, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "credit_balance", "version", "updated_at"}).
				AddRow("user1", 250, 1, time.Now()))

		mock.ExpectExec("UPDATE accounts SET credit_balance = \\$1, version = version \\+ 1").
			WithArgs(int64(0), sqlmock.AnyArg(), "user1", 1).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("INSERT INTO credit_transactions").
			WithArgs(sqlmock.AnyArg(), "user1", int64(-250), int64(0),
				models.TransactionTypeUsage, models.ActionTypeTraining, "tune-42", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		newBalance, err := service.DebitTrainingTx(tx, "user1", TrainingCredits, "tune-42")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient credits", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT id, credit_balance, version, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "credit_balance", "version", "updated_at"}).
				AddRow("user1", 200, 3, time.Now()))

		balance, err := service.DebitTrainingTx(tx, "user1", TrainingCredits, "tune-42")
		assert.ErrorIs(t, err, ErrInsufficientCredits)
		assert.Equal(t, int64(200), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent writer wins the version race", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT id, credit_balance, version, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "credit_balance", "version", "updated_at"}).
				AddRow("user1", 1000, 3, time.Now()))

		mock.ExpectExec("UPDATE accounts SET credit_balance = \\$1, version = version \\+ 1").
			WithArgs(int64(750), sqlmock.AnyArg(), "user1", 3).
			WillReturnResult(sqlmock.NewResult(1, 0)) // version moved under us

		_, err := service.DebitTrainingTx(tx, "user1", TrainingCredits, "tune-42")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreditLedgerService_CompleteTraining(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCreditLedgerService(db)

	t.Run("marks model finished without touching the ledger", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("astria-train", "42", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE models SET status = \\$1").
			WithArgs(models.ModelStatusFinished, sqlmock.AnyArg(), int64(42), "user1").
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectCommit()

		err := service.CompleteTraining(context.Background(), "user1", 42)
		assert.NoError(t, err)
		// No UPDATE accounts / INSERT INTO credit_transactions expected:
		// the run was charged at submission.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivered completion is a no-op", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("astria-train", "42", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		err := service.CompleteTraining(context.Background(), "user1", 42)
		assert.ErrorIs(t, err, ErrDuplicateEvent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown tune id", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("astria-train", "99", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectExec("UPDATE models SET status = \\$1").
			WithArgs(models.ModelStatusFinished, sqlmock.AnyArg(), int64(99), "user1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		err := service.CompleteTraining(context.Background(), "user1", 99)
		assert.ErrorIs(t, err, ErrModelNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreditLedgerService_StoreGeneratedImages(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCreditLedgerService(db)

	urls := []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}

	t.Run("stores one row per image", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("astria-prompt", "7", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		mock.ExpectQuery("SELECT id FROM models WHERE tune_id = \\$1 AND account_id = \\$2").
			WithArgs(int64(42), "user1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		for _, uri := range urls {
			mock.ExpectExec("INSERT INTO images").
				WithArgs(int64(5), int64(7), "professional headshot", uri, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))
		}

		mock.ExpectCommit()

		err := service.StoreGeneratedImages(context.Background(), "user1", 42, 7, "professional headshot", urls)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivered prompt is a no-op", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectExec("INSERT INTO webhook_events").
			WithArgs("astria-prompt", "7", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		err := service.StoreGeneratedImages(context.Background(), "user1", 42, 7, "professional headshot", urls)
		assert.ErrorIs(t, err, ErrDuplicateEvent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreditLedgerService_Balance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewCreditLedgerService(db)

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT credit_balance FROM accounts WHERE id = \\$1").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}).AddRow(750))

		balance, err := service.Balance(context.Background(), "user1")
		assert.NoError(t, err)
		assert.Equal(t, int64(750), balance)
	})

	t.Run("unknown account reads as zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT credit_balance FROM accounts WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}))

		balance, err := service.Balance(context.Background(), "ghost")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})
}
