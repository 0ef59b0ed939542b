package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/headshotly/backend/internal/config"
)

func TestCheckoutService_GenerateCheckoutQR(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	service := NewCheckoutService(db, redisClient, NewCreditLedgerService(db),
		&config.PaddleConfig{CheckoutBaseURL: "https://pay.paddle.com/checkout"})

	t.Run("known plan", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, description, paddle_product_id, default_price, total_credits, training_cost, created_at FROM plans WHERE id = \\$1").
			WithArgs("basic").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "paddle_product_id",
				"default_price", "total_credits", "training_cost", "created_at"}).
				AddRow("basic", "Basic Plan", "60 headshots", "pro_basic", 4500, 1000, 250, time.Now()))

		redisMock.Regexp().ExpectSet(`checkout:.+`, `.+`, 5*time.Minute).SetVal("OK")

		checkoutURL, qrImage, err := service.GenerateCheckoutQR(context.Background(), "user1", "basic")
		assert.NoError(t, err)
		assert.Contains(t, checkoutURL, "https://pay.paddle.com/checkout?product=pro_basic&passthrough=")

		// The QR payload is a valid base64 PNG
		raw, err := base64.StdEncoding.DecodeString(qrImage)
		assert.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), raw[:4])

		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("unknown plan", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, description, paddle_product_id, default_price, total_credits, training_cost, created_at FROM plans WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "paddle_product_id",
				"default_price", "total_credits", "training_cost", "created_at"}))

		_, _, err := service.GenerateCheckoutQR(context.Background(), "user1", "ghost")
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})
}

func TestCheckoutService_ResolveCheckoutSession(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	service := NewCheckoutService(db, redisClient, NewCreditLedgerService(db),
		&config.PaddleConfig{CheckoutBaseURL: "https://pay.paddle.com/checkout"})

	t.Run("session consumed on resolve", func(t *testing.T) {
		redisMock.ExpectGet("checkout:nonce1").SetVal(`{"userId":"user1","planId":"basic","timestamp":1700000000}`)
		redisMock.ExpectDel("checkout:nonce1").SetVal(1)

		session, err := service.ResolveCheckoutSession(context.Background(), "nonce1")
		assert.NoError(t, err)
		assert.Equal(t, "user1", session["userId"])
		assert.Equal(t, "basic", session["planId"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("expired session", func(t *testing.T) {
		redisMock.ExpectGet("checkout:stale").RedisNil()

		_, err := service.ResolveCheckoutSession(context.Background(), "stale")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired checkout session")
	})
}
