package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"

	"github.com/headshotly/backend/internal/config"
)

// CheckoutService builds hosted-checkout links and the QR codes the
// pricing page renders for them. The nonce keyed in Redis lets the return
// page tie a completed checkout back to the session that started it.
type CheckoutService struct {
	db     *sql.DB
	redis  *redis.Client
	ledger *CreditLedgerService

	checkoutBaseURL string
}

func NewCheckoutService(db *sql.DB, redisClient *redis.Client, ledger *CreditLedgerService, cfg *config.PaddleConfig) *CheckoutService {
	return &CheckoutService{
		db:              db,
		redis:           redisClient,
		ledger:          ledger,
		checkoutBaseURL: cfg.CheckoutBaseURL,
	}
}

// GenerateCheckoutQR resolves a plan to its hosted checkout URL and
// returns the URL plus a base64 QR PNG of it.
func (s *CheckoutService) GenerateCheckoutQR(ctx context.Context, userID, planID string) (string, string, error) {
	plan, err := s.ledger.GetPlan(ctx, planID)
	if err != nil {
		return "", "", err
	}

	nonce := s.generateNonce()
	checkoutURL := fmt.Sprintf("%s?product=%s&passthrough=%s", s.checkoutBaseURL, plan.PaddleProductID, nonce)

	if s.redis != nil {
		session := map[string]any{
			"userId":    userID,
			"planId":    planID,
			"timestamp": time.Now().Unix(),
		}
		data, err := json.Marshal(session)
		if err != nil {
			return "", "", err
		}
		key := fmt.Sprintf("checkout:%s", nonce)
		if err := s.redis.Set(ctx, key, data, 5*time.Minute).Err(); err != nil {
			return "", "", err
		}
	}

	qr, err := qrcode.New(checkoutURL, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return checkoutURL, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ResolveCheckoutSession returns and consumes the session behind a
// checkout nonce.
func (s *CheckoutService) ResolveCheckoutSession(ctx context.Context, nonce string) (map[string]any, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("checkout sessions unavailable")
	}

	key := fmt.Sprintf("checkout:%s", nonce)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired checkout session")
	}
	if err != nil {
		return nil, err
	}

	var session map[string]any
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)
	return session, nil
}

func (s *CheckoutService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
