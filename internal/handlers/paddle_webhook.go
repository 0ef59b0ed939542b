package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/headshotly/backend/internal/services"
)

// PaddleWebhookHandler receives checkout events from the payment
// processor. Delivery is at-least-once; the ledger dedupes on the
// subscription id so redelivery acks without reapplying the grant.
type PaddleWebhookHandler struct {
	ledger    *services.CreditLedgerService
	validator *services.ValidationHelper
}

func NewPaddleWebhookHandler(ledger *services.CreditLedgerService) *PaddleWebhookHandler {
	return &PaddleWebhookHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

type paddleAlert struct {
	AlertName          string `json:"alert_name"`
	UserID             string `json:"user_id"`
	SubscriptionPlanID string `json:"subscription_plan_id"`
	SubscriptionID     string `json:"subscription_id"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	PaddleUnitAmount   int64  `json:"paddleUnitAmount"`
}

// HandleSubscription processes subscription_created alerts
// @Summary Paddle checkout webhook
// @Description Apply a subscription_created event to the credit ledger; other alert names are acknowledged without processing
// @Tags webhooks
// @Accept json
// @Produce json
// @Param alert body paddleAlert true "Paddle alert"
// @Success 200 {object} map[string]string
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /webhooks/paddle [post]
func (h *PaddleWebhookHandler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	var alert paddleAlert

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&alert); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if alert.AlertName != "subscription_created" {
		log.Printf("[PADDLE_WEBHOOK] Ignoring alert %q", alert.AlertName)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Webhook received, but not processed"})
		return
	}

	if alert.UserID == "" || alert.SubscriptionPlanID == "" || alert.SubscriptionID == "" {
		services.SendErrorResponse(w, "Missing required fields", http.StatusBadRequest, nil)
		return
	}

	err := h.ledger.ActivateSubscription(r.Context(), services.SubscriptionEvent{
		AccountID:      alert.UserID,
		PlanID:         alert.SubscriptionPlanID,
		SubscriptionID: alert.SubscriptionID,
		StartDate:      alert.StartDate,
		EndDate:        alert.EndDate,
		UnitAmount:     alert.PaddleUnitAmount,
	})

	switch {
	case err == nil:
		log.Printf("[PADDLE_WEBHOOK] Subscription %s activated for %s", alert.SubscriptionID, alert.UserID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Subscription processed successfully"})
	case errors.Is(err, services.ErrDuplicateEvent):
		log.Printf("[PADDLE_WEBHOOK] Duplicate delivery of subscription %s, acknowledged", alert.SubscriptionID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Webhook already processed"})
	case errors.Is(err, services.ErrPlanNotFound):
		log.Printf("[PADDLE_WEBHOOK] Unknown plan %s in subscription %s", alert.SubscriptionPlanID, alert.SubscriptionID)
		services.SendErrorResponse(w, "Error processing subscription", http.StatusInternalServerError, nil)
	default:
		log.Printf("[PADDLE_WEBHOOK] Error processing subscription %s: %v", alert.SubscriptionID, err)
		services.SendErrorResponse(w, "Error processing subscription", http.StatusInternalServerError, nil)
	}
}
