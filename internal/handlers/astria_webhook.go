package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/headshotly/backend/internal/config"
	"github.com/headshotly/backend/internal/mailer"
	"github.com/headshotly/backend/internal/services"
)

// AstriaWebhookHandler receives training-completion and prompt callbacks
// from the image provider. Both are authorized by the shared secret in
// the callback query string, checked before anything is read or written.
type AstriaWebhookHandler struct {
	ledger *services.CreditLedgerService
	mailer *mailer.Mailer

	webhookSecret string
}

func NewAstriaWebhookHandler(ledger *services.CreditLedgerService, mail *mailer.Mailer, appCfg *config.AppConfig) *AstriaWebhookHandler {
	return &AstriaWebhookHandler{
		ledger:        ledger,
		mailer:        mail,
		webhookSecret: appCfg.WebhookSecret,
	}
}

// authorize validates the shared secret and extracts the user id. The
// secret compare is case-insensitive, matching what the provider echoes
// back from the callback URL.
func (h *AstriaWebhookHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("user_id")
	secret := r.URL.Query().Get("webhook_secret")

	if !strings.EqualFold(secret, h.webhookSecret) || userID == "" {
		services.SendErrorResponse(w, "Unauthorized or missing user ID", http.StatusUnauthorized, nil)
		return "", false
	}
	return userID, true
}

// HandleTrainingComplete marks a tune finished
// @Summary Training-completion webhook
// @Description Mark the model finished and notify the user; duplicate deliveries for the same tune are acknowledged without mutation
// @Tags webhooks
// @Accept json
// @Produce json
// @Param user_id query string true "Account ID"
// @Param webhook_secret query string true "Shared webhook secret"
// @Success 200 {object} map[string]string
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /webhooks/astria/train [post]
func (h *AstriaWebhookHandler) HandleTrainingComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var payload struct {
		Tune struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"tune"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	err := h.ledger.CompleteTraining(r.Context(), userID, payload.Tune.ID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrDuplicateEvent):
		log.Printf("[ASTRIA_WEBHOOK] Duplicate delivery for tune %d, acknowledged", payload.Tune.ID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Webhook already processed"})
		return
	default:
		log.Printf("[ASTRIA_WEBHOOK] Error completing training for tune %d: %v", payload.Tune.ID, err)
		services.SendErrorResponse(w, "Something went wrong!", http.StatusInternalServerError, nil)
		return
	}

	// Notification is best effort; the reconciliation already committed.
	if email, err := h.ledger.AccountEmail(r.Context(), userID); err == nil {
		h.mailer.SendTrainingComplete(email, services.TrainingCredits)
	}

	log.Printf("[ASTRIA_WEBHOOK] Tune %d finished for %s", payload.Tune.ID, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "success"})
}

// HandlePromptComplete stores generated headshots
// @Summary Prompt-completion webhook
// @Description Persist the image URLs generated for one prompt; duplicate deliveries are acknowledged without mutation
// @Tags webhooks
// @Accept json
// @Produce json
// @Param user_id query string true "Account ID"
// @Param webhook_secret query string true "Shared webhook secret"
// @Success 200 {object} map[string]string
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /webhooks/astria/prompt [post]
func (h *AstriaWebhookHandler) HandlePromptComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var payload struct {
		Prompt struct {
			ID     int64    `json:"id"`
			Text   string   `json:"text"`
			TuneID int64    `json:"tune_id"`
			Images []string `json:"images"`
		} `json:"prompt"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	err := h.ledger.StoreGeneratedImages(r.Context(), userID,
		payload.Prompt.TuneID, payload.Prompt.ID, payload.Prompt.Text, payload.Prompt.Images)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrDuplicateEvent):
		log.Printf("[ASTRIA_WEBHOOK] Duplicate delivery for prompt %d, acknowledged", payload.Prompt.ID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Webhook already processed"})
		return
	default:
		log.Printf("[ASTRIA_WEBHOOK] Error storing images for prompt %d: %v", payload.Prompt.ID, err)
		services.SendErrorResponse(w, "Something went wrong!", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[ASTRIA_WEBHOOK] Stored %d images for prompt %d (tune %d)",
		len(payload.Prompt.Images), payload.Prompt.ID, payload.Prompt.TuneID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "success"})
}
