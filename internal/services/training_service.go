package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/headshotly/backend/internal/astria"
	"github.com/headshotly/backend/internal/audit"
	"github.com/headshotly/backend/internal/config"
	mW "github.com/headshotly/backend/internal/middleware"
	"github.com/headshotly/backend/internal/models"
)

// The five standard headshot prompts fired for every new tune.
var headshotPrompts = []string{
	"A professional headshot in a business setting",
	"A casual portrait in natural lighting",
	"An artistic black and white portrait",
	"A cheerful outdoor portrait",
	"A dramatic studio portrait with moody lighting",
}

const imagesPerPrompt = 4

type TrainingService struct {
	db        *sql.DB
	ledger    *CreditLedgerService
	provider  *astria.Client
	validator *ValidationHelper
	audit     *audit.Logger

	siteURL       string
	webhookSecret string
}

func NewTrainingService(db *sql.DB, ledger *CreditLedgerService, provider *astria.Client, appCfg *config.AppConfig) *TrainingService {
	return &TrainingService{
		db:            db,
		ledger:        ledger,
		provider:      provider,
		validator:     NewValidationHelper(),
		audit:         audit.NewLogger(),
		siteURL:       appCfg.SiteURL,
		webhookSecret: appCfg.WebhookSecret,
	}
}

// SubmitTraining kicks off a training run
// @Summary Submit a model training run
// @Description Validate photos and credits, submit a tune to the training provider and debit the training cost
// @Tags models
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{urls=[]string,type=string,name=string} true "Training request"
// @Success 200 {object} object{message=string,modelId=int64}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /models/train [post]
func (ts *TrainingService) SubmitTraining(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		URLs []string `json:"urls" validate:"required"`
		Type string   `json:"type" validate:"required"`
		Name string   `json:"name" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if len(req.URLs) < 4 {
		SendErrorResponse(w, "Upload at least 4 sample images", http.StatusBadRequest, nil)
		return
	}

	// Credit check before any external call. The lock-protected debit
	// below re-checks, so a racing submission cannot overdraw.
	balance, err := ts.ledger.Balance(r.Context(), userID)
	if err != nil {
		log.Printf("[TRAINING] Failed to check credits for %s: %v", userID, err)
		SendErrorResponse(w, "Error checking credits", http.StatusInternalServerError, nil)
		return
	}

	if balance < TrainingCredits {
		SendErrorResponse(w, fmt.Sprintf("Not enough credits. You need %d credits, but you have %d.", TrainingCredits, balance),
			http.StatusBadRequest, nil)
		return
	}

	tuneReq := &astria.TuneRequest{
		Title:     req.Name,
		Name:      req.Type,
		Callback:  ts.callbackURL("train", userID),
		ImageURLs: req.URLs,
		Branch:    ts.provider.Branch(),
	}
	tuneReq.PromptAttributes.Callback = ts.callbackURL("prompt", userID)

	tune, err := ts.provider.CreateTune(r.Context(), tuneReq)
	if err != nil {
		ts.respondProviderError(w, userID, err)
		return
	}

	modelID, newBalance, err := ts.persistSubmission(r.Context(), userID, tune, req.Name, req.Type, req.URLs)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			SendErrorResponse(w, fmt.Sprintf("Not enough credits. You need %d credits, but you have %d.", TrainingCredits, newBalance),
				http.StatusBadRequest, nil)
			return
		}
		log.Printf("[TRAINING] Failed to persist submission for %s: %v", userID, err)
		ts.audit.LogError(strconv.FormatInt(tune.ID, 10), userID, err)
		SendErrorResponse(w, "Error saving model", http.StatusInternalServerError, nil)
		return
	}

	// Prompt failures are logged and not fatal: the images are regenerated
	// from the provider dashboard when a prompt is lost.
	ts.firePrompts(r.Context(), userID, tune.ID)

	log.Printf("[TRAINING] Tune %d submitted for %s, model %d, balance %d", tune.ID, userID, modelID, newBalance)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message": "success",
		"modelId": modelID,
	})
}

// persistSubmission stores the accepted tune and debits its cost in one
// database transaction.
func (ts *TrainingService) persistSubmission(ctx context.Context, userID string, tune *astria.Tune, name, modelType string, urls []string) (int64, int64, error) {
	tx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	var modelID int64
	err = tx.QueryRow(`
		INSERT INTO models (account_id, tune_id, name, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		userID, tune.ID, name, modelType, models.ModelStatusProcessing, now).Scan(&modelID)
	if err != nil {
		return 0, 0, err
	}

	for _, uri := range urls {
		if _, err := tx.Exec(`
			INSERT INTO samples (model_id, uri) VALUES ($1, $2)`, modelID, uri); err != nil {
			return 0, 0, err
		}
	}

	newBalance, err := ts.ledger.DebitTrainingTx(tx, userID, TrainingCredits, strconv.FormatInt(modelID, 10))
	if err != nil {
		return 0, newBalance, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return modelID, newBalance, nil
}

func (ts *TrainingService) firePrompts(ctx context.Context, userID string, tuneID int64) {
	callback := ts.callbackURL("prompt", userID)
	for _, prompt := range headshotPrompts {
		err := ts.provider.CreatePrompt(ctx, &astria.PromptRequest{
			TuneID:         tuneID,
			Prompt:         prompt,
			NegativePrompt: "Blurry, low quality, distorted features",
			NumImages:      imagesPerPrompt,
			Callback:       callback,
		})
		if err != nil {
			log.Printf("[TRAINING] Error generating prompt for tune %d: %v", tuneID, err)
		}
	}
}

func (ts *TrainingService) callbackURL(kind, userID string) string {
	return fmt.Sprintf("%s/webhooks/astria/%s?user_id=%s&webhook_secret=%s",
		ts.siteURL, kind, userID, ts.webhookSecret)
}

func (ts *TrainingService) respondProviderError(w http.ResponseWriter, userID string, err error) {
	log.Printf("[TRAINING] Provider rejected submission for %s: %v", userID, err)

	switch {
	case errors.Is(err, astria.ErrBadWebhookURL):
		SendErrorResponse(w, "webhookUrl must be a URL address", http.StatusBadRequest, nil)
	case errors.Is(err, astria.ErrPaymentRequired):
		SendErrorResponse(w, "Training models is only available on paid plans.", http.StatusPaymentRequired, nil)
	default:
		var statusErr *astria.StatusError
		if errors.As(err, &statusErr) {
			SendErrorResponse(w, "Error creating model", statusErr.StatusCode, nil)
			return
		}
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

// ListModels lists the caller's models
// @Summary List models
// @Description List the authenticated user's training jobs, newest first
// @Tags models
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{models=[]models.Model,count=int}
// @Failure 401 {object} services.ErrorResponse
// @Router /models [get]
func (ts *TrainingService) ListModels(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := ts.db.QueryContext(r.Context(), `
		SELECT id, account_id, tune_id, name, type, status, created_at, updated_at
		FROM models
		WHERE account_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch models", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	list := []models.Model{}
	for rows.Next() {
		var m models.Model
		if err := rows.Scan(&m.ID, &m.AccountID, &m.TuneID, &m.Name, &m.Type,
			&m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch models", http.StatusInternalServerError, nil)
			return
		}
		list = append(list, m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"models": list,
		"count":  len(list),
	})
}

// GetModel fetches one model with its generated images
// @Summary Get model by id
// @Description Fetch a single model and its generated headshots
// @Tags models
// @Produce json
// @Security BearerAuth
// @Param modelId path int true "Model ID"
// @Success 200 {object} object{model=models.Model,images=[]models.Image}
// @Failure 404 {object} services.ErrorResponse
// @Router /models/{modelId} [get]
func (ts *TrainingService) GetModel(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	modelID, err := strconv.ParseInt(chi.URLParam(r, "modelId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid model id", http.StatusBadRequest, nil)
		return
	}

	var m models.Model
	err = ts.db.QueryRowContext(r.Context(), `
		SELECT id, account_id, tune_id, name, type, status, created_at, updated_at
		FROM models
		WHERE id = $1 AND account_id = $2`, modelID, userID).
		Scan(&m.ID, &m.AccountID, &m.TuneID, &m.Name, &m.Type, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Model not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		SendErrorResponse(w, "Failed to fetch model", http.StatusInternalServerError, nil)
		return
	}

	rows, err := ts.db.QueryContext(r.Context(), `
		SELECT id, model_id, prompt_id, prompt, uri, created_at
		FROM images
		WHERE model_id = $1
		ORDER BY created_at`, modelID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch images", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.ModelID, &img.PromptID, &img.Prompt, &img.URI, &img.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch images", http.StatusInternalServerError, nil)
			return
		}
		images = append(images, img)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"model":  m,
		"images": images,
	})
}
