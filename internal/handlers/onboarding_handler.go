package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	mW "github.com/headshotly/backend/internal/middleware"
	"github.com/headshotly/backend/internal/models"
	"github.com/headshotly/backend/internal/services"
)

type OnboardingHandler struct {
	service   *services.OnboardingService
	validator *services.ValidationHelper
}

func NewOnboardingHandler(service *services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GetState returns wizard progress
// @Summary Get onboarding state
// @Description Current wizard step and saved style preferences
// @Tags onboarding
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.WizardState
// @Failure 401 {object} services.ErrorResponse
// @Router /onboarding/state [get]
func (h *OnboardingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	state, err := h.service.State(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch onboarding state", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// Advance moves the wizard to a step
// @Summary Advance the wizard
// @Description Move to the given step; backward moves are free, forward moves are limited to the next step
// @Tags onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{step=string} true "Target step"
// @Success 200 {object} services.WizardState
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /onboarding/advance [post]
func (h *OnboardingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Step string `json:"step" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	state, err := h.service.Advance(r.Context(), userID, req.Step)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// UpsertPreferences saves wizard selections
// @Summary Save style preferences
// @Description Upsert the wizard's model type, style, eye color and hair color selections
// @Tags onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{modelType=string,style=string,eyeColor=string,hairColor=string} true "Style preferences"
// @Success 200 {object} map[string]string
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /onboarding/preferences [put]
func (h *OnboardingHandler) UpsertPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		ModelType string `json:"modelType" validate:"required,oneof=man woman unisex"`
		Style     string `json:"style" validate:"required"`
		EyeColor  string `json:"eyeColor"`
		HairColor string `json:"hairColor"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	err := h.service.UpsertPreferences(r.Context(), &models.StylePreferences{
		AccountID: userID,
		ModelType: req.ModelType,
		Style:     req.Style,
		EyeColor:  req.EyeColor,
		HairColor: req.HairColor,
	})
	if err != nil {
		services.SendErrorResponse(w, "Failed to save preferences", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "success"})
}
