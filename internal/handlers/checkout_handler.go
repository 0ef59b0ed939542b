package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	mW "github.com/headshotly/backend/internal/middleware"
	"github.com/headshotly/backend/internal/services"
)

type CheckoutHandler struct {
	service   *services.CheckoutService
	validator *services.ValidationHelper
}

func NewCheckoutHandler(service *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateQR generates a checkout QR code
// @Summary Generate checkout QR
// @Description Build the hosted checkout URL for a plan and return it with a QR code image
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{planId=string} true "Checkout QR request"
// @Success 200 {object} object{checkoutUrl=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /checkout/qr [post]
func (h *CheckoutHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := mW.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		PlanID string `json:"planId" validate:"required"`
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

	checkoutURL, qrImage, err := h.service.GenerateCheckoutQR(r.Context(), userID, req.PlanID)
	if err != nil {
		if errors.Is(err, services.ErrPlanNotFound) {
			services.SendErrorResponse(w, "Plan not found", http.StatusNotFound, nil)
			return
		}
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"checkoutUrl": checkoutURL,
		"qrImage":     qrImage,
	})
}

// ResolveSession resolves a checkout nonce
// @Summary Resolve checkout session
// @Description Consume the nonce from a completed checkout and return the session that started it
// @Tags checkout
// @Produce json
// @Security BearerAuth
// @Param nonce path string true "Checkout nonce"
// @Success 200 {object} map[string]any
// @Failure 404 {object} services.ErrorResponse
// @Router /checkout/session/{nonce} [get]
func (h *CheckoutHandler) ResolveSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := mW.UserID(r.Context()); !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	session, err := h.service.ResolveCheckoutSession(r.Context(), chi.URLParam(r, "nonce"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid or expired checkout session", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}
