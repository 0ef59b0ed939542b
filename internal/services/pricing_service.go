package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/headshotly/backend/internal/models"
	"github.com/headshotly/backend/internal/paddle"
)

// ProductDetails is static presentation data for the checkout page.
type ProductDetails struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// Checkout copy per Paddle price id. Kept local so the checkout page
// renders even when the processor is down.
var productCatalog = map[string]ProductDetails{
	"pri_01j6w1gr39da9p41rymadfde5q": {
		Name:        "Starter Plan",
		Price:       "$35.00",
		Description: "20 high-quality headshots, 2-hour processing time, 5 outfits and backgrounds",
	},
	"pri_01j6wfjbgevsc47sv22ja6qq60": {
		Name:        "Basic Plan",
		Price:       "$45.00",
		Description: "60 high-quality headshots, 1-hour processing time, 20 outfits and backgrounds",
	},
	"pri_01j6wfs9rsv8xcbgcz9jwtx146": {
		Name:        "Premium Plan",
		Price:       "$75.00",
		Description: "100 high-quality headshots, 30-min processing time, 40 outfits and backgrounds",
	},
}

type PricingService struct {
	db        *sql.DB
	paddle    *paddle.Client
	validator *ValidationHelper
}

func NewPricingService(db *sql.DB, paddleClient *paddle.Client) *PricingService {
	return &PricingService{
		db:        db,
		paddle:    paddleClient,
		validator: NewValidationHelper(),
	}
}

// GetLivePrices merges stored plans with live Paddle prices
// @Summary Get live plan prices
// @Description Merge stored plan metadata with live processor prices; a failed lookup degrades to the plan's default price with an inline error
// @Tags pricing
// @Accept json
// @Produce json
// @Param request body object{productIds=[]string} true "Paddle product ids"
// @Success 200 {array} models.PricedPlan
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /pricing/prices [post]
func (ps *PricingService) GetLivePrices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []string `json:"productIds" validate:"required,min=1"`
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

	if err := ps.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	plans, err := ps.fetchPlansByProduct(req.ProductIDs)
	if err != nil {
		log.Printf("[PRICING] Failed to fetch plans: %v", err)
		SendErrorResponse(w, "Failed to fetch plans from database", http.StatusInternalServerError, nil)
		return
	}

	priced := make([]models.PricedPlan, 0, len(plans))
	for _, plan := range plans {
		priced = append(priced, ps.priceOne(r, plan))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(priced)
}

// priceOne fetches one live price, falling back to the stored default on
// any failure so a single bad product never fails the whole page.
func (ps *PricingService) priceOne(r *http.Request, plan models.Plan) models.PricedPlan {
	result := models.PricedPlan{Plan: plan}

	price, err := ps.paddle.ProductPrice(r.Context(), plan.PaddleProductID)
	if err != nil {
		log.Printf("[PRICING] Error fetching data for product %s: %v", plan.PaddleProductID, err)
		result.PriceInUSD = centsToDisplay(plan.DefaultPrice)
		result.CurrencyCode = "USD"
		result.Error = fmt.Sprintf("Failed to fetch price: %v", err)
		return result
	}

	result.PriceInUSD = centsToDisplay(price.AmountCents)
	result.CurrencyCode = price.CurrencyCode
	result.PaddlePriceID = price.ID
	return result
}

// GetProductDetails looks up static checkout copy for a price id
// @Summary Get product details
// @Description Static name/price/description for a Paddle price id
// @Tags pricing
// @Produce json
// @Param priceId query string true "Paddle price ID"
// @Success 200 {object} services.ProductDetails
// @Failure 400 {object} services.ErrorResponse
// @Router /pricing/products [get]
func (ps *PricingService) GetProductDetails(w http.ResponseWriter, r *http.Request) {
	priceID := r.URL.Query().Get("priceId")

	details, ok := productCatalog[priceID]
	if !ok {
		SendErrorResponse(w, "Invalid or missing priceId", http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

// ListPlans returns the stored plan catalog
// @Summary List plans
// @Description All purchasable plans with their credit grants
// @Tags pricing
// @Produce json
// @Success 200 {array} models.Plan
// @Failure 500 {object} services.ErrorResponse
// @Router /pricing/plans [get]
func (ps *PricingService) ListPlans(w http.ResponseWriter, r *http.Request) {
	rows, err := ps.db.QueryContext(r.Context(), `
		SELECT id, name, description, paddle_product_id, default_price, total_credits, training_cost, created_at
		FROM plans
		ORDER BY default_price`)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch plans", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PaddleProductID,
			&p.DefaultPrice, &p.TotalCredits, &p.TrainingCost, &p.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch plans", http.StatusInternalServerError, nil)
			return
		}
		plans = append(plans, p)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	json.NewEncoder(w).Encode(plans)
}

func (ps *PricingService) fetchPlansByProduct(productIDs []string) ([]models.Plan, error) {
	rows, err := ps.db.Query(`
		SELECT id, name, description, paddle_product_id, default_price, total_credits, training_cost, created_at
		FROM plans
		WHERE paddle_product_id = ANY($1)`, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PaddleProductID,
			&p.DefaultPrice, &p.TotalCredits, &p.TrainingCost, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func centsToDisplay(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
