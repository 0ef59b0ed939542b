package paddle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/headshotly/backend/internal/config"
)

// Price is the first price entry Paddle reports for a product.
type Price struct {
	ID           string
	AmountCents  int64
	CurrencyCode string
}

type priceResponse struct {
	Data []struct {
		ID        string `json:"id"`
		UnitPrice struct {
			Amount       string `json:"amount"`
			CurrencyCode string `json:"currency_code"`
		} `json:"unit_price"`
	} `json:"data"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.PaddleConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ProductPrice fetches the live display price for one Paddle product id.
// Amounts come back as stringified cents.
func (c *Client) ProductPrice(ctx context.Context, productID string) (*Price, error) {
	url := fmt.Sprintf("%s/prices?product_id=%s", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[PADDLE] Price request failed for %s: %v", productID, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch prices: status %d", resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("no price found for product %s", productID)
	}

	first := parsed.Data[0]
	var cents int64
	if _, err := fmt.Sscanf(first.UnitPrice.Amount, "%d", &cents); err != nil {
		return nil, fmt.Errorf("unparseable amount %q for product %s", first.UnitPrice.Amount, productID)
	}

	return &Price{
		ID:           first.ID,
		AmountCents:  cents,
		CurrencyCode: first.UnitPrice.CurrencyCode,
	}, nil
}
