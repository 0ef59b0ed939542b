package paddle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/headshotly/backend/internal/config"
)

func TestClient_ProductPrice(t *testing.T) {
	t.Run("parses stringified cents", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/prices", r.URL.Path)
			assert.Equal(t, "pro_basic", r.URL.Query().Get("product_id"))
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"id": "pri_basic",
					"unit_price": map[string]string{
						"amount":        "4500",
						"currency_code": "USD",
					},
				}},
			})
		}))
		defer server.Close()

		client := NewClient(&config.PaddleConfig{APIKey: "test-key", BaseURL: server.URL})

		price, err := client.ProductPrice(context.Background(), "pro_basic")
		assert.NoError(t, err)
		assert.Equal(t, "pri_basic", price.ID)
		assert.Equal(t, int64(4500), price.AmountCents)
		assert.Equal(t, "USD", price.CurrencyCode)
	})

	t.Run("empty price list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer server.Close()

		client := NewClient(&config.PaddleConfig{BaseURL: server.URL})

		_, err := client.ProductPrice(context.Background(), "pro_ghost")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no price found")
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewClient(&config.PaddleConfig{BaseURL: server.URL})

		_, err := client.ProductPrice(context.Background(), "pro_basic")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 403")
	})

	t.Run("unparseable amount", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"id": "pri_basic",
					"unit_price": map[string]string{
						"amount":        "forty-five",
						"currency_code": "USD",
					},
				}},
			})
		}))
		defer server.Close()

		client := NewClient(&config.PaddleConfig{BaseURL: server.URL})

		_, err := client.ProductPrice(context.Background(), "pro_basic")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unparseable amount")
	})
}
