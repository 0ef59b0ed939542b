package astria

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/headshotly/backend/internal/config"
)

// Provider rejections that map to specific user-facing messages.
var (
	ErrBadWebhookURL   = errors.New("webhookUrl must be a URL address")
	ErrPaymentRequired = errors.New("training models is only available on paid plans")
)

// StatusError is returned for any other non-201 provider response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("astria returned status %d", e.StatusCode)
}

// Tune is the provider's training job as echoed back on creation and in
// the completion webhook.
type Tune struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Name  string `json:"name"`
}

// TuneRequest is the body of a tune creation call against a gallery pack.
type TuneRequest struct {
	Title            string   `json:"title"`
	Name             string   `json:"name"`
	Callback         string   `json:"callback"`
	PromptAttributes struct {
		Callback string `json:"callback"`
	} `json:"prompt_attributes"`
	ImageURLs []string `json:"image_urls"`
	Branch    string   `json:"branch"`
}

// PromptRequest generates images against a finished or in-progress tune.
type PromptRequest struct {
	TuneID         int64  `json:"tune_id"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	NumImages      int    `json:"num_images"`
	Callback       string `json:"callback"`
}

type Client struct {
	apiKey        string
	baseURL       string
	galleryPackID int
	testMode      bool
	httpClient    *http.Client
}

func NewClient(cfg *config.AstriaConfig) *Client {
	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		galleryPackID: cfg.GalleryPackID,
		testMode:      cfg.TestMode,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Branch selects the provider-side model branch: "fast" is the cheap test
// branch, "sd15" the production one.
func (c *Client) Branch() string {
	if c.testMode {
		return "fast"
	}
	return "sd15"
}

// CreateTune submits a training job. Only a 201 is acceptance; 400 and 402
// are mapped to their known causes, anything else surfaces as a StatusError.
func (c *Client) CreateTune(ctx context.Context, tune *TuneRequest) (*Tune, error) {
	body, err := json.Marshal(map[string]any{"tune": tune})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/p/%d/tunes", c.baseURL, c.galleryPackID)
	log.Printf("[ASTRIA] Creating tune %q with %d images on branch %s", tune.Title, len(tune.ImageURLs), tune.Branch)

	resp, err := c.post(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return nil, ErrBadWebhookURL
	case http.StatusPaymentRequired:
		return nil, ErrPaymentRequired
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var created Tune
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode tune response: %w", err)
	}
	return &created, nil
}

// CreatePrompt requests a batch of images for one prompt.
func (c *Client) CreatePrompt(ctx context.Context, prompt *PromptRequest) error {
	body, err := json.Marshal(prompt)
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, c.baseURL+"/api/v2/prompts", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ASTRIA] Request failed: %v", err)
		return nil, err
	}
	return resp, nil
}
