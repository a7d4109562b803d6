package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"localpro/internal/config"
	"localpro/internal/models"

	"github.com/rs/zerolog"
)

// Client fetches provider access windows from the billing subsystem over
// HTTP. Results are deliberately not cached: subscription state can change
// between calls and a stale window would either lock a paying provider out
// or let a lapsed trial through.
type Client struct {
	baseURL          string
	apiKey           string
	httpClient       *http.Client
	defaultTrialDays int
	logger           *zerolog.Logger
}

func NewClient(cfg config.BillingConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	trialDays := cfg.DefaultTrialDays
	if trialDays <= 0 {
		trialDays = models.DefaultTrialDays
	}
	return &Client{
		baseURL:          cfg.BaseURL,
		apiKey:           cfg.APIKey,
		httpClient:       &http.Client{Timeout: timeout},
		defaultTrialDays: trialDays,
		logger:           logger,
	}
}

// accessWindowResponse is the billing wire format.
type accessWindowResponse struct {
	HasPaidPlan       bool      `json:"has_paid_plan"`
	TrialStartedAt    time.Time `json:"trial_started_at"`
	TrialDurationDays int       `json:"trial_duration_days"`
}

// GetAccessWindow returns the provider's current window. Billing reporting a
// trial without a duration gets the configured default.
func (c *Client) GetAccessWindow(ctx context.Context, providerID int64) (models.AccessWindow, error) {
	url := fmt.Sprintf("%s/v1/providers/%d/access-window", c.baseURL, providerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.AccessWindow{}, fmt.Errorf("build billing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.AccessWindow{}, fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.AccessWindow{}, fmt.Errorf("billing returned status %d for provider %d", resp.StatusCode, providerID)
	}

	var body accessWindowResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.AccessWindow{}, fmt.Errorf("decode billing response: %w", err)
	}

	win := models.AccessWindow{
		HasPaidPlan:       body.HasPaidPlan,
		TrialStartedAt:    body.TrialStartedAt,
		TrialDurationDays: body.TrialDurationDays,
	}
	if !win.HasPaidPlan && win.TrialDurationDays == 0 {
		win.TrialDurationDays = c.defaultTrialDays
	}
	return win, nil
}
