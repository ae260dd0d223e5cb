package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxaria/voxpremium/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient is a minimal Stripe REST client covering checkout session
// creation. It is never called while a database transaction is open.
type StripeClient struct {
	APIKey  string
	PriceID string
	Domain  string

	APIBaseURL string
	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		APIKey:     strings.TrimSpace(env.GetEnv("STRIPE_API_KEY", "")),
		PriceID:    strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
		Domain:     strings.TrimRight(env.GetEnv("DOMAIN", "http://localhost:5173"), "/"),
		APIBaseURL: strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession opens a subscription checkout for one slot and
// returns the hosted payment page URL. The Discord id travels in metadata so
// the completed-checkout webhook can attribute the purchase.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, discordUserID string, customerID *string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("STRIPE_API_KEY is not configured")
	}
	if c.PriceID == "" {
		return "", errors.New("STRIPE_PRICE_ID is not configured")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", c.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.Domain+"/dashboard/premium?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", c.Domain+"/dashboard/premium")
	form.Set("metadata[discord_id]", discordUserID)
	form.Set("subscription_data[metadata][discord_id]", discordUserID)
	if customerID != nil && *customerID != "" {
		form.Set("customer", *customerID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.APIBaseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stripe checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr stripeErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("stripe checkout failed (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("stripe checkout failed with status %d", resp.StatusCode)
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("decoding stripe checkout response: %w", err)
	}
	if session.URL == "" {
		return "", errors.New("stripe checkout response had no url")
	}
	return session.URL, nil
}
