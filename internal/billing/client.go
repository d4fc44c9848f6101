package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient habla con la API REST del proveedor de facturación.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient crea el cliente con un timeout acotado para no bloquear
// handlers detrás de un proveedor lento.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionResponse struct {
	URL string `json:"url"`
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	return c.createSession(ctx, "/v1/checkout/sessions", map[string]string{
		"user_id":     in.UserID,
		"email":       in.Email,
		"plan_id":     in.PlanID,
		"success_url": in.SuccessURL,
		"cancel_url":  in.CancelURL,
	})
}

func (c *HTTPClient) CreatePortalSession(ctx context.Context, in PortalInput) (string, error) {
	return c.createSession(ctx, "/v1/portal/sessions", map[string]string{
		"customer_id": in.CustomerID,
		"return_url":  in.ReturnURL,
	})
}

func (c *HTTPClient) createSession(ctx context.Context, path string, payload map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("billing: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("billing: %s: status %d", path, resp.StatusCode)
	}
	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("billing: %s: decode: %w", path, err)
	}
	if sr.URL == "" {
		return "", fmt.Errorf("billing: %s: respuesta sin url", path)
	}
	return sr.URL, nil
}
