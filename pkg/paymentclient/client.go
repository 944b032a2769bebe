/**
 * @description
 * This package provides a client for the external payment processor. The core
 * only needs one narrow capability from it: authorizing a card/funding-source
 * token before the payment method is attached to a KYC record. Processor
 * integration beyond that (charges, settlement rails) lives outside this
 * service.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package paymentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the payment processor API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment processor client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthorizeSourceRequest is the payload for a card-source authorization check.
type AuthorizeSourceRequest struct {
	Source string `json:"source"`
}

// AuthorizeSourceResponse is the processor's answer to an authorization check.
type AuthorizeSourceResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// ErrorResponse represents an error from the payment processor API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("payment api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown payment api error"
}

// AuthorizeCardSource verifies that the given funding-source token is valid and
// chargeable. It returns the processor-side source id on success.
func (c *Client) AuthorizeCardSource(ctx context.Context, source string) (string, error) {
	payload, err := json.Marshal(AuthorizeSourceRequest{Source: source})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v1/sources/authorize", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ErrorResponse
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && len(apiErr.Errors) > 0 {
			return "", &apiErr
		}
		return "", fmt.Errorf("payment api returned status %d", resp.StatusCode)
	}

	var out AuthorizeSourceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}
