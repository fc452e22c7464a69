package usps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tournevent/shiprates/pkg/shipper"
)

// DefaultBaseURL is the USPS production API host.
const DefaultBaseURL = "https://apis.usps.com"

const ratesPath = "/prices/v3/shipment-rates/search"

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	userID     string
	apiToken   string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL    string
	UserID     string
	APIToken   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: shipper.ResolveTimeout(cfg.Timeout),
		}
	}

	return &HTTPAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     cfg.UserID,
		apiToken:   cfg.APIToken,
		httpClient: httpClient,
	}
}

// GetRates fetches shipping rates from the USPS Prices API.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, ratesPath, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result RatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, shipper.NewParseError(carrierName, err)
	}

	return &result, nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("X-User-Id", c.userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shipper.NewTransportError(carrierName, err)
	}
	return resp, nil
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{
		Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message: strings.TrimSpace(string(body)),
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		apiErr = envelope.Error
		if apiErr.Code == "" {
			apiErr.Code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		}
	}

	return shipper.NewAdapterError(carrierName, shipper.KindTransport, "unexpected status").
		WithStatusCode(resp.StatusCode).
		WithCause(apiErr)
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
