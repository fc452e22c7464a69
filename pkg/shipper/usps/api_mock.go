package usps

import (
	"context"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetRates func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetRates returns mock shipping rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	var rates []RateOption
	if req.DestinationCountryCode == "" || req.DestinationCountryCode == "US" {
		rates = []RateOption{
			{MailClass: "USPS_GROUND_ADVANTAGE", TotalPrice: "10.00"},
			{MailClass: "MEDIA_MAIL", TotalPrice: "7.20"},
			{MailClass: "PRIORITY_MAIL", TotalPrice: "18.75", Commitment: &Commitment{Name: "2-Day", Days: 2}},
			{MailClass: "PRIORITY_MAIL_EXPRESS", TotalPrice: "52.10", Commitment: &Commitment{Name: "1-Day", Days: 1, DeliveryTime: "6:00 PM"}},
		}
	} else {
		rates = []RateOption{
			{MailClass: "FIRST-CLASS_PACKAGE_INTERNATIONAL_SERVICE", TotalPrice: "38.90"},
			{MailClass: "PRIORITY_MAIL_INTERNATIONAL", TotalPrice: "71.35", Commitment: &Commitment{Days: 10}},
			{MailClass: "PRIORITY_MAIL_EXPRESS_INTERNATIONAL", TotalPrice: "96.60", Commitment: &Commitment{Days: 5}},
		}
	}

	if req.MailClass != "" {
		for _, r := range rates {
			if r.MailClass == req.MailClass {
				return &RatesResponse{Rates: []RateOption{r}}, nil
			}
		}
		return &RatesResponse{}, nil
	}

	return &RatesResponse{Rates: rates}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
