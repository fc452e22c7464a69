package ups

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
		return nil, &APIError{Code: "MOCK_ERROR", Severity: "Hard", Description: "Simulated API error"}
	}

	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	shipments := []RatedShipment{
		{
			ServiceCode:  "03",
			TotalCharges: "15.82",
			CurrencyCode: "USD",
		},
		{
			ServiceCode:              "12",
			TotalCharges:             "28.40",
			CurrencyCode:             "USD",
			GuaranteedDaysToDelivery: "3",
		},
		{
			ServiceCode:              "02",
			TotalCharges:             "42.50",
			CurrencyCode:             "USD",
			GuaranteedDaysToDelivery: "2",
		},
		{
			ServiceCode:              "01",
			TotalCharges:             "89.10",
			CurrencyCode:             "USD",
			GuaranteedDaysToDelivery: "1",
			ScheduledDeliveryTime:    "10:30 A.M.",
		},
	}

	if req.RequestOption == OptionRate && req.ServiceCode != "" {
		for _, s := range shipments {
			if s.ServiceCode == req.ServiceCode {
				return &RatesResponse{RatedShipments: []RatedShipment{s}}, nil
			}
		}
		return &RatesResponse{}, nil
	}

	return &RatesResponse{RatedShipments: shipments}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
