package fedex

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
		return nil, &APIError{Severity: "ERROR", Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	details := []RateReplyDetail{
		{
			ServiceType:    "FEDEX_GROUND",
			TotalNetCharge: "16.40",
			Currency:       "USD",
			TransitTime:    "FOUR_DAYS",
		},
		{
			ServiceType:    "FEDEX_EXPRESS_SAVER",
			TotalNetCharge: "31.05",
			Currency:       "USD",
			TransitTime:    "THREE_DAYS",
		},
		{
			ServiceType:    "FEDEX_2_DAY",
			TotalNetCharge: "44.75",
			Currency:       "USD",
			TransitTime:    "TWO_DAYS",
		},
		{
			ServiceType:       "PRIORITY_OVERNIGHT",
			TotalNetCharge:    "92.30",
			Currency:          "USD",
			DeliveryTimestamp: time.Now().AddDate(0, 0, 1).Format("2006-01-02") + "T10:30:00",
		},
	}

	if req.ServiceType != "" {
		for _, d := range details {
			if d.ServiceType == req.ServiceType {
				return &RatesResponse{HighestSeverity: "SUCCESS", Details: []RateReplyDetail{d}}, nil
			}
		}
		return &RatesResponse{HighestSeverity: "SUCCESS"}, nil
	}

	return &RatesResponse{HighestSeverity: "SUCCESS", Details: details}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
