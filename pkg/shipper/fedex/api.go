package fedex

import (
	"context"
)

// APIClient defines the interface for FedEx RateService operations.
// This abstraction allows for mock implementations during testing
// and real SOAP implementations in production.
type APIClient interface {
	// GetRates fetches shipping rates from the FedEx RateService
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
}

// ============================================================================
// API Request/Response Types (match FedEx RateService SOAP structure)
// ============================================================================

// RatesRequest represents a FedEx rate request.
type RatesRequest struct {
	CustomerTransactionID string
	ServiceType           string // empty rates every available service
	DropoffType           string
	PackagingType         string
	Shipper               Party
	Recipient             Party
	Packages              []PackageLineItem
}

// Party represents a shipper or recipient address.
type Party struct {
	StreetLines         []string
	City                string
	StateOrProvinceCode string
	PostalCode          string
	CountryCode         string
	Residential         bool
}

// PackageLineItem represents one requested package. Weights and dimensions
// are whole units.
type PackageLineItem struct {
	SequenceNumber int
	Weight         int
	WeightUnits    string // "LB" or "KG"
	Length         int
	Width          int
	Height         int
	DimensionUnits string // "IN" or "CM"
	InsuredAmount  string
	Currency       string
}

// HasDimensions reports whether all dimensions are set.
func (p PackageLineItem) HasDimensions() bool {
	return p.Length > 0 && p.Width > 0 && p.Height > 0
}

// RatesResponse represents the FedEx RateReply.
type RatesResponse struct {
	HighestSeverity string
	Details         []RateReplyDetail
}

// RateReplyDetail represents the rate of one service.
type RateReplyDetail struct {
	ServiceType       string
	TotalNetCharge    string
	Currency          string
	TransitTime       string // "ONE_DAY" .. "TWENTY_DAYS"
	DeliveryTimestamp string // local time at destination, "2006-01-02T15:04:05"
}

// APIError represents an error from the FedEx API.
type APIError struct {
	Severity string
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	return e.Severity + " " + e.Code + ": " + e.Message
}
