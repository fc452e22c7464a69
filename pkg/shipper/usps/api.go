package usps

import (
	"context"
	"encoding/json"
)

// APIClient defines the interface for USPS Prices API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetRates fetches shipping rates for a set of packages
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
}

// ============================================================================
// API Request/Response Types (match USPS Prices JSON API structure)
// ============================================================================

// RatesRequest represents a USPS rate search request.
type RatesRequest struct {
	OriginZIPCode          string    `json:"originZIPCode"`
	DestinationZIPCode     string    `json:"destinationZIPCode,omitempty"`
	DestinationCountryCode string    `json:"destinationCountryCode"`
	MailClass              string    `json:"mailClass,omitempty"` // empty rates every mail class
	PriceType              string    `json:"priceType"`           // "RETAIL", "COMMERCIAL"
	MailingDate            string    `json:"mailingDate"`         // "2006-01-02"
	Packages               []Package `json:"packages"`
}

// Package represents one rated package. Weight is whole pounds and
// dimensions whole inches.
type Package struct {
	Weight    int    `json:"weight"`
	Length    int    `json:"length,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	ItemValue string `json:"itemValue,omitempty"`
}

// RatesResponse represents the USPS rate search response.
type RatesResponse struct {
	Rates []RateOption `json:"rates"`
}

// RateOption represents the price of one mail class.
type RateOption struct {
	MailClass   string      `json:"mailClass"`
	ProductName string      `json:"productName,omitempty"`
	TotalPrice  Amount      `json:"totalPrice"`
	Currency    string      `json:"currency,omitempty"`
	Commitment  *Commitment `json:"commitment,omitempty"`
}

// Amount is a price USPS sends either as a JSON number or as a string.
type Amount string

// UnmarshalJSON accepts both encodings without validating the value.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	if string(b) == "null" {
		*a = ""
		return nil
	}
	*a = Amount(b)
	return nil
}

// Commitment is the delivery standard USPS commits to for a mail class.
type Commitment struct {
	Name         string `json:"name,omitempty"`
	Days         int    `json:"days"`
	DeliveryTime string `json:"deliveryTime,omitempty"` // e.g. "6:00 PM"
}

// APIError represents an error from the USPS API.
type APIError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Errors  []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail is a field-level error.
type ErrorDetail struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
