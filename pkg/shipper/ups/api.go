package ups

import (
	"context"
)

// APIClient defines the interface for UPS Rating API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetRates fetches shipping rates from the UPS Rating API
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
}

// RequestOption values of a rating request.
const (
	// OptionShop asks UPS to rate every service available for the shipment.
	OptionShop = "Shop"
	// OptionRate rates the single service named in RatesRequest.ServiceCode.
	OptionRate = "Rate"
)

// ============================================================================
// API Request/Response Types (match UPS Rating XML API structure)
// ============================================================================

// RatesRequest represents a UPS rating request.
type RatesRequest struct {
	CustomerContext string
	RequestOption   string
	ServiceCode     string
	ShipperNumber   string
	PickupType      string
	Shipper         Location
	ShipTo          Location
	Packages        []Package
}

// Location represents an address as UPS rates it.
type Location struct {
	AddressLine string
	City        string
	State       string
	PostalCode  string
	CountryCode string
	Residential bool
}

// Package represents one rated package. Weights and dimensions are whole
// units.
type Package struct {
	PackagingType string
	Length        int
	Width         int
	Height        int
	DimensionUnit string // "IN" or "CM"
	Weight        int
	WeightUnit    string // "LBS" or "KGS"
	InsuredValue  string
	Currency      string
}

// RatesResponse represents the UPS rating response.
type RatesResponse struct {
	RatedShipments []RatedShipment
}

// RatedShipment represents a single rated service.
type RatedShipment struct {
	ServiceCode              string
	TotalCharges             string
	CurrencyCode             string
	GuaranteedDaysToDelivery string
	ScheduledDeliveryTime    string
}

// APIError represents an error reported by the UPS API.
type APIError struct {
	Code        string
	Severity    string
	Description string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}
