package shipper

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightLB WeightUnit = "lb"
	WeightKG WeightUnit = "kg"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionIN DimensionUnit = "in"
	DimensionCM DimensionUnit = "cm"
)

// Address represents a shipping address.
type Address struct {
	Line1         string
	Line2         string
	City          string
	State         string // state, province or region code, e.g. "NY", "ON"
	PostalCode    string
	CountryCode   string // ISO 3166-1 alpha-2, e.g. "US", "CA"
	IsResidential bool
}

// NewAddress creates an address with a normalized country code.
func NewAddress(city, state, postalCode, countryCode string) Address {
	return Address{
		City:        strings.TrimSpace(city),
		State:       strings.TrimSpace(state),
		PostalCode:  strings.TrimSpace(postalCode),
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
	}
}

// Validate checks the country code and the postal code requirement of
// countries whose carriers rate by postal code.
func (a Address) Validate() error {
	country := strings.ToUpper(strings.TrimSpace(a.CountryCode))
	if !IsCountryCode(country) {
		return fmt.Errorf("%w: unknown country code %q", ErrInvalidAddress, a.CountryCode)
	}
	if RequiresPostalCode(country) && strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("%w: postal code is required for %s", ErrInvalidAddress, country)
	}
	return nil
}

// IsDomestic reports whether the address is in the given country.
func (a Address) IsDomestic(countryCode string) bool {
	return strings.EqualFold(a.CountryCode, countryCode)
}

// RequiresPostalCode reports whether rating into or out of the country needs
// a postal code.
func RequiresPostalCode(countryCode string) bool {
	switch strings.ToUpper(countryCode) {
	case "US", "CA":
		return true
	default:
		return false
	}
}

// Package represents a package to be shipped. The precise measurements are
// retained; carriers are sent the rounded views.
type Package struct {
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit DimensionUnit
	Weight        float64
	WeightUnit    WeightUnit
	InsuredValue  decimal.Decimal
	Description   string
}

// NewPackage creates a package measured in inches and pounds.
func NewPackage(length, width, height, weight float64, insuredValue decimal.Decimal) Package {
	return Package{
		Length:        length,
		Width:         width,
		Height:        height,
		DimensionUnit: DimensionIN,
		Weight:        weight,
		WeightUnit:    WeightLB,
		InsuredValue:  insuredValue,
	}
}

// Validate checks that weight is positive and no measurement is negative.
func (p Package) Validate() error {
	if p.Weight <= 0 || math.IsNaN(p.Weight) {
		return fmt.Errorf("%w: weight must be greater than zero", ErrInvalidPackage)
	}
	for _, d := range []float64{p.Length, p.Width, p.Height} {
		if d < 0 || math.IsNaN(d) {
			return fmt.Errorf("%w: dimensions must not be negative", ErrInvalidPackage)
		}
	}
	if p.InsuredValue.IsNegative() {
		return fmt.Errorf("%w: insured value must not be negative", ErrInvalidPackage)
	}
	return nil
}

// RoundedWeight returns the weight rounded up to a whole unit, at least 1.
func (p Package) RoundedWeight() int {
	w := int(math.Ceil(p.Weight))
	if w < 1 {
		return 1
	}
	return w
}

// RoundedLength returns the length rounded up to a whole unit.
func (p Package) RoundedLength() int { return roundUp(p.Length) }

// RoundedWidth returns the width rounded up to a whole unit.
func (p Package) RoundedWidth() int { return roundUp(p.Width) }

// RoundedHeight returns the height rounded up to a whole unit.
func (p Package) RoundedHeight() int { return roundUp(p.Height) }

// HasDimensions reports whether all three dimensions were supplied.
func (p Package) HasDimensions() bool {
	return p.Length > 0 && p.Width > 0 && p.Height > 0
}

func roundUp(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Ceil(v))
}

// Rate represents a normalized shipping offer from a carrier.
type Rate struct {
	ID                string
	Carrier           string
	ServiceCode       ServiceCode
	ServiceName       string
	Description       string
	TotalCharges      decimal.Decimal
	Currency          string
	EstimatedDelivery time.Time
	Guaranteed        bool
}

// HasDeliveryEstimate reports whether the rate carries a concrete delivery
// time rather than the sentinel.
func (r Rate) HasDeliveryEstimate() bool {
	return !r.EstimatedDelivery.Equal(MaxDeliveryDate)
}

// String formats the rate for display.
func (r Rate) String() string {
	delivery := "no guaranteed delivery"
	if r.HasDeliveryEstimate() {
		delivery = r.EstimatedDelivery.Format("Mon Jan 2 2006 3:04 PM")
	}
	return fmt.Sprintf("%s %s %s %s (%s)", r.Carrier, r.ServiceName, r.TotalCharges.StringFixed(2), r.Currency, delivery)
}

// Shipment is the unit of work for one GetRates call: the addresses and
// packages being quoted, plus the rates and carrier errors collected.
type Shipment struct {
	Origin      Address
	Destination Address
	Packages    []Package
	RequestedAt time.Time
	Rates       []Rate
	Errors      []error

	mu sync.Mutex
}

// NewShipment creates a shipment for the given addresses and packages.
func NewShipment(origin, destination Address, packages []Package, requestedAt time.Time) *Shipment {
	return &Shipment{
		Origin:      origin,
		Destination: destination,
		Packages:    slices.Clone(packages),
		RequestedAt: requestedAt,
	}
}

// AddRates appends rates collected from a carrier.
func (s *Shipment) AddRates(rates ...Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rates = append(s.Rates, rates...)
}

// AddError records a carrier failure.
func (s *Shipment) AddError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, err)
}

// TotalWeight returns the sum of the rounded package weights.
func (s *Shipment) TotalWeight() int {
	var total int
	for _, p := range s.Packages {
		total += p.RoundedWeight()
	}
	return total
}

// TotalInsuredValue returns the sum of the packages' insured values.
func (s *Shipment) TotalInsuredValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Packages {
		total = total.Add(p.InsuredValue)
	}
	return total
}
