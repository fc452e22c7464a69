// Package shipper provides an abstraction layer for shipping carriers and the
// manager that aggregates their rate quotes.
package shipper

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single carrier rate request when a carrier is
// configured without an explicit timeout.
const DefaultTimeout = 10 * time.Second

// Provider defines the interface that every carrier adapter must implement.
type Provider interface {
	// Name returns the carrier identifier (e.g., "ups", "fedex", "usps").
	Name() string

	// Timeout returns the time budget for one GetRates call.
	Timeout() time.Duration

	// GetRates requests rates for the shipment from the carrier and returns
	// them normalized. Unknown or filtered services are omitted silently.
	// Any transport or decoding failure is returned as an *AdapterError.
	GetRates(ctx context.Context, shipment *Shipment) ([]Rate, error)
}

// ShipmentValidator is implemented by providers that only serve some
// shipments. The manager calls it before the fan-out; a provider that rejects
// the shipment is skipped and its error is recorded with KindUnsupported.
type ShipmentValidator interface {
	ValidateShipment(shipment *Shipment) error
}

// ResolveTimeout returns d, or DefaultTimeout when d is not positive.
func ResolveTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
