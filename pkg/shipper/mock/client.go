// Package mock provides a stub carrier for testing the rate manager.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tournevent/shiprates/pkg/shipper"
)

// Client is a stub carrier. By default it quotes a standard and an express
// service; set Rates, Err or OnGetRates to change what it returns.
type Client struct {
	name    string
	timeout time.Duration

	// Rates, when non-nil, are returned instead of the default quotes.
	Rates []shipper.Rate
	// Err, when set, is returned instead of rates.
	Err error
	// Latency delays the response; the delay honours context cancellation
	// unless IgnoreContext is set.
	Latency       time.Duration
	IgnoreContext bool
	// OnGetRates overrides every other behaviour.
	OnGetRates func(ctx context.Context, shipment *shipper.Shipment) ([]shipper.Rate, error)

	calls atomic.Int32
}

// New creates a new stub carrier.
func New(name string) *Client {
	return &Client{name: name, timeout: shipper.DefaultTimeout}
}

// WithTimeout sets the timeout the stub reports to the manager.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Timeout returns the configured time budget.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Calls returns how many times GetRates was invoked.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

// GetRates returns stub rates.
func (c *Client) GetRates(ctx context.Context, shipment *shipper.Shipment) ([]shipper.Rate, error) {
	c.calls.Add(1)

	if c.OnGetRates != nil {
		return c.OnGetRates(ctx, shipment)
	}

	if c.Latency > 0 {
		if c.IgnoreContext {
			time.Sleep(c.Latency)
		} else {
			select {
			case <-time.After(c.Latency):
			case <-ctx.Done():
				return nil, shipper.NewTransportError(c.name, ctx.Err())
			}
		}
	}

	if c.Err != nil {
		return nil, c.Err
	}

	if c.Rates != nil {
		out := make([]shipper.Rate, len(c.Rates))
		for i, r := range c.Rates {
			if r.Carrier == "" {
				r.Carrier = c.name
			}
			out[i] = r
		}
		return out, nil
	}

	return []shipper.Rate{
		{
			ID:                uuid.NewString(),
			Carrier:           c.name,
			ServiceCode:       "STANDARD",
			ServiceName:       c.name + " Standard",
			TotalCharges:      decimal.RequireFromString("15.82"),
			Currency:          "USD",
			EstimatedDelivery: shipper.EstimateDelivery(shipment.RequestedAt, 5, true, ""),
			Guaranteed:        true,
		},
		{
			ID:                uuid.NewString(),
			Carrier:           c.name,
			ServiceCode:       "EXPRESS",
			ServiceName:       c.name + " Express",
			TotalCharges:      decimal.RequireFromString("29.95"),
			Currency:          "USD",
			EstimatedDelivery: shipper.EstimateDelivery(shipment.RequestedAt, 2, true, "10:30 A.M."),
			Guaranteed:        true,
		},
	}, nil
}

var _ shipper.Provider = (*Client)(nil)
