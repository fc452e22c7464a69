// Package usps provides integration with the USPS Prices API.
package usps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shiprates/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName = "usps"

	priceTypeRetail = "RETAIL"
	defaultCurrency = "USD"

	poundsPerKilogram  = 2.20462
	centimetersPerInch = 2.54
)

// Config holds USPS configuration.
type Config struct {
	UserID   string
	APIToken string
	BaseURL  string
	Timeout  time.Duration
	// Services selects which mail classes are reported; zero means all.
	Services shipper.ServiceFlag
	// Service restricts the quote to one mail class or name.
	Service string
	UseMock bool
}

// Client is the USPS shipper client.
type Client struct {
	config    Config
	filter    shipper.ServiceFilter
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new USPS client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			UserID:   cfg.UserID,
			APIToken: cfg.APIToken,
			Timeout:  cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new USPS client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = otel.Tracer("github.com/tournevent/shiprates/pkg/shipper/usps")
	}
	return &Client{
		config:    cfg,
		filter:    shipper.ServiceFilter{Flags: cfg.Services, Only: cfg.Service},
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Timeout returns the time budget for one rate request.
func (c *Client) Timeout() time.Duration {
	return shipper.ResolveTimeout(c.config.Timeout)
}

// ValidateShipment rejects shipments USPS cannot rate. USPS only rates
// shipments that originate in the United States.
func (c *Client) ValidateShipment(shipment *shipper.Shipment) error {
	if !shipment.Origin.IsDomestic("US") {
		return fmt.Errorf("usps only rates shipments from the US, got origin %q", shipment.Origin.CountryCode)
	}
	return nil
}

// GetRates returns shipping rates from USPS.
func (c *Client) GetRates(ctx context.Context, shipment *shipper.Shipment) ([]shipper.Rate, error) {
	ctx, span := c.tracer.Start(ctx, "usps.GetRates")
	defer span.End()

	c.logger.Ctx(ctx).Debug("Getting USPS rates",
		zap.String("origin_postal", shipment.Origin.PostalCode),
		zap.String("destination_country", shipment.Destination.CountryCode),
		zap.Int("package_count", len(shipment.Packages)),
	)

	// Call API
	apiResp, err := c.apiClient.GetRates(ctx, c.buildRatesRequest(shipment))
	if err != nil {
		return nil, wrapError(err)
	}

	rates := c.convertRates(ctx, shipment, apiResp)
	span.SetAttributes(attribute.Int("rate_count", len(rates)))
	return rates, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func (c *Client) buildRatesRequest(shipment *shipper.Shipment) *RatesRequest {
	req := &RatesRequest{
		OriginZIPCode:          zip5(shipment.Origin.PostalCode),
		DestinationCountryCode: strings.ToUpper(shipment.Destination.CountryCode),
		PriceType:              priceTypeRetail,
		MailingDate:            shipment.RequestedAt.Format(time.DateOnly),
	}
	if shipment.Destination.IsDomestic("US") {
		req.DestinationZIPCode = zip5(shipment.Destination.PostalCode)
	} else {
		req.DestinationZIPCode = strings.TrimSpace(shipment.Destination.PostalCode)
	}

	if svc, ok := Services.Find(c.config.Service); ok {
		req.MailClass = string(svc.Code)
	}

	for _, p := range shipment.Packages {
		pkg := Package{
			Weight: toPounds(p).RoundedWeight(),
		}
		inches := toInches(p)
		if inches.HasDimensions() {
			pkg.Length = inches.RoundedLength()
			pkg.Width = inches.RoundedWidth()
			pkg.Height = inches.RoundedHeight()
		}
		if p.InsuredValue.IsPositive() {
			pkg.ItemValue = p.InsuredValue.StringFixed(2)
		}
		req.Packages = append(req.Packages, pkg)
	}
	return req
}

func (c *Client) convertRates(ctx context.Context, shipment *shipper.Shipment, resp *RatesResponse) []shipper.Rate {
	log := c.logger.Ctx(ctx)
	rates := make([]shipper.Rate, 0, len(resp.Rates))

	for _, r := range resp.Rates {
		svc, ok := Services.Lookup(r.MailClass)
		if !ok {
			log.Debug("Skipping unknown USPS mail class", zap.String("mail_class", r.MailClass))
			continue
		}
		if !c.filter.Allows(svc) {
			continue
		}

		total, err := shipper.ParseCharge(string(r.TotalPrice))
		if err != nil {
			log.Debug("Skipping USPS rate with invalid price",
				zap.String("mail_class", r.MailClass),
				zap.Error(err),
			)
			continue
		}

		guaranteed := r.Commitment != nil && r.Commitment.Days >= 0
		var days int
		var deliveryTime string
		if guaranteed {
			days = r.Commitment.Days
			deliveryTime = r.Commitment.DeliveryTime
		}

		currency := r.Currency
		if currency == "" {
			currency = defaultCurrency
		}

		rates = append(rates, shipper.Rate{
			ID:                uuid.NewString(),
			Carrier:           carrierName,
			ServiceCode:       svc.Code,
			ServiceName:       svc.Name,
			Description:       r.ProductName,
			TotalCharges:      total,
			Currency:          currency,
			EstimatedDelivery: shipper.EstimateDelivery(shipment.RequestedAt, days, guaranteed, deliveryTime),
			Guaranteed:        guaranteed,
		})
	}
	return rates
}

// zip5 reduces a ZIP+4 code to its five-digit prefix.
func zip5(postalCode string) string {
	pc := strings.TrimSpace(postalCode)
	if i := strings.IndexByte(pc, '-'); i >= 0 {
		pc = pc[:i]
	}
	return pc
}

func toPounds(p shipper.Package) shipper.Package {
	if p.WeightUnit == shipper.WeightKG {
		p.Weight *= poundsPerKilogram
		p.WeightUnit = shipper.WeightLB
	}
	return p
}

func toInches(p shipper.Package) shipper.Package {
	if p.DimensionUnit == shipper.DimensionCM {
		p.Length /= centimetersPerInch
		p.Width /= centimetersPerInch
		p.Height /= centimetersPerInch
		p.DimensionUnit = shipper.DimensionIN
	}
	return p
}

func wrapError(err error) error {
	var adapterErr *shipper.AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return shipper.NewAdapterError(carrierName, shipper.KindTransport, "rate request rejected").WithCause(err)
	}
	return shipper.NewTransportError(carrierName, err)
}

var (
	_ shipper.Provider          = (*Client)(nil)
	_ shipper.ShipmentValidator = (*Client)(nil)
)
