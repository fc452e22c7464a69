// Package fedex provides integration with the FedEx RateService SOAP API.
package fedex

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
	carrierName = "fedex"

	dropoffRegularPickup = "REGULAR_PICKUP"
	packagingYours       = "YOUR_PACKAGING"
	defaultCurrency      = "USD"

	deliveryTimestampLayout = "2006-01-02T15:04:05"
)

// Config holds FedEx configuration.
type Config struct {
	Key           string
	Password      string
	AccountNumber string
	MeterNumber   string
	BaseURL       string
	Timeout       time.Duration
	// Services selects which services are reported; zero means all.
	Services shipper.ServiceFlag
	// Service restricts the quote to one service type or name.
	Service string
	UseMock bool
}

// Client is the FedEx shipper client.
type Client struct {
	config    Config
	filter    shipper.ServiceFilter
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new FedEx client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			BaseURL:       cfg.BaseURL,
			Key:           cfg.Key,
			Password:      cfg.Password,
			AccountNumber: cfg.AccountNumber,
			MeterNumber:   cfg.MeterNumber,
			Timeout:       cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new FedEx client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = otel.Tracer("github.com/tournevent/shiprates/pkg/shipper/fedex")
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

// ValidateShipment rejects shipments FedEx cannot rate.
func (c *Client) ValidateShipment(shipment *shipper.Shipment) error {
	origin := shipment.Origin
	if shipper.RequiresPostalCode(origin.CountryCode) && strings.TrimSpace(origin.PostalCode) == "" {
		return fmt.Errorf("%w: fedex requires an origin postal code for %s", shipper.ErrInvalidAddress, origin.CountryCode)
	}
	return nil
}

// GetRates returns shipping rates from FedEx.
func (c *Client) GetRates(ctx context.Context, shipment *shipper.Shipment) ([]shipper.Rate, error) {
	ctx, span := c.tracer.Start(ctx, "fedex.GetRates")
	defer span.End()

	c.logger.Ctx(ctx).Debug("Getting FedEx rates",
		zap.String("origin_postal", shipment.Origin.PostalCode),
		zap.String("destination_postal", shipment.Destination.PostalCode),
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
		CustomerTransactionID: uuid.NewString(),
		DropoffType:           dropoffRegularPickup,
		PackagingType:         packagingYours,
		Shipper:               addressToAPI(shipment.Origin),
		Recipient:             addressToAPI(shipment.Destination),
	}

	if svc, ok := Services.Find(c.config.Service); ok {
		req.ServiceType = string(svc.Code)
	}

	for i, p := range shipment.Packages {
		item := PackageLineItem{
			SequenceNumber: i + 1,
			Weight:         p.RoundedWeight(),
			WeightUnits:    weightUnits(p.WeightUnit),
			Length:         p.RoundedLength(),
			Width:          p.RoundedWidth(),
			Height:         p.RoundedHeight(),
			DimensionUnits: dimensionUnits(p.DimensionUnit),
		}
		if p.InsuredValue.IsPositive() {
			item.InsuredAmount = p.InsuredValue.StringFixed(2)
			item.Currency = defaultCurrency
		}
		req.Packages = append(req.Packages, item)
	}
	return req
}

func (c *Client) convertRates(ctx context.Context, shipment *shipper.Shipment, resp *RatesResponse) []shipper.Rate {
	log := c.logger.Ctx(ctx)
	rates := make([]shipper.Rate, 0, len(resp.Details))

	for _, d := range resp.Details {
		svc, ok := Services.Lookup(d.ServiceType)
		if !ok {
			log.Debug("Skipping unknown FedEx service", zap.String("service_type", d.ServiceType))
			continue
		}
		if !c.filter.Allows(svc) {
			continue
		}

		total, err := shipper.ParseCharge(d.TotalNetCharge)
		if err != nil {
			log.Debug("Skipping FedEx rate with invalid charge",
				zap.String("service_type", d.ServiceType),
				zap.Error(err),
			)
			continue
		}

		delivery := estimateDelivery(shipment.RequestedAt, d)
		currency := d.Currency
		if currency == "" {
			currency = defaultCurrency
		}

		rates = append(rates, shipper.Rate{
			ID:                uuid.NewString(),
			Carrier:           carrierName,
			ServiceCode:       svc.Code,
			ServiceName:       svc.Name,
			TotalCharges:      total,
			Currency:          currency,
			EstimatedDelivery: delivery,
			Guaranteed:        !delivery.Equal(shipper.MaxDeliveryDate),
		})
	}
	return rates
}

// estimateDelivery prefers the committed delivery timestamp over the
// transit time enumeration.
func estimateDelivery(requestedAt time.Time, d RateReplyDetail) time.Time {
	if d.DeliveryTimestamp != "" {
		if t, err := time.Parse(time.RFC3339, d.DeliveryTimestamp); err == nil {
			return shipper.DeliveryAt(t)
		}
		if t, err := time.ParseInLocation(deliveryTimestampLayout, d.DeliveryTimestamp, requestedAt.Location()); err == nil {
			return shipper.DeliveryAt(t)
		}
	}
	if days, ok := transitDays[d.TransitTime]; ok {
		return shipper.EstimateDelivery(requestedAt, days, true, "")
	}
	return shipper.MaxDeliveryDate
}

func addressToAPI(addr shipper.Address) Party {
	p := Party{
		City:                addr.City,
		StateOrProvinceCode: addr.State,
		PostalCode:          addr.PostalCode,
		CountryCode:         strings.ToUpper(addr.CountryCode),
		Residential:         addr.IsResidential,
	}
	for _, line := range []string{addr.Line1, addr.Line2} {
		if line != "" {
			p.StreetLines = append(p.StreetLines, line)
		}
	}
	return p
}

func weightUnits(u shipper.WeightUnit) string {
	if u == shipper.WeightKG {
		return "KG"
	}
	return "LB"
}

func dimensionUnits(u shipper.DimensionUnit) string {
	if u == shipper.DimensionCM {
		return "CM"
	}
	return "IN"
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
