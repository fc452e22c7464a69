// Package ups provides integration with the UPS Rating API.
package ups

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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
	carrierName = "ups"

	pickupDaily       = "01"
	packagingCustomer = "02"
	defaultCurrency   = "USD"
)

// Config holds UPS configuration.
type Config struct {
	AccessLicense string
	UserID        string
	Password      string
	ShipperNumber string
	BaseURL       string
	Timeout       time.Duration
	// Services selects which services are reported; zero means all.
	Services shipper.ServiceFlag
	// Service restricts the quote to one service code or name.
	Service string
	UseMock bool
}

// Client is the UPS shipper client.
type Client struct {
	config    Config
	filter    shipper.ServiceFilter
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new UPS client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:       cfg.BaseURL,
			AccessLicense: cfg.AccessLicense,
			UserID:        cfg.UserID,
			Password:      cfg.Password,
			Timeout:       cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new UPS client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = otel.Tracer("github.com/tournevent/shiprates/pkg/shipper/ups")
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

// ValidateShipment rejects shipments UPS cannot rate.
func (c *Client) ValidateShipment(shipment *shipper.Shipment) error {
	origin := shipment.Origin
	if shipper.RequiresPostalCode(origin.CountryCode) && strings.TrimSpace(origin.PostalCode) == "" {
		return fmt.Errorf("%w: ups requires an origin postal code for %s", shipper.ErrInvalidAddress, origin.CountryCode)
	}
	return nil
}

// GetRates returns shipping rates from UPS.
func (c *Client) GetRates(ctx context.Context, shipment *shipper.Shipment) ([]shipper.Rate, error) {
	ctx, span := c.tracer.Start(ctx, "ups.GetRates")
	defer span.End()

	log := c.logger.Ctx(ctx)
	log.Debug("Getting UPS rates",
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
		CustomerContext: uuid.NewString(),
		RequestOption:   OptionShop,
		ShipperNumber:   c.config.ShipperNumber,
		PickupType:      pickupDaily,
		Shipper:         addressToAPI(shipment.Origin),
		ShipTo:          addressToAPI(shipment.Destination),
	}

	// A single-service restriction by code lets UPS rate just that service
	if svc, ok := Services.Find(c.config.Service); ok {
		req.RequestOption = OptionRate
		req.ServiceCode = string(svc.Code)
	}

	for _, p := range shipment.Packages {
		pkg := Package{
			PackagingType: packagingCustomer,
			Length:        p.RoundedLength(),
			Width:         p.RoundedWidth(),
			Height:        p.RoundedHeight(),
			DimensionUnit: dimensionUnit(p.DimensionUnit),
			Weight:        p.RoundedWeight(),
			WeightUnit:    weightUnit(p.WeightUnit),
		}
		if p.InsuredValue.IsPositive() {
			pkg.InsuredValue = p.InsuredValue.StringFixed(2)
			pkg.Currency = defaultCurrency
		}
		req.Packages = append(req.Packages, pkg)
	}
	return req
}

func (c *Client) convertRates(ctx context.Context, shipment *shipper.Shipment, resp *RatesResponse) []shipper.Rate {
	log := c.logger.Ctx(ctx)
	rates := make([]shipper.Rate, 0, len(resp.RatedShipments))

	for _, r := range resp.RatedShipments {
		svc, ok := Services.Lookup(r.ServiceCode)
		if !ok {
			log.Debug("Skipping unknown UPS service", zap.String("service_code", r.ServiceCode))
			continue
		}
		if !c.filter.Allows(svc) {
			continue
		}

		total, err := shipper.ParseCharge(r.TotalCharges)
		if err != nil {
			log.Debug("Skipping UPS rate with invalid charge",
				zap.String("service_code", r.ServiceCode),
				zap.Error(err),
			)
			continue
		}

		days, guaranteed := parseDays(r.GuaranteedDaysToDelivery)
		currency := r.CurrencyCode
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
			EstimatedDelivery: shipper.EstimateDelivery(shipment.RequestedAt, days, guaranteed, r.ScheduledDeliveryTime),
			Guaranteed:        guaranteed,
		})
	}
	return rates
}

func addressToAPI(addr shipper.Address) Location {
	return Location{
		AddressLine: addr.Line1,
		City:        addr.City,
		State:       addr.State,
		PostalCode:  addr.PostalCode,
		CountryCode: strings.ToUpper(addr.CountryCode),
		Residential: addr.IsResidential,
	}
}

// parseDays reads GuaranteedDaysToDelivery; UPS leaves it empty when the
// service carries no guarantee.
func parseDays(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	days, err := strconv.Atoi(s)
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}

func dimensionUnit(u shipper.DimensionUnit) string {
	if u == shipper.DimensionCM {
		return "CM"
	}
	return "IN"
}

func weightUnit(u shipper.WeightUnit) string {
	if u == shipper.WeightKG {
		return "KGS"
	}
	return "LBS"
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
