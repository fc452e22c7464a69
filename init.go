package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/shiprates/internal/config"
	"github.com/tournevent/shiprates/internal/telemetry"
	"github.com/tournevent/shiprates/pkg/shipper"
	"github.com/tournevent/shiprates/pkg/shipper/fedex"
	"github.com/tournevent/shiprates/pkg/shipper/ups"
	"github.com/tournevent/shiprates/pkg/shipper/usps"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app is the composition root shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *otelzap.Logger
	registry *prometheus.Registry
	manager  *shipper.Manager

	shutdownTracer func(context.Context) error
}

func newApp(ctx context.Context, registry *prometheus.Registry) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, registry: registry}

	a.shutdownTracer, err = initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		a.shutdownTracer = nil
	}

	a.manager, err = initManager(cfg, logger, otel.Tracer(cfg.ServiceName), telemetry.NewMetrics(registry))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	logger.Debug("Rate manager ready",
		zap.Strings("carriers", a.manager.Names()),
		zap.Int("adjuster_count", len(a.manager.Adjusters())),
		zap.String("version", cfg.Version),
	)
	return a, nil
}

// Close flushes traces and logs.
func (a *app) Close(ctx context.Context) {
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// pushMetrics sends the collected carrier metrics to the Pushgateway when
// one is configured. A failed push is logged, never fatal.
func (a *app) pushMetrics(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := telemetry.Push(ctx, a.cfg.PushgatewayURL, a.cfg.ServiceName, a.registry); err != nil {
		a.logger.Ctx(ctx).Warn("Failed to push metrics",
			zap.String("url", a.cfg.PushgatewayURL),
			zap.Error(err),
		)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.Attributes()...)
	return shutdown, err
}

func initManager(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, recorder shipper.Recorder) (*shipper.Manager, error) {
	m := shipper.NewManager(logger, tracer, shipper.WithRecorder(recorder))

	// Register enabled carriers
	if cfg.UPSEnabled {
		services, err := ups.Services.ParseFlags(cfg.UPSServices)
		if err != nil {
			return nil, fmt.Errorf("UPS_SERVICES: %w", err)
		}
		m.AddProvider(ups.New(ups.Config{
			AccessLicense: cfg.UPSAccessLicense,
			UserID:        cfg.UPSUserID,
			Password:      cfg.UPSPassword,
			ShipperNumber: cfg.UPSShipperNumber,
			BaseURL:       cfg.UPSBaseURL,
			Timeout:       cfg.UPSTimeout,
			Services:      services,
			Service:       cfg.UPSService,
			UseMock:       cfg.UPSUseMock,
		}, logger, tracer))
	}

	if cfg.FedExEnabled {
		services, err := fedex.Services.ParseFlags(cfg.FedExServices)
		if err != nil {
			return nil, fmt.Errorf("FEDEX_SERVICES: %w", err)
		}
		m.AddProvider(fedex.New(fedex.Config{
			Key:           cfg.FedExKey,
			Password:      cfg.FedExPassword,
			AccountNumber: cfg.FedExAccountNumber,
			MeterNumber:   cfg.FedExMeterNumber,
			BaseURL:       cfg.FedExBaseURL,
			Timeout:       cfg.FedExTimeout,
			Services:      services,
			Service:       cfg.FedExService,
			UseMock:       cfg.FedExUseMock,
		}, logger, tracer))
	}

	if cfg.USPSEnabled {
		services, err := usps.Services.ParseFlags(cfg.USPSServices)
		if err != nil {
			return nil, fmt.Errorf("USPS_SERVICES: %w", err)
		}
		m.AddProvider(usps.New(usps.Config{
			UserID:   cfg.USPSUserID,
			APIToken: cfg.USPSAPIToken,
			BaseURL:  cfg.USPSBaseURL,
			Timeout:  cfg.USPSTimeout,
			Services: services,
			Service:  cfg.USPSService,
			UseMock:  cfg.USPSUseMock,
		}, logger, tracer))
	}

	adjusters, err := cfg.Adjusters()
	if err != nil {
		return nil, err
	}
	for _, adj := range adjusters {
		m.AddRateAdjuster(adj)
	}

	return m, nil
}
