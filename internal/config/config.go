package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the rate quoting tool.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// UPS
	UPSAccessLicense string        `envconfig:"UPS_ACCESS_LICENSE"`
	UPSUserID        string        `envconfig:"UPS_USER_ID"`
	UPSPassword      string        `envconfig:"UPS_PASSWORD"`
	UPSShipperNumber string        `envconfig:"UPS_SHIPPER_NUMBER"`
	UPSBaseURL       string        `envconfig:"UPS_BASE_URL" default:"https://onlinetools.ups.com"`
	UPSTimeout       time.Duration `envconfig:"UPS_TIMEOUT" default:"10s"`
	UPSServices      []string      `envconfig:"UPS_SERVICES"`
	UPSService       string        `envconfig:"UPS_SERVICE"`
	UPSEnabled       bool          `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock       bool          `envconfig:"UPS_USE_MOCK" default:"false"`

	// FedEx
	FedExKey           string        `envconfig:"FEDEX_KEY"`
	FedExPassword      string        `envconfig:"FEDEX_PASSWORD"`
	FedExAccountNumber string        `envconfig:"FEDEX_ACCOUNT_NUMBER"`
	FedExMeterNumber   string        `envconfig:"FEDEX_METER_NUMBER"`
	FedExBaseURL       string        `envconfig:"FEDEX_BASE_URL" default:"https://ws.fedex.com:443"`
	FedExTimeout       time.Duration `envconfig:"FEDEX_TIMEOUT" default:"10s"`
	FedExServices      []string      `envconfig:"FEDEX_SERVICES"`
	FedExService       string        `envconfig:"FEDEX_SERVICE"`
	FedExEnabled       bool          `envconfig:"FEDEX_ENABLED" default:"true"`
	FedExUseMock       bool          `envconfig:"FEDEX_USE_MOCK" default:"false"`

	// USPS
	USPSUserID   string        `envconfig:"USPS_USER_ID"`
	USPSAPIToken string        `envconfig:"USPS_API_TOKEN"`
	USPSBaseURL  string        `envconfig:"USPS_BASE_URL" default:"https://apis.usps.com"`
	USPSTimeout  time.Duration `envconfig:"USPS_TIMEOUT" default:"10s"`
	USPSServices []string      `envconfig:"USPS_SERVICES"`
	USPSService  string        `envconfig:"USPS_SERVICE"`
	USPSEnabled  bool          `envconfig:"USPS_ENABLED" default:"true"`
	USPSUseMock  bool          `envconfig:"USPS_USE_MOCK" default:"false"`

	// Rate adjustment, applied in this order before the pipeline file
	DiscountFactor string `envconfig:"DISCOUNT_FACTOR"`
	HandlingFee    string `envconfig:"HANDLING_FEE"`
	AdjustersFile  string `envconfig:"ADJUSTERS_FILE"`

	// Telemetry
	OTELEnabled    bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint   string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	ServiceName    string `envconfig:"SERVICE_NAME" default:"shiprates"`
	Version        string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("ups.enabled", c.UPSEnabled),
		attribute.Bool("fedex.enabled", c.FedExEnabled),
		attribute.Bool("usps.enabled", c.USPSEnabled),
	}
}
