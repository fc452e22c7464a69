package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shiprates/internal/config"
	"github.com/tournevent/shiprates/pkg/shipper"
)

func run(adjusters []shipper.RateAdjuster, rate shipper.Rate) shipper.Rate {
	for _, a := range adjusters {
		rate = a.AdjustRate(rate)
	}
	return rate
}

func rate(carrier, total string) shipper.Rate {
	return shipper.Rate{Carrier: carrier, ServiceCode: "X", TotalCharges: decimal.RequireFromString(total)}
}

func TestParsePipeline(t *testing.T) {
	doc := []byte(`
adjusters:
  - type: factor
    factor: "0.9"
  - type: factor
    factor: "0.8"
  - type: flat_fee
    amount: "4.50"
    carriers: [UPS]
`)
	adjusters, err := config.ParsePipeline(doc)
	require.NoError(t, err)
	require.Len(t, adjusters, 3)

	assert.Equal(t, "76.50", run(adjusters, rate("ups", "100.00")).TotalCharges.StringFixed(2))
	assert.Equal(t, "72.00", run(adjusters, rate("fedex", "100.00")).TotalCharges.StringFixed(2))
}

func TestParsePipeline_Empty(t *testing.T) {
	adjusters, err := config.ParsePipeline([]byte("adjusters: []\n"))
	require.NoError(t, err)
	assert.Empty(t, adjusters)
}

func TestParsePipeline_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown type", "adjusters:\n  - type: coupon\n"},
		{"bad factor", "adjusters:\n  - type: factor\n    factor: \"lots\"\n"},
		{"negative factor", "adjusters:\n  - type: factor\n    factor: \"-1\"\n"},
		{"missing amount", "adjusters:\n  - type: flat_fee\n"},
		{"not yaml", "adjusters: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParsePipeline([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Adjusters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adjusters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
adjusters:
  - type: factor
    factor: "0.5"
    carriers: [ups]
`), 0o600))

	cfg := &config.Config{DiscountFactor: "0.9", HandlingFee: "5", AdjustersFile: path}
	adjusters, err := cfg.Adjusters()
	require.NoError(t, err)
	require.Len(t, adjusters, 3)

	// (100 * 0.9 + 5) * 0.5
	assert.Equal(t, "47.50", run(adjusters, rate("ups", "100")).TotalCharges.StringFixed(2))
	assert.Equal(t, "95.00", run(adjusters, rate("usps", "100")).TotalCharges.StringFixed(2))
}

func TestConfig_Adjusters_None(t *testing.T) {
	adjusters, err := (&config.Config{}).Adjusters()
	require.NoError(t, err)
	assert.Empty(t, adjusters)
}

func TestConfig_Adjusters_MissingFile(t *testing.T) {
	cfg := &config.Config{AdjustersFile: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := cfg.Adjusters()
	assert.Error(t, err)
}
