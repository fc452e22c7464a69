package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tournevent/shiprates/pkg/shipper"
	"gopkg.in/yaml.v3"
)

// Adjuster types accepted in a pipeline file.
const (
	AdjusterFactor  = "factor"
	AdjusterFlatFee = "flat_fee"
)

// PipelineFile is the YAML layout of an adjuster pipeline:
//
//	adjusters:
//	  - type: factor
//	    factor: "0.9"
//	  - type: flat_fee
//	    amount: "4.50"
//	    carriers: [ups]
type PipelineFile struct {
	Adjusters []AdjusterSpec `yaml:"adjusters"`
}

// AdjusterSpec describes one pipeline stage. Carriers, when set, limits the
// stage to rates from those carriers.
type AdjusterSpec struct {
	Type     string   `yaml:"type"`
	Factor   string   `yaml:"factor,omitempty"`
	Amount   string   `yaml:"amount,omitempty"`
	Carriers []string `yaml:"carriers,omitempty"`
}

// LoadPipeline reads an adjuster pipeline from a YAML file.
func LoadPipeline(path string) ([]shipper.RateAdjuster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading adjusters file: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline builds the adjusters described by a YAML document, in
// document order.
func ParsePipeline(data []byte) ([]shipper.RateAdjuster, error) {
	var file PipelineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing adjusters file: %w", err)
	}

	adjusters := make([]shipper.RateAdjuster, 0, len(file.Adjusters))
	for i, spec := range file.Adjusters {
		adj, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("adjuster %d: %w", i+1, err)
		}
		adjusters = append(adjusters, adj)
	}
	return adjusters, nil
}

// Build creates the adjuster s describes.
func (s AdjusterSpec) Build() (shipper.RateAdjuster, error) {
	var adj shipper.RateAdjuster
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case AdjusterFactor:
		factor, err := decimal.NewFromString(strings.TrimSpace(s.Factor))
		if err != nil {
			return nil, fmt.Errorf("invalid factor %q: %w", s.Factor, err)
		}
		fa, err := shipper.NewFactorAdjuster(factor)
		if err != nil {
			return nil, err
		}
		adj = fa
	case AdjusterFlatFee:
		amount, err := decimal.NewFromString(strings.TrimSpace(s.Amount))
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", s.Amount, err)
		}
		adj = &shipper.FlatFeeAdjuster{Amount: amount}
	default:
		return nil, fmt.Errorf("unknown adjuster type %q", s.Type)
	}

	if len(s.Carriers) == 0 {
		return adj, nil
	}
	return forCarriers(adj, s.Carriers), nil
}

// forCarriers applies adj only to rates from the named carriers.
func forCarriers(adj shipper.RateAdjuster, carriers []string) shipper.RateAdjuster {
	names := make([]string, len(carriers))
	for i, c := range carriers {
		names[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return shipper.RateAdjusterFunc(func(rate shipper.Rate) shipper.Rate {
		if !slices.Contains(names, strings.ToLower(rate.Carrier)) {
			return rate
		}
		return adj.AdjustRate(rate)
	})
}

// Adjusters returns the configured pipeline: the discount factor, then the
// handling fee, then the stages of AdjustersFile.
func (c *Config) Adjusters() ([]shipper.RateAdjuster, error) {
	var specs []AdjusterSpec
	if strings.TrimSpace(c.DiscountFactor) != "" {
		specs = append(specs, AdjusterSpec{Type: AdjusterFactor, Factor: c.DiscountFactor})
	}
	if strings.TrimSpace(c.HandlingFee) != "" {
		specs = append(specs, AdjusterSpec{Type: AdjusterFlatFee, Amount: c.HandlingFee})
	}

	adjusters := make([]shipper.RateAdjuster, 0, len(specs))
	for _, spec := range specs {
		adj, err := spec.Build()
		if err != nil {
			return nil, err
		}
		adjusters = append(adjusters, adj)
	}

	if c.AdjustersFile != "" {
		fromFile, err := LoadPipeline(c.AdjustersFile)
		if err != nil {
			return nil, err
		}
		adjusters = append(adjusters, fromFile...)
	}
	return adjusters, nil
}
