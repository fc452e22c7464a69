package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/tournevent/shiprates/pkg/shipper"
	"go.uber.org/zap"
)

// defaultPackages is quoted when no --package flag is given.
var defaultPackages = []string{"12,12,12,35,150", "4,4,6,15,250"}

type quoteOptions struct {
	from        addressFlags
	to          addressFlags
	packages    []string
	carriers    []string
	metric      bool
	jsonOutput  bool
	description string
}

type addressFlags struct {
	city        string
	state       string
	postalCode  string
	country     string
	residential bool
}

func (a addressFlags) address() shipper.Address {
	addr := shipper.NewAddress(a.city, a.state, a.postalCode, a.country)
	addr.IsResidential = a.residential
	return addr
}

func newQuoteCmd() *cobra.Command {
	opts := &quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a shipment with every enabled carrier",
		Example: `  shiprates quote --from-postal 12203 --to-postal 33101
  shiprates quote --from-postal 12203 --to-postal M5V2T6 --to-country CA --package 10,8,6,4.5,100 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.from.city, "from-city", "", "origin city")
	f.StringVar(&opts.from.state, "from-state", "", "origin state or province code")
	f.StringVar(&opts.from.postalCode, "from-postal", "", "origin postal code")
	f.StringVar(&opts.from.country, "from-country", "US", "origin country code")
	f.StringVar(&opts.to.city, "to-city", "", "destination city")
	f.StringVar(&opts.to.state, "to-state", "", "destination state or province code")
	f.StringVar(&opts.to.postalCode, "to-postal", "", "destination postal code")
	f.StringVar(&opts.to.country, "to-country", "US", "destination country code")
	f.BoolVar(&opts.to.residential, "residential", false, "destination is a residence")
	f.StringArrayVar(&opts.packages, "package", nil, "package as LENGTH,WIDTH,HEIGHT,WEIGHT[,INSURED] (repeatable)")
	f.BoolVar(&opts.metric, "metric", false, "package measurements are in centimeters and kilograms")
	f.StringVar(&opts.description, "description", "", "contents description applied to every package")
	f.StringSliceVar(&opts.carriers, "carrier", nil, "only ask these carriers (default all enabled)")
	f.BoolVar(&opts.jsonOutput, "json", false, "print rates as JSON")

	return cmd
}

func runQuote(cmd *cobra.Command, opts *quoteOptions) error {
	ctx := cmd.Context()

	specs := opts.packages
	if len(specs) == 0 {
		specs = defaultPackages
	}
	packages := make([]shipper.Package, 0, len(specs))
	for _, spec := range specs {
		p, err := parsePackage(spec, opts.metric)
		if err != nil {
			return err
		}
		p.Description = opts.description
		packages = append(packages, p)
	}

	app, err := newApp(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	shipment, err := app.manager.GetRatesFrom(ctx, opts.carriers, opts.from.address(), opts.to.address(), packages)
	if err != nil {
		return err
	}
	app.pushMetrics(ctx)

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		err = writeJSON(out, shipment)
	} else {
		err = writeTable(out, cmd.ErrOrStderr(), shipment)
	}
	if err != nil {
		return err
	}

	if len(shipment.Rates) == 0 {
		app.logger.Warn("No rates available", zap.Int("error_count", len(shipment.Errors)))
		return errors.New("no carrier returned rates")
	}
	return nil
}

// parsePackage reads "LENGTH,WIDTH,HEIGHT,WEIGHT[,INSURED]".
func parsePackage(spec string, metric bool) (shipper.Package, error) {
	fields := strings.Split(spec, ",")
	if len(fields) != 4 && len(fields) != 5 {
		return shipper.Package{}, fmt.Errorf("invalid package %q: want LENGTH,WIDTH,HEIGHT,WEIGHT[,INSURED]", spec)
	}

	var dims [4]float64
	for i := range dims {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return shipper.Package{}, fmt.Errorf("invalid package %q: %w", spec, err)
		}
		dims[i] = v
	}

	insured := decimal.Zero
	if len(fields) == 5 {
		v, err := decimal.NewFromString(strings.TrimSpace(fields[4]))
		if err != nil {
			return shipper.Package{}, fmt.Errorf("invalid insured value in %q: %w", spec, err)
		}
		insured = v
	}

	p := shipper.NewPackage(dims[0], dims[1], dims[2], dims[3], insured)
	if metric {
		p.DimensionUnit = shipper.DimensionCM
		p.WeightUnit = shipper.WeightKG
	}
	return p, nil
}

type rateJSON struct {
	ID                string     `json:"id"`
	Carrier           string     `json:"carrier"`
	ServiceCode       string     `json:"service_code"`
	ServiceName       string     `json:"service_name"`
	Description       string     `json:"description,omitempty"`
	TotalCharges      string     `json:"total_charges"`
	Currency          string     `json:"currency"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	Guaranteed        bool       `json:"guaranteed"`
}

type quoteJSON struct {
	RequestedAt time.Time  `json:"requested_at"`
	Rates       []rateJSON `json:"rates"`
	Errors      []string   `json:"errors,omitempty"`
}

func writeJSON(w io.Writer, shipment *shipper.Shipment) error {
	out := quoteJSON{
		RequestedAt: shipment.RequestedAt,
		Rates:       make([]rateJSON, 0, len(shipment.Rates)),
	}
	for _, r := range shipment.Rates {
		rj := rateJSON{
			ID:           r.ID,
			Carrier:      r.Carrier,
			ServiceCode:  string(r.ServiceCode),
			ServiceName:  r.ServiceName,
			Description:  r.Description,
			TotalCharges: r.TotalCharges.StringFixed(2),
			Currency:     r.Currency,
			Guaranteed:   r.Guaranteed,
		}
		if r.HasDeliveryEstimate() {
			at := r.EstimatedDelivery
			rj.EstimatedDelivery = &at
		}
		out.Rates = append(out.Rates, rj)
	}
	for _, err := range shipment.Errors {
		out.Errors = append(out.Errors, err.Error())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTable(w, errw io.Writer, shipment *shipper.Shipment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CARRIER\tSERVICE\tTOTAL\tDELIVERY")
	for _, r := range shipment.Rates {
		delivery := "no estimate"
		if r.HasDeliveryEstimate() {
			delivery = r.EstimatedDelivery.Format("Mon Jan 2 3:04 PM")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", r.Carrier, r.ServiceName, r.TotalCharges.StringFixed(2), r.Currency, delivery)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, err := range shipment.Errors {
		fmt.Fprintf(errw, "warning: %v\n", err)
	}
	return nil
}
