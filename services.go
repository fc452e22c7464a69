package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tournevent/shiprates/pkg/shipper"
	"github.com/tournevent/shiprates/pkg/shipper/fedex"
	"github.com/tournevent/shiprates/pkg/shipper/ups"
	"github.com/tournevent/shiprates/pkg/shipper/usps"
)

var carrierServices = []struct {
	name  string
	table shipper.ServiceTable
}{
	{"fedex", fedex.Services},
	{"ups", ups.Services},
	{"usps", usps.Services},
}

func newServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services [carrier]",
		Short: "List the services each carrier can quote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only string
			if len(args) == 1 {
				only = strings.ToLower(args[0])
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CARRIER\tCODE\tSERVICE")
			found := false
			for _, c := range carrierServices {
				if only != "" && c.name != only {
					continue
				}
				found = true
				for _, s := range c.table.Services() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.name, s.Code, s.Name)
				}
			}
			if !found {
				return fmt.Errorf("%w: %s", shipper.ErrCarrierNotFound, only)
			}
			return tw.Flush()
		},
	}
}
