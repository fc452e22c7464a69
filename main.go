package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "shiprates",
		Short:        "Multi-carrier shipping rate quotes",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newQuoteCmd(), newServicesCmd())
	return rootCmd
}
