package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configName string

	rootCmd := &cobra.Command{
		Use:           "payment_importer",
		Short:         "Ingest P2P rent payments into tenant ledgers",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configName, "config", "payment_importer", "config name, read from ./configs/<name>.env")

	rootCmd.AddCommand(importCmd(&configName))
	rootCmd.AddCommand(emailCmd(&configName))
	rootCmd.AddCommand(recomputeCmd(&configName))
	rootCmd.AddCommand(openingBalanceCmd(&configName))

	return rootCmd
}
