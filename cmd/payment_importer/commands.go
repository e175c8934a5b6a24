package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rentroll-payment-ledger/internal/domain/payment"
	"github.com/rentroll-payment-ledger/internal/ingestion/service"
	"github.com/rentroll-payment-ledger/internal/platform/messaging/producers"
	"github.com/rentroll-payment-ledger/internal/source"
)

func importCmd(configName *string) *cobra.Command {
	var provider string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import bulk transaction exports from one payment network",
		Long: `Parse one or more exports of the same network, match senders to tenants,
skip payments already on file and post the rest to the ledger.
Prints the run summary as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := payment.ParseMethod(provider)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, *configName)
			if err != nil {
				return err
			}
			defer a.Close()

			parser, err := source.NewExportParser(method, a.cfg.Ingestion.Location())
			if err != nil {
				return err
			}

			inputs := make([]service.ExportInput, 0, len(args))
			for _, path := range args {
				inputs = append(inputs, service.ExportInput{Path: path})
			}

			summary, err := a.ingestion.Import.Import(ctx, parser, inputs, dryRun)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "payment network: venmo, cashapp, paypal or zelle")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run everything except storage writes")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func emailCmd(configName *string) *cobra.Command {
	var dryRun, enqueue bool

	cmd := &cobra.Command{
		Use:   "email FILE.eml...",
		Short: "Ingest saved payment receipt emails",
		Long: `Route each message to its network's receipt parser and ingest the payments.
With --enqueue the raw messages are published to the email topic instead,
for the email processor to consume.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if enqueue && dryRun {
				return fmt.Errorf("--enqueue and --dry-run cannot be combined")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, *configName)
			if err != nil {
				return err
			}
			defer a.Close()

			if enqueue {
				producer, err := producers.NewEmailProducer(ctx, a.log, &a.cfg.Kafka)
				if err != nil {
					return err
				}
				defer producer.Close()

				queued, err := enqueueEmails(cmd, producer, args)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{"enqueued": queued})
			}

			summary, err := a.ingestion.Email.IngestFiles(ctx, args, dryRun)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run everything except storage writes")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "publish to the email topic instead of ingesting here")

	return cmd
}

func enqueueEmails(cmd *cobra.Command, submitter producers.EmailSubmitter, paths []string) (int, error) {
	queued := 0
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return queued, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := submitter.SubmitEmail(cmd.Context(), emailKey(path, raw), raw); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// emailKey prefers the Message-ID so redelivered copies land on one partition
func emailKey(path string, raw []byte) string {
	if id := source.MessageID(raw); id != "" {
		return id
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func recomputeCmd(configName *string) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rewrite a tenant's running balances from entry amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, *configName)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.ingestion.Recomputer.Recompute(ctx, tenantID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

type openingBalanceArgs struct {
	tenantID uuid.UUID
	amount   decimal.Decimal
	asOf     time.Time
}

// asOfIn is the as-of calendar day at midnight in loc
func (a *openingBalanceArgs) asOfIn(loc *time.Location) time.Time {
	y, m, d := a.asOf.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// parseOpeningBalanceArgs validates the flags without any configuration, so bad
// input fails before a database connection is opened. asOf is kept as a UTC day.
func parseOpeningBalanceArgs(tenant, amount, asOf string) (*openingBalanceArgs, error) {
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid --amount: %w", err)
	}
	if value.IsZero() {
		return nil, fmt.Errorf("invalid --amount: opening balance cannot be zero")
	}
	day, err := time.Parse(time.DateOnly, asOf)
	if err != nil {
		return nil, fmt.Errorf("invalid --as-of: %w", err)
	}
	return &openingBalanceArgs{tenantID: tenantID, amount: value, asOf: day}, nil
}

func openingBalanceCmd(configName *string) *cobra.Command {
	var tenant, amount, asOf string

	cmd := &cobra.Command{
		Use:   "opening-balance",
		Short: "Backfill an opening balance and recompute the tenant's ledger",
		Long: `Insert an OPENING_BALANCE entry dated --as-of ahead of later entries, then
recompute every running balance in the same transaction. Positive amounts
are owed by the tenant, negative amounts are credit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseOpeningBalanceArgs(tenant, amount, asOf)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, *configName)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.ingestion.OpeningBalances.Backfill(ctx, parsed.tenantID, parsed.amount,
				parsed.asOfIn(a.cfg.Ingestion.Location()))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&amount, "amount", "", "signed amount, e.g. 1200 or -150.50")
	cmd.Flags().StringVar(&asOf, "as-of", "", "effective date, YYYY-MM-DD")
	for _, name := range []string{"tenant", "amount", "as-of"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
