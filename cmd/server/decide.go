package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opentrusty/storegate/internal/billing"
	"github.com/opentrusty/storegate/internal/tenant"
	"github.com/spf13/cobra"
)

func newDecideCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "decide <tenant-id>",
		Short: "Print the billing decision for a tenant",
		Long: `Load the tenant's billing record and print the decision the gateway
would take for it, as JSON. Use --at to evaluate at another instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at value %q: %w", at, err)
				}
				now = parsed
			}

			ctx := cmd.Context()
			store, err := openBackend(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer store.close()

			t, err := store.tenants.GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load tenant %s: %w", args[0], err)
			}
			return writeDecision(cmd.OutOrStdout(), t, now)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluation time (RFC3339), defaults to now")
	return cmd
}

func writeDecision(w io.Writer, t *tenant.Tenant, now time.Time) error {
	d := billing.Decide(t.BillingRecord(), now)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		TenantID      string           `json:"tenant_id"`
		BillingStatus string           `json:"billing_status"`
		EvaluatedAt   time.Time        `json:"evaluated_at"`
		Decision      billing.Decision `json:"decision"`
		Anomaly       bool             `json:"anomaly,omitempty"`
	}{
		TenantID:      t.ID,
		BillingStatus: t.BillingStatus,
		EvaluatedAt:   now,
		Decision:      d,
		Anomaly:       d.Anomaly,
	})
}
