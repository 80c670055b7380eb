package tenant

import (
	"time"

	"github.com/opentrusty/storegate/internal/billing"
)

// Tenant is a billable customer that owns one or more stores.
// Billing fields are written by external billing processors; this service
// only reads them.
type Tenant struct {
	ID            string     `json:"id"`
	BillingStatus string     `json:"billing_status"`
	TrialEndsAt   *time.Time `json:"trial_ends_at,omitempty"`
	PastDueSince  *time.Time `json:"past_due_since,omitempty"`
}

// BillingRecord decodes the tenant's raw billing columns for the engine.
func (t *Tenant) BillingRecord() billing.Record {
	return billing.NewRecord(t.BillingStatus, t.TrialEndsAt, t.PastDueSince)
}

// Store is a tenant-owned resource addressed by requests.
// TenantID is fixed at creation; no repository method rewrites it.
type Store struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Slug     string `json:"slug"`

	// IsDemo exempts the store from authorization and billing checks.
	// Only platform administrators may change it.
	IsDemo bool `json:"is_demo"`
}
