package authz

import (
	"context"
	"errors"
)

// Domain errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("principal has no grant on this store")
)

// Result is the outcome of an authorization check
type Result int

const (
	Denied Result = iota
	Granted
)

func (r Result) String() string {
	if r == Granted {
		return "granted"
	}
	return "denied"
}

// Membership relates a user to exactly one store.
// There is no inheritance between stores of the same tenant.
type Membership struct {
	StoreID   string
	UserID    string
	HasAccess bool
}

// MembershipRepository defines read access to store memberships
type MembershipRepository interface {
	// HasAccess reports whether a membership with has_access = true exists
	// for exactly this (store, user) pair.
	HasAccess(ctx context.Context, storeID, userID string) (bool, error)
}
