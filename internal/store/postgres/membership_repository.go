package postgres

import (
	"context"
	"fmt"
)

// MembershipRepository implements authz.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// HasAccess reports whether userID holds an active grant on exactly storeID.
func (r *MembershipRepository) HasAccess(ctx context.Context, storeID, userID string) (bool, error) {
	var ok bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM store_members
			WHERE store_id = $1 AND user_id = $2 AND has_access
		)
	`, storeID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}
