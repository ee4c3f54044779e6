package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo persists audit events. The table is INSERT-only; retention is
// an operational concern (time partitioning), not an API one.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, tenant_id, type, actor_user_id, actor_role, ip_address,
   call_id, phone_number_id, did_number, profile_id, message, metadata, created_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.TenantID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		e.CallID, e.PhoneNumberID, e.DIDNumber, e.ProfileID, e.Message, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}
