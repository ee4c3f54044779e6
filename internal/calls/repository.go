package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("calls: invalid argument")
	ErrNotFound        = errors.New("calls: not found")
)

// Repository is the persistence contract for call records.
//
// Terminal-status invariant: once a call is completed/failed/transferred it
// never transitions again. Finish enforces this with a conditional update
// rather than application locking, so duplicate finishers are harmless.
type Repository interface {
	// CreateIfAbsent inserts the call unless a row with the same
	// ProviderCallID already exists, in which case the existing row is
	// returned with created=false.
	CreateIfAbsent(ctx context.Context, c Call) (Call, bool, error)

	FindByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error)

	// Finish moves the call to a terminal status. It returns false when the
	// call was already terminal (the stored row wins; no overwrite).
	Finish(ctx context.Context, callID string, status CallStatus, endedAt time.Time) (bool, error)

	ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]Call, error)
}

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateIfAbsent(ctx context.Context, c Call) (Call, bool, error) {
	if c.TenantID == "" || c.PhoneNumberID == "" || c.ProviderCallID == "" {
		return Call{}, false, ErrInvalidArgument
	}
	if c.Status == "" {
		c.Status = StatusInProgress
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}

	// Insert-time uniqueness on provider_call_id is the idempotency
	// mechanism; no SELECT-then-INSERT races.
	const ins = `
		INSERT INTO calls (id, tenant_id, phone_number_id, provider_call_id,
		                   caller_number, called_number, direction, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_call_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, ins,
		c.ID, c.TenantID, c.PhoneNumberID, c.ProviderCallID,
		c.CallerNumber, c.CalledNumber, c.Direction, c.Status, c.StartedAt,
	)
	if err != nil {
		return Call{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Call{}, false, err
	}
	if n == 1 {
		return c, true, nil
	}

	existing, ok, err := r.FindByProviderCallID(ctx, c.ProviderCallID)
	if err != nil {
		return Call{}, false, err
	}
	if !ok {
		// Conflict row vanished between statements; extremely unlikely.
		return Call{}, false, ErrNotFound
	}
	return existing, false, nil
}

func (r *PostgresRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error) {
	if providerCallID == "" {
		return Call{}, false, ErrInvalidArgument
	}
	const q = `
		SELECT id, tenant_id, phone_number_id, provider_call_id,
		       caller_number, called_number, direction, status, started_at, ended_at
		FROM calls WHERE provider_call_id = $1`
	var c Call
	err := r.db.QueryRowContext(ctx, q, providerCallID).Scan(
		&c.ID, &c.TenantID, &c.PhoneNumberID, &c.ProviderCallID,
		&c.CallerNumber, &c.CalledNumber, &c.Direction, &c.Status, &c.StartedAt, &c.EndedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, false, nil
	}
	if err != nil {
		return Call{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) Finish(ctx context.Context, callID string, status CallStatus, endedAt time.Time) (bool, error) {
	if callID == "" || !status.Terminal() {
		return false, ErrInvalidArgument
	}
	const q = `
		UPDATE calls SET status = $2, ended_at = $3
		WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, q, callID, status, endedAt.UTC(), StatusInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]Call, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	const q = `
		SELECT id, tenant_id, phone_number_id, provider_call_id,
		       caller_number, called_number, direction, status, started_at, ended_at
		FROM calls
		WHERE tenant_id = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, q, tenantID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.PhoneNumberID, &c.ProviderCallID,
			&c.CallerNumber, &c.CalledNumber, &c.Direction, &c.Status, &c.StartedAt, &c.EndedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
