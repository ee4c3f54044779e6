package tenants

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"voicegate/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("tenants: not found")
	ErrInvalidArgument = errors.New("tenants: invalid argument")
	ErrDuplicateDID    = errors.New("tenants: did already registered")
)

// Repository is the persistence contract for tenant-scoped configuration.
//
// Tenancy invariant: every query is tenant-scoped except FindNumberByDID,
// which IS the tenant resolution step for inbound routing.
type Repository interface {
	FindTenant(ctx context.Context, tenantID string) (Tenant, bool, error)

	FindNumberByDID(ctx context.Context, didNumber string) (PhoneNumber, bool, error)
	InsertNumber(ctx context.Context, pn PhoneNumber) error
	SetNumberActive(ctx context.Context, tenantID, phoneNumberID string, active bool) error

	FindProfile(ctx context.Context, tenantID, profileID string) (AIProfile, bool, error)
	FindDefaultProfile(ctx context.Context, tenantID string) (AIProfile, bool, error)
	InsertProfile(ctx context.Context, p AIProfile) error
	SetDefaultProfile(ctx context.Context, tenantID, profileID string) error

	FindBusinessProfile(ctx context.Context, tenantID string) (BusinessProfile, bool, error)
}

// NormalizeDID strips common separators so lookups match the canonical
// stored form: digits with an optional leading +. Country codes are neither
// added nor removed; numbers are stored as provisioned.
func NormalizeDID(did string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(strings.TrimSpace(did))
}

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func (r *PostgresRepo) FindTenant(ctx context.Context, tenantID string) (Tenant, bool, error) {
	if tenantID == "" {
		return Tenant{}, false, ErrInvalidArgument
	}
	const q = `
		SELECT id, name, status, plan, primary_language, created_at, updated_at
		FROM tenants WHERE id = $1`
	var t Tenant
	err := r.db.QueryRowContext(ctx, q, tenantID).Scan(
		&t.ID, &t.Name, &t.Status, &t.Plan, &t.PrimaryLanguage, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Tenant{}, false, nil
	}
	if err != nil {
		return Tenant{}, false, err
	}
	return t, true, nil
}

func (r *PostgresRepo) FindNumberByDID(ctx context.Context, didNumber string) (PhoneNumber, bool, error) {
	did := NormalizeDID(didNumber)
	if did == "" {
		return PhoneNumber{}, false, ErrInvalidArgument
	}
	// Exact match against the unique did_number index. Never approximate.
	const q = `
		SELECT id, tenant_id, did_number, is_active, created_at
		FROM phone_numbers WHERE did_number = $1`
	var pn PhoneNumber
	err := r.db.QueryRowContext(ctx, q, did).Scan(
		&pn.ID, &pn.TenantID, &pn.DIDNumber, &pn.IsActive, &pn.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, false, nil
	}
	if err != nil {
		return PhoneNumber{}, false, err
	}
	return pn, true, nil
}

func (r *PostgresRepo) InsertNumber(ctx context.Context, pn PhoneNumber) error {
	if pn.TenantID == "" || NormalizeDID(pn.DIDNumber) == "" {
		return ErrInvalidArgument
	}
	if pn.ID == "" {
		pn.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO phone_numbers (id, tenant_id, did_number, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (did_number) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q, pn.ID, pn.TenantID, NormalizeDID(pn.DIDNumber), pn.IsActive, r.clock().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateDID
	}
	return nil
}

func (r *PostgresRepo) SetNumberActive(ctx context.Context, tenantID, phoneNumberID string, active bool) error {
	if tenantID == "" || phoneNumberID == "" {
		return ErrInvalidArgument
	}
	const q = `
		UPDATE phone_numbers SET is_active = $3
		WHERE id = $1 AND tenant_id = $2`
	res, err := r.db.ExecContext(ctx, q, phoneNumberID, tenantID, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) FindProfile(ctx context.Context, tenantID, profileID string) (AIProfile, bool, error) {
	if tenantID == "" || profileID == "" {
		return AIProfile{}, false, ErrInvalidArgument
	}
	const q = `
		SELECT id, tenant_id, role, system_prompt, is_default, created_at, updated_at
		FROM ai_profiles WHERE id = $1 AND tenant_id = $2`
	return r.scanProfile(r.db.QueryRowContext(ctx, q, profileID, tenantID))
}

func (r *PostgresRepo) FindDefaultProfile(ctx context.Context, tenantID string) (AIProfile, bool, error) {
	if tenantID == "" {
		return AIProfile{}, false, ErrInvalidArgument
	}
	const q = `
		SELECT id, tenant_id, role, system_prompt, is_default, created_at, updated_at
		FROM ai_profiles WHERE tenant_id = $1 AND is_default = TRUE`
	return r.scanProfile(r.db.QueryRowContext(ctx, q, tenantID))
}

func (r *PostgresRepo) scanProfile(row *sql.Row) (AIProfile, bool, error) {
	var p AIProfile
	err := row.Scan(&p.ID, &p.TenantID, &p.Role, &p.SystemPrompt, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AIProfile{}, false, nil
	}
	if err != nil {
		return AIProfile{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) InsertProfile(ctx context.Context, p AIProfile) error {
	if p.TenantID == "" || strings.TrimSpace(p.SystemPrompt) == "" {
		return ErrInvalidArgument
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.clock().UTC()
	const q = `
		INSERT INTO ai_profiles (id, tenant_id, role, system_prompt, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.TenantID, p.Role, p.SystemPrompt, p.IsDefault, now)
	return err
}

// SetDefaultProfile clears the previous default and sets the new one inside a
// single transaction, preserving the at-most-one-default invariant under
// concurrent writers.
func (r *PostgresRepo) SetDefaultProfile(ctx context.Context, tenantID, profileID string) error {
	if tenantID == "" || profileID == "" {
		return ErrInvalidArgument
	}
	now := r.clock().UTC()
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE ai_profiles SET is_default = TRUE, updated_at = $3
			WHERE id = $1 AND tenant_id = $2`, profileID, tenantID, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE ai_profiles SET is_default = FALSE, updated_at = $3
			WHERE tenant_id = $1 AND id <> $2 AND is_default = TRUE`, tenantID, profileID, now)
		return err
	})
}

func (r *PostgresRepo) FindBusinessProfile(ctx context.Context, tenantID string) (BusinessProfile, bool, error) {
	if tenantID == "" {
		return BusinessProfile{}, false, ErrInvalidArgument
	}
	const q = `
		SELECT tenant_id, business_name, business_type, services, hours
		FROM business_profiles WHERE tenant_id = $1`
	var bp BusinessProfile
	err := r.db.QueryRowContext(ctx, q, tenantID).Scan(
		&bp.TenantID, &bp.BusinessName, &bp.BusinessType, &bp.Services, &bp.Hours,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return BusinessProfile{}, false, nil
	}
	if err != nil {
		return BusinessProfile{}, false, err
	}
	return bp, true, nil
}
