package tenants

import "time"

// Tenant is the root of all scoped data. Every phone number, AI profile and
// call row carries a tenant_id; no call-path code may infer a tenant from
// anything other than the dialed DID.
type Tenant struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	Status TenantStatus `json:"status" db:"status"`
	Plan   TenantPlan   `json:"plan" db:"plan"`

	// PrimaryLanguage is the fallback when language detection confidence is low.
	PrimaryLanguage string `json:"primary_language" db:"primary_language"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

type TenantPlan string

const (
	PlanStarter    TenantPlan = "starter"
	PlanGrowth     TenantPlan = "growth"
	PlanEnterprise TenantPlan = "enterprise"
)

// PhoneNumber is the only legitimate bridge between an inbound call and a
// tenant. DIDNumber is globally unique (enforced by a storage-level unique
// constraint, not application locking); TenantID is immutable after creation.
type PhoneNumber struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// DIDNumber is stored in canonical form: digits with an optional
	// leading +, no separators. See NormalizeDID.
	DIDNumber string `json:"did_number" db:"did_number"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AIProfile defines how the AI agent behaves on calls for a tenant.
// At most one profile per tenant has IsDefault=true; SetDefaultProfile swaps
// the flag as a single logical operation.
type AIProfile struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Role         AIRole `json:"role" db:"role"`
	SystemPrompt string `json:"system_prompt" db:"system_prompt"`
	IsDefault    bool   `json:"is_default" db:"is_default"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AIRole string

const (
	AIRoleReceptionist AIRole = "receptionist"
	AIRoleSupport      AIRole = "support"
	AIRoleSales        AIRole = "sales"
)

// BusinessProfile carries the tenant-configured facts the prompt builder
// folds into the system prompt. All fields are optional.
type BusinessProfile struct {
	TenantID     string `json:"tenant_id" db:"tenant_id"`
	BusinessName string `json:"business_name" db:"business_name"`
	BusinessType string `json:"business_type" db:"business_type"`
	Services     string `json:"services" db:"services"`
	Hours        string `json:"hours" db:"hours"`
}
