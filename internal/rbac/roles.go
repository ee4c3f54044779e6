package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
//
// owner    - tenant owner; manages numbers, AI profiles and users
// admin    - tenant administrator; same surface as owner minus billing
// agent    - human agent; read access to calls and transcripts
// analyst  - read-only reporting access
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin" // platform operator, cross-tenant
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
