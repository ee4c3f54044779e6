package httpapi

import (
	"errors"
	"net/http"
	"time"

	"voicegate/internal/audit"
	"voicegate/internal/auth"
	"voicegate/internal/calls"
	"voicegate/internal/rbac"
	"voicegate/internal/reporting"
	"voicegate/internal/telephony"
	"voicegate/internal/tenants"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth    *auth.Manager
	Tenants tenants.Repository
	Calls   calls.Repository
	Adapter telephony.Adapter
	Reports *reporting.Service
	Audit   *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, tenant_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Numbers ---

type registerNumberRequest struct {
	DIDNumber string `json:"did_number"`
}

// RegisterNumber creates a phone number for the caller's tenant and asks the
// provider to start delivering calls for it. Providers without a
// provisioning API are a normal outcome: the number is created and marked
// for manual provisioning.
func (h Handlers) RegisterNumber(c *gin.Context) {
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return
	}
	var req registerNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	did := tenants.NormalizeDID(req.DIDNumber)
	if did == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "did_number required"})
		return
	}

	pn := tenants.PhoneNumber{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		DIDNumber: did,
		IsActive:  true,
	}
	if err := h.Tenants.InsertNumber(c.Request.Context(), pn); err != nil {
		switch {
		case errors.Is(err, tenants.ErrDuplicateDID):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "did already registered"})
		case errors.Is(err, tenants.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid did"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number create failed"})
		}
		return
	}

	provisioning := "registered"
	if h.Adapter != nil {
		if _, err := h.Adapter.RegisterNumber(c.Request.Context(), tenantID, pn.ID, did); err != nil {
			if !errors.Is(err, telephony.ErrUnsupported) {
				c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "provider registration failed"})
				return
			}
			provisioning = "manual"
		}
	}

	h.auditNumber(c, tenantID, pn.ID, did, "number registered, provisioning "+provisioning)
	c.JSON(http.StatusCreated, gin.H{
		"phone_number_id": pn.ID,
		"did_number":      did,
		"is_active":       true,
		"provisioning":    provisioning,
	})
}

// SetNumberActive flips a number's active flag. Deactivated numbers keep
// their tenant binding; calls to them are rejected as inactive rather than
// unknown.
func (h Handlers) SetNumberActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := auth.TenantID(c.Request.Context())
		if err != nil || tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}
		numberID := c.Param("number_id")
		if numberID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number_id required"})
			return
		}
		if err := h.Tenants.SetNumberActive(c.Request.Context(), tenantID, numberID, active); err != nil {
			if errors.Is(err, tenants.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "number not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number update failed"})
			return
		}
		if !active && h.Adapter != nil {
			// Best-effort; ErrUnsupported means the gateway keeps delivering
			// and the resolver rejects the calls instead.
			if _, err := h.Adapter.UnregisterNumber(c.Request.Context(), tenantID, numberID, ""); err != nil && !errors.Is(err, telephony.ErrUnsupported) {
				c.JSON(http.StatusOK, gin.H{"phone_number_id": numberID, "is_active": active, "warning": "provider unregister failed"})
				return
			}
		}
		msg := "number deactivated"
		if active {
			msg = "number activated"
		}
		h.auditNumber(c, tenantID, numberID, "", msg)
		c.JSON(http.StatusOK, gin.H{"phone_number_id": numberID, "is_active": active})
	}
}

// --- AI profiles ---

type createProfileRequest struct {
	Role         string `json:"role"`
	SystemPrompt string `json:"system_prompt"`
	IsDefault    bool   `json:"is_default"`
}

func (h Handlers) CreateProfile(c *gin.Context) {
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return
	}
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role := tenants.AIRole(req.Role)
	switch role {
	case tenants.AIRoleReceptionist, tenants.AIRoleSupport, tenants.AIRoleSales:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be receptionist, support or sales"})
		return
	}

	p := tenants.AIProfile{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Role:         role,
		SystemPrompt: req.SystemPrompt,
	}
	if err := h.Tenants.InsertProfile(c.Request.Context(), p); err != nil {
		if errors.Is(err, tenants.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "system_prompt required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile create failed"})
		return
	}
	if req.IsDefault {
		if err := h.Tenants.SetDefaultProfile(c.Request.Context(), tenantID, p.ID); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "default swap failed"})
			return
		}
	}
	h.auditProfile(c, tenantID, p.ID, "profile created")
	c.JSON(http.StatusCreated, gin.H{"profile_id": p.ID, "role": string(role), "is_default": req.IsDefault})
}

func (h Handlers) SetDefaultProfile(c *gin.Context) {
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return
	}
	profileID := c.Param("profile_id")
	if profileID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "profile_id required"})
		return
	}
	if err := h.Tenants.SetDefaultProfile(c.Request.Context(), tenantID, profileID); err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "default swap failed"})
		return
	}
	h.auditProfile(c, tenantID, profileID, "default profile changed")
	c.JSON(http.StatusOK, gin.H{"profile_id": profileID, "is_default": true})
}

// --- Calls & reports ---

func (h Handlers) ListCalls(c *gin.Context) {
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return
	}
	from, to, err := timeRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs, err := h.Calls.ListByTenant(c.Request.Context(), tenantID, from, to)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": recs, "from": from, "to": to})
}

func (h Handlers) CallSummary(c *gin.Context) {
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return
	}
	from, to, err := timeRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Reports.Summarize(c.Request.Context(), tenantID, from, to)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRange) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid time range"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// timeRange parses from/to query params, defaulting to the last 24 hours.
func timeRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now.Add(-24*time.Hour), now
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
}

func (h Handlers) auditNumber(c *gin.Context, tenantID, numberID, did, msg string) {
	if h.Audit == nil {
		return
	}
	actor, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	_ = h.Audit.LogNumberChanged(c.Request.Context(), tenantID, actor, role, c.ClientIP(), numberID, did, msg)
}

func (h Handlers) auditProfile(c *gin.Context, tenantID, profileID, msg string) {
	if h.Audit == nil {
		return
	}
	actor, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	_ = h.Audit.LogProfileChanged(c.Request.Context(), tenantID, actor, role, c.ClientIP(), profileID, msg)
}

// Convenience middleware bundles.

func RequireTenantAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireTenant(), rbac.RequireAnyRole(roles...)}
}
