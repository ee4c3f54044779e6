package main

import (
	"voicegate/internal/auth"
	"voicegate/internal/httpapi"
	"voicegate/internal/rbac"
	"voicegate/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers, webhook telephony.InboundWebhookHandler) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Gateway webhook (public path, gated by the shared token inside the
	// handler so the response shape stays consistent).
	r.POST("/webhooks/calls/inbound", webhook.HandleInboundCall)

	// AUTH routes (token issuance).
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			tid, _ := auth.TenantID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "tenant_id": tid, "role": role})
		})

		// NUMBER routes: provisioning changes are owner/admin only.
		numbers := v1.Group("/numbers")
		numbers.Use(httpapi.RequireTenantAndAnyRole(rbac.RoleOwner, rbac.RoleAdmin)...)
		{
			numbers.POST("", h.RegisterNumber)
			numbers.POST("/:number_id/activate", h.SetNumberActive(true))
			numbers.POST("/:number_id/deactivate", h.SetNumberActive(false))
		}

		// PROFILE routes: prompt changes alter what the AI says on live
		// calls, so they carry the same bar as number changes.
		profiles := v1.Group("/profiles")
		profiles.Use(httpapi.RequireTenantAndAnyRole(rbac.RoleOwner, rbac.RoleAdmin)...)
		{
			profiles.POST("", h.CreateProfile)
			profiles.POST("/:profile_id/default", h.SetDefaultProfile)
		}

		// CALL routes (read-only for agents and analysts too).
		callsGroup := v1.Group("/calls")
		callsGroup.Use(httpapi.RequireTenantAndAnyRole(rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleAgent, rbac.RoleAnalyst)...)
		{
			callsGroup.GET("", h.ListCalls)
		}

		// REPORT routes
		reports := v1.Group("/reports")
		reports.Use(httpapi.RequireTenantAndAnyRole(rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleAnalyst)...)
		{
			reports.GET("/calls", h.CallSummary)
		}
	}
}
