package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voicegate/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, identity func(c *gin.Context), allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", identity, RequireTenant(), RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func withIdentity(userID, tenantID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), userID, tenantID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serve(t, withIdentity("u", "t1", RoleSuperAdmin), RoleOwner); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_UnlistedRoleDenied(t *testing.T) {
	if code := serve(t, withIdentity("u", "t1", RoleAnalyst), RoleOwner, RoleAdmin); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_ListedRoleAllowed(t *testing.T) {
	if code := serve(t, withIdentity("u", "t1", RoleAgent), RoleAgent, RoleAdmin); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireTenant_MissingTenantRejected(t *testing.T) {
	if code := serve(t, withIdentity("u", "", RoleOwner), RoleOwner); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
