package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func rbacRouter(guard gin.HandlerFunc, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	inject := func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/reports/attendance", inject, guard, ok)
	r.GET("/students/roll/:roll_number", inject, guard, ok)
	return r
}

func rbacRequest(t *testing.T, r *gin.Engine, path string) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireRolesAdmitsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	r := rbacRouter(RequireRoles(models.RoleAdmin), claims)

	assert.Equal(t, http.StatusOK, rbacRequest(t, r, "/reports/attendance"))
}

func TestRequireRolesForbidsStudentOnClassWideRead(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u2", Role: models.RoleStudent, RollNumber: "R-001"}
	r := rbacRouter(RequireRoles(models.RoleAdmin), claims)

	assert.Equal(t, http.StatusForbidden, rbacRequest(t, r, "/reports/attendance"))
}

func TestRequireRolesAdmitsStudentOnOwnRollNumber(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u2", Role: models.RoleStudent, RollNumber: "R-001"}
	r := rbacRouter(RequireRoles(models.RoleAdmin), claims)

	assert.Equal(t, http.StatusOK, rbacRequest(t, r, "/students/roll/R-001"))
	assert.Equal(t, http.StatusForbidden, rbacRequest(t, r, "/students/roll/R-002"))
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	r := rbacRouter(RequireRoles(models.RoleAdmin), nil)

	assert.Equal(t, http.StatusUnauthorized, rbacRequest(t, r, "/reports/attendance"))
}
