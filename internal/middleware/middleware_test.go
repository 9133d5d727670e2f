package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetica-academy/presenciales/internal/auth"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(jwt *auth.JWTService, roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(CORS("http://shop.local"))
	handlers := []gin.HandlerFunc{JWT(jwt)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": id.Email, "name": id.FullName})
	})
	r.GET("/me", handlers...)
	return r
}

func do(r http.Handler, method, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/me", nil)
	req.Header.Set("Origin", "http://shop.local")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	svc := auth.NewJWTService("s", 1)
	r := newRouter(svc)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "nope").Code)

	tok, err := svc.Generate(uuid.New(), "ana@example.com", "Ana", "student")
	require.NoError(t, err)
	w := do(r, http.MethodGet, tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")
	assert.Equal(t, "http://shop.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequireRole(t *testing.T) {
	svc := auth.NewJWTService("s", 1)
	r := newRouter(svc, "admin")

	student, _ := svc.Generate(uuid.New(), "s@example.com", "", "student")
	admin, _ := svc.Generate(uuid.New(), "a@example.com", "", "admin")
	w := do(r, http.MethodGet, student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "this action requires the admin role")
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, admin).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(auth.NewJWTService("s", 1))
	w := do(r, http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "").Code)
}
