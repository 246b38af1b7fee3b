package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func newProtectedRouter(chain ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(chain, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/runs/:id", handlers...)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	tokens := validatorStub{
		"admin":  {UserID: "u1", Role: models.RoleAdmin},
		"viewer": {UserID: "u2", Role: models.RoleViewer},
	}
	r := newProtectedRouter(JWT(tokens), RequireRoles(models.RoleAdmin, models.RoleScheduler))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic admin", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"forbidden role", "Bearer viewer", http.StatusForbidden},
		{"allowed role", "Bearer admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/runs/1", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.status, serve(r, req).Code)
		})
	}
}

func TestJWTQueryTokenOnlyForUpgrades(t *testing.T) {
	tokens := validatorStub{"admin": {UserID: "u1", Role: models.RoleAdmin}}
	r := newProtectedRouter(JWT(tokens))

	req := httptest.NewRequest(http.MethodGet, "/runs/1?access_token=admin", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/runs/1?access_token=admin", nil)
	req.Header.Set("Upgrade", "websocket")
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

func TestAnonymousGrantsAdmin(t *testing.T) {
	r := newProtectedRouter(Anonymous(), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/runs/1", nil)).Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newProtectedRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/runs/1", nil)).Code)
}

type observerStub struct {
	mu    sync.Mutex
	paths []string
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, method+" "+path)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &observerStub{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/runs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/runs/abc", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, []string{"GET /runs/:id", "GET unmatched"}, obs.paths)
}
