package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/auth"
	"github.com/printbridge/backend/internal/interfaces/http/handler"
	"github.com/printbridge/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func emptyHandlers() Handlers {
	return Handlers{
		System:  &handler.SystemHandler{},
		Print:   &handler.PrintHandler{},
		Command: &handler.CommandHandler{},
	}
}

func TestRoutes_Table(t *testing.T) {
	routes := Routes(emptyHandlers())
	require.NotEmpty(t, routes)

	seen := make(map[string]bool)
	for _, r := range routes {
		key := r.Method + " " + r.Path
		assert.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true

		assert.True(t, strings.HasPrefix(r.Path, "/"), key)
		assert.NotNil(t, r.Handler, key)
		if r.Scope != "" {
			assert.Contains(t, auth.AllScopes(), r.Scope, key)
		}
	}

	assert.True(t, seen["POST /print-jobs"])
	assert.True(t, seen["POST /printers/:name/jobs/:jobId/:action"])
	assert.True(t, seen["POST /commands/:name"])
}

func TestRoute_FullPath(t *testing.T) {
	assert.Equal(t, "/api/v1/printers/:name", Route{Path: "/printers/:name"}.FullPath())
}

func TestPublicPaths(t *testing.T) {
	noop := func(c *gin.Context) {}
	routes := []Route{
		{http.MethodGet, "/health", "", noop},
		{http.MethodGet, "/status/:component", "", noop},
		{http.MethodGet, "/printers", auth.ScopePrint, noop},
	}
	assert.Equal(t, []string{"/api/v1/health"}, PublicPaths(routes))
	assert.Equal(t, []string{"/api/v1/health", "/api/v1/ping"}, PublicPaths(Routes(emptyHandlers())))
}

func TestMount(t *testing.T) {
	verifier, err := auth.NewTokenVerifier(auth.VerifierConfig{Secret: testSecret})
	require.NoError(t, err)
	token, err := verifier.Issue("frontend", []string{auth.ScopeJobs}, 0)
	require.NoError(t, err)

	reply := func(body string) gin.HandlerFunc {
		return func(c *gin.Context) { c.String(http.StatusOK, body) }
	}
	engine := gin.New()
	api := engine.Group(APIPrefix, middleware.JWTAuthMiddleware(verifier))
	Mount(api, []Route{
		{http.MethodGet, "/printers/:name/jobs", auth.ScopeJobs, func(c *gin.Context) {
			c.String(http.StatusOK, "queue of "+c.Param("name"))
		}},
		{http.MethodPost, "/print-jobs", auth.ScopePrint, reply("printed")},
		{http.MethodDelete, "/temp-files/:filename", auth.ScopeFiles, reply("removed")},
	})

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/api/v1/printers/Office/jobs", http.StatusOK, "queue of Office"},
		{http.MethodPost, "/api/v1/print-jobs", http.StatusForbidden, ""},
		{http.MethodDelete, "/api/v1/temp-files/a.pdf", http.StatusForbidden, ""},
		{http.MethodGet, "/api/v1/print-jobs", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
