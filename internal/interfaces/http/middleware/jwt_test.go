package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/auth"
	"github.com/printbridge/backend/internal/infrastructure/logger"
	"github.com/printbridge/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T) *auth.TokenVerifier {
	t.Helper()
	v, err := auth.NewTokenVerifier(auth.VerifierConfig{Secret: "middleware-test-secret-32-chars!!", Issuer: "printbridge"})
	require.NoError(t, err)
	return v
}

func jwtRouter(t *testing.T, v *auth.TokenVerifier) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(JWTAuthMiddleware(v))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/printers", RequireScope(auth.ScopePrint), func(c *gin.Context) {
		assert.Equal(t, GetJWTSubject(c), logger.GetSubject(c.Request.Context()))
		c.String(http.StatusOK, GetJWTSubject(c))
	})
	return r
}

func authRequest(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWTAuth(t *testing.T) {
	v := newVerifier(t)
	r := jwtRouter(t, v)

	valid, err := v.Issue("frontend", []string{auth.ScopePrint}, time.Hour)
	require.NoError(t, err)
	noScope, err := v.Issue("frontend", []string{auth.ScopeFiles}, time.Hour)
	require.NoError(t, err)

	t.Run("skip path", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, authRequest(r, "/health", "").Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := authRequest(r, "/api/v1/printers", "Bearer "+valid)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "frontend", w.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		w := authRequest(r, "/api/v1/printers", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(t, w))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := authRequest(r, "/api/v1/printers", "Basic "+valid)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := authRequest(r, "/api/v1/printers", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(t, w))
	})

	t.Run("missing scope", func(t *testing.T) {
		w := authRequest(r, "/api/v1/printers", "Bearer "+noScope)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
	})
}

func TestRequireScope_WithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/jobs", RequireScope(auth.ScopeJobs), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, authRequest(r, "/jobs", "").Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer ", "bearer abc", "Token abc"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, h)
	}
}
