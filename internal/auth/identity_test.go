package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityPredicates(t *testing.T) {
	assert.False(t, Identity{}.Authenticated())
	assert.True(t, Identity{UserID: "u1"}.Authenticated())

	assert.False(t, Identity{UserID: "u1", Role: RoleCustomer}.IsAdmin())
	assert.True(t, Identity{UserID: "u1", Role: RoleAdmin}.IsAdmin())
}

func captureIdentity(t *testing.T, headers map[string]string) Identity {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())

	var got Identity
	r.GET("/", func(c *gin.Context) {
		got = FromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	return got
}

func TestMiddleware_ReadsHeaders(t *testing.T) {
	id := captureIdentity(t, map[string]string{
		"X-User-Id":   "u1",
		"X-User-Role": "admin",
	})
	assert.Equal(t, Identity{UserID: "u1", Role: RoleAdmin}, id)
}

func TestMiddleware_DefaultsRoleToCustomer(t *testing.T) {
	id := captureIdentity(t, map[string]string{"X-User-Id": "u1"})
	assert.Equal(t, RoleCustomer, id.Role)
}

func TestMiddleware_NoHeadersIsUnauthenticated(t *testing.T) {
	id := captureIdentity(t, nil)
	assert.False(t, id.Authenticated())
}

func TestFromContext_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, Identity{}, FromContext(c))
}
