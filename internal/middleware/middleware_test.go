package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/auth"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/testutil"
	"github.com/tripwise-dev/tripwise/internal/types"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", append(handlers, func(ctx *gin.Context) {
		user, _ := ctx.Get(types.ContextUserKey)
		ctx.JSON(http.StatusOK, user)
	})...)

	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()

	token, err := auth.GenerateJWT(user.ID, user.Email)
	require.NoError(t, err)

	return token
}

func TestAuthMiddleware(t *testing.T) {
	testutil.SetupDB(t)
	require.NoError(t, auth.InitJWTSecret("middleware-secret"))

	user := testutil.CreateUser(t, "Jane", "jane@example.com", models.RoleUser, nil)
	token := tokenFor(t, user)
	r := newEngine(AuthMiddleware())

	t.Run("missing token", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token "+token)
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "jane@example.com")
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: types.SessionCookie, Value: token})
		req.Header.Set("Authorization", "Bearer garbage")
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost := testutil.CreateUser(t, "Ghost", "ghost@example.com", models.RoleUser, nil)
		ghostToken := tokenFor(t, ghost)
		require.NoError(t, db.DB.Unscoped().Delete(&ghost).Error)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+ghostToken)
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	})

	t.Run("inactive user", func(t *testing.T) {
		idle := testutil.CreateUser(t, "Idle", "idle@example.com", models.RoleUser, nil)
		require.NoError(t, db.DB.Model(&idle).Update("active", false).Error)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, idle))
		assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
	})
}

func TestAdminOnly(t *testing.T) {
	testutil.SetupDB(t)
	require.NoError(t, auth.InitJWTSecret("middleware-secret"))

	user := testutil.CreateUser(t, "Jane", "jane@example.com", models.RoleUser, nil)
	admin := testutil.CreateUser(t, "Ada", "ada@example.com", models.RoleAdmin, nil)
	r := newEngine(AuthMiddleware(), AdminOnly())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, user))
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin))
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(newEngine(AdminOnly()), httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := newEngine(rl.Handler())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
	assert.Equal(t, 2, rl.size())

	rl.Cleanup(time.Hour)
	assert.Equal(t, 2, rl.size())

	rl.Cleanup(0)
	assert.Equal(t, 0, rl.size())
}
