package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey), "role": c.GetString(RoleKey)})
}

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("secret")
	user := models.User{ID: "c0ffee00-0000-4000-8000-000000000001", Role: models.RoleVoter}

	valid, err := IssueToken(secret, user, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, user, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), user, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + valid, want: http.StatusOK},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + valid, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, want: http.StatusUnauthorized},
	}

	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), whoami)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), user.ID)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	secret := []byte("secret")
	r := gin.New()
	r.GET("/results", OptionalAuth(secret), whoami)

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","role":""}`, w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, models.DepartmentCCS)
	voter := testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS)

	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/admin", AuthMiddleware(testutil.TestSecret), RequireAdmin(db), whoami)

	call := func(user models.User) int {
		token, err := IssueToken(testutil.TestSecret, user, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call(admin))
	assert.Equal(t, http.StatusForbidden, call(voter))

	// a voter token that claims admin is still checked against the database
	voter.Role = models.RoleAdmin
	assert.Equal(t, http.StatusForbidden, call(voter))

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", admin.ID).Update("is_active", false).Error)
	assert.Equal(t, http.StatusForbidden, call(admin))
}
