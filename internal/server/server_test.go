package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/config"
	"github.com/votipian/council/backend/internal/database"
	"github.com/votipian/council/backend/internal/handlers"
	"github.com/votipian/council/backend/internal/middleware"
	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/testutil"
	"github.com/votipian/council/backend/internal/verify"
	"github.com/votipian/council/backend/internal/voting"
)

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	cfg := config.Config{
		Port:        "0",
		JWTSecret:   testutil.TestSecret,
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"https://vote.example.edu"},
	}
	log := zap.NewNop()
	h := handlers.NewHandler(db, voting.NewService(db, log), verify.NoopSender{}, cfg, log)

	s := &Server{cfg: cfg, db: database.Wrap(db, log), handler: h, log: log}
	return s, s.RegisterRoutes()
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up", body["status"])
}

func TestRouteGuards(t *testing.T) {
	s, router := newTestServer(t)
	db := s.db.GetDB()
	voter := testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, models.DepartmentCCS)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})

	token := func(user models.User) string {
		raw, err := middleware.IssueToken(testutil.TestSecret, user, time.Hour)
		require.NoError(t, err)
		return raw
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"list elections", http.MethodGet, "/api/elections", "", http.StatusOK},
		{"ballot is public", http.MethodGet, "/api/elections/" + fx.Election.ID + "/ballot", "", http.StatusOK},
		{"results before close", http.MethodGet, "/api/elections/" + fx.Election.ID + "/results", "", http.StatusForbidden},
		{"admin previews results", http.MethodGet, "/api/elections/" + fx.Election.ID + "/results", token(admin), http.StatusOK},
		{"vote needs auth", http.MethodPost, "/api/votes", "", http.StatusUnauthorized},
		{"check needs auth", http.MethodGet, "/api/votes/check/" + fx.Election.ID, "", http.StatusUnauthorized},
		{"me", http.MethodGet, "/api/me", token(voter), http.StatusOK},
		{"public profile", http.MethodGet, "/api/users/" + voter.ID, "", http.StatusOK},
		{"stats admin only", http.MethodGet, "/api/votes/stats/" + fx.Election.ID, token(voter), http.StatusForbidden},
		{"stats for admin", http.MethodGet, "/api/votes/stats/" + fx.Election.ID, token(admin), http.StatusOK},
		{"dashboard admin only", http.MethodGet, "/api/admin/dashboard", token(voter), http.StatusForbidden},
		{"bad token", http.MethodGet, "/api/me", "not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/elections", nil)
	req.Header.Set("Origin", "https://vote.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://vote.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewServer(t *testing.T) {
	s, _ := newTestServer(t)

	srv := NewServer(s.cfg, s.log, s.db, s.handler)
	assert.Equal(t, "0.0.0.0:0", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.NotNil(t, srv.Handler)
}
