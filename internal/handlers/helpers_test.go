package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/config"
	"github.com/votipian/council/backend/internal/middleware"
	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/testutil"
	"github.com/votipian/council/backend/internal/verify"
	"github.com/votipian/council/backend/internal/voting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSender approves exactly one code.
type fakeSender struct {
	sent []string
	code string
}

func (f *fakeSender) Enabled() bool { return true }

func (f *fakeSender) Send(_ context.Context, email string) error {
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeSender) Check(_ context.Context, _ string, code string) (bool, error) {
	return code == f.code, nil
}

type testApp struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestApp(t *testing.T, verifier verify.Sender) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := config.Config{JWTSecret: testutil.TestSecret, JWTTTL: time.Hour}
	h := NewHandler(db, voting.NewService(db, zap.NewNop()), verifier, cfg, zap.NewNop())

	r := gin.New()
	api := r.Group("/api")
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.POST("/auth/verify-email", h.Auth.VerifyEmail)
	api.GET("/elections/:id/ballot", h.Election.GetBallot)
	api.GET("/elections/:id/results", middleware.OptionalAuth(cfg.JWTSecret), h.Election.GetResults)
	api.GET("/users/:id", h.User.GetUserProfile)
	api.GET("/candidates", h.Candidate.GetCandidates)

	auth := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret))
	auth.POST("/votes", h.Vote.CastVote)
	auth.GET("/votes/check/:electionId", h.Vote.CheckVote)
	auth.PUT("/users/me", h.User.UpdateProfile)
	auth.PUT("/discussions/:id/comments/:commentId/like", h.Comment.ToggleLike)

	admin := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret), middleware.RequireAdmin(db))
	admin.POST("/elections", h.Election.CreateElection)
	admin.PUT("/elections/:id", h.Election.UpdateElection)
	admin.DELETE("/elections/:id", h.Election.DeleteElection)
	admin.POST("/candidates", h.Candidate.CreateCandidate)
	admin.PUT("/candidates/:id", h.Candidate.UpdateCandidate)
	admin.DELETE("/candidates/:id", h.Candidate.DeleteCandidate)
	admin.GET("/admin/dashboard", h.Admin.Dashboard)
	admin.GET("/admin/users", h.Admin.ListUsers)
	admin.PUT("/admin/users/:id", h.Admin.UpdateUser)

	return &testApp{db: db, router: r}
}

func (a *testApp) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := middleware.IssueToken(testutil.TestSecret, user, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends body as JSON and decodes the response into a map.
// A string body is sent as-is.
func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if text, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(text))
	} else if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func ballotBody(fx testutil.ElectionFixture, president, secretary string) gin.H {
	return gin.H{
		"electionId": fx.Election.ID,
		"selections": []gin.H{
			{"positionId": fx.Position("President").ID, "candidateId": fx.Candidate("President", president).ID},
			{"positionId": fx.Position("Secretary").ID, "candidateId": fx.Candidate("Secretary", secretary).ID},
		},
	}
}
