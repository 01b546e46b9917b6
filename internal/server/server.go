package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/config"
	"github.com/votipian/council/backend/internal/database"
	"github.com/votipian/council/backend/internal/handlers"
	"github.com/votipian/council/backend/internal/middleware"
)

type Server struct {
	cfg     config.Config
	db      database.Service
	handler *handlers.Handler
	log     *zap.Logger
}

// NewServer wires the router into an http.Server listening on cfg.Port.
func NewServer(cfg config.Config, log *zap.Logger, db database.Service, handler *handlers.Handler) *http.Server {
	newServer := &Server{
		cfg:     cfg,
		db:      db,
		handler: handler,
		log:     log,
	}

	return &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      newServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(s.log.Named("http")))

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.healthHandler)

	secret := s.cfg.JWTSecret
	h := s.handler

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)
		api.POST("/auth/verify-email", h.Auth.VerifyEmail)
		api.POST("/auth/resend-verification", h.Auth.ResendVerification)

		// Election routes (public reads)
		api.GET("/elections", h.Election.GetElections)
		api.GET("/elections/:id", h.Election.GetElection)
		api.GET("/elections/:id/ballot", h.Election.GetBallot)
		api.GET("/elections/:id/positions", h.Election.GetPositions)
		api.GET("/elections/:id/candidates", h.Election.GetCandidates)
		api.GET("/elections/:id/results", middleware.OptionalAuth(secret), h.Election.GetResults)

		api.GET("/candidates", h.Candidate.GetCandidates)
		api.GET("/candidates/:id", h.Candidate.GetCandidate)

		api.GET("/discussions", h.Discussion.GetDiscussions)
		api.GET("/discussions/:id", h.Discussion.GetDiscussion)

		api.GET("/users/:id", h.User.GetUserProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(secret))
		{
			protected.GET("/me", h.Auth.GetMe)
			protected.PUT("/users/me", h.User.UpdateProfile)

			protected.POST("/votes", h.Vote.CastVote)
			protected.GET("/votes/check/:electionId", h.Vote.CheckVote)

			protected.POST("/discussions", h.Discussion.CreateDiscussion)
			protected.PUT("/discussions/:id", h.Discussion.UpdateDiscussion)
			protected.DELETE("/discussions/:id", h.Discussion.DeleteDiscussion)
			protected.POST("/discussions/:id/comments", h.Comment.CreateComment)
			protected.DELETE("/discussions/:id/comments/:commentId", h.Comment.DeleteComment)
			protected.PUT("/discussions/:id/comments/:commentId/like", h.Comment.ToggleLike)
		}

		admin := api.Group("")
		admin.Use(middleware.AuthMiddleware(secret), middleware.RequireAdmin(s.db.GetDB()))
		{
			admin.POST("/elections", h.Election.CreateElection)
			admin.PUT("/elections/:id", h.Election.UpdateElection)
			admin.DELETE("/elections/:id", h.Election.DeleteElection)
			admin.POST("/elections/:id/reconcile", h.Election.Reconcile)

			admin.POST("/candidates", h.Candidate.CreateCandidate)
			admin.PUT("/candidates/:id", h.Candidate.UpdateCandidate)
			admin.DELETE("/candidates/:id", h.Candidate.DeleteCandidate)

			admin.GET("/votes/stats/:electionId", h.Vote.GetStats)

			admin.GET("/admin/dashboard", h.Admin.Dashboard)
			admin.GET("/admin/users", h.Admin.ListUsers)
			admin.PUT("/admin/users/:id", h.Admin.UpdateUser)
		}
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	health := s.db.Health()
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
