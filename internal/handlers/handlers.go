package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/config"
	"github.com/votipian/council/backend/internal/middleware"
	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/verify"
	"github.com/votipian/council/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Election   *ElectionHandler
	Candidate  *CandidateHandler
	Vote       *VoteHandler
	Discussion *DiscussionHandler
	Comment    *CommentHandler
	Admin      *AdminHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, svc *voting.Service, verifier verify.Sender, cfg config.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(db, verifier, cfg.JWTSecret, cfg.JWTTTL, log.Named("auth")),
		User:       NewUserHandler(db, log.Named("users")),
		Election:   NewElectionHandler(db, svc, log.Named("elections")),
		Candidate:  NewCandidateHandler(db, svc, log.Named("candidates")),
		Vote:       NewVoteHandler(svc, log.Named("votes")),
		Discussion: NewDiscussionHandler(db, log.Named("discussions")),
		Comment:    NewCommentHandler(db, log.Named("comments")),
		Admin:      NewAdminHandler(db, log.Named("admin")),
	}
}

func extractUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserIDKey)
	return userID, userID != ""
}

// callerIsAdmin checks the stored role, not the token claim.
func callerIsAdmin(c *gin.Context, db *gorm.DB) bool {
	userID, ok := extractUserID(c)
	if !ok {
		return false
	}
	var user models.User
	err := db.WithContext(c.Request.Context()).Select("role", "is_active").First(&user, "id = ?", userID).Error
	return err == nil && user.IsActive && user.Role == models.RoleAdmin
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
