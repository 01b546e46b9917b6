package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/models"
)

type AdminHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAdminHandler(db *gorm.DB, log *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, log: log}
}

// Dashboard returns headline counts and the latest ballots and discussions.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	now := time.Now().UTC()

	var totalElections, activeElections, totalCandidates, totalUsers, totalBallots int64
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.Election{}), &totalElections},
		{db.Model(&models.Election{}).Where("status = ? AND start_date <= ? AND end_date >= ?", models.ElectionActive, now, now), &activeElections},
		{db.Model(&models.Candidate{}), &totalCandidates},
		{db.Model(&models.User{}), &totalUsers},
		{db.Model(&models.Ballot{}), &totalBallots},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			h.log.Error("dashboard count failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error getting dashboard statistics"})
			return
		}
	}

	type recentBallot struct {
		ElectionID    string    `json:"electionId"`
		ElectionTitle string    `json:"electionTitle"`
		FirstName     string    `json:"firstName"`
		LastName      string    `json:"lastName"`
		SubmittedAt   time.Time `json:"submittedAt"`
	}
	recentBallots := []recentBallot{}
	err := db.Table("ballots").
		Select("ballots.election_id, elections.title AS election_title, users.first_name, users.last_name, ballots.submitted_at").
		Joins("JOIN elections ON elections.id = ballots.election_id").
		Joins("JOIN users ON users.id = ballots.voter_id").
		Order("ballots.submitted_at desc").
		Limit(5).
		Scan(&recentBallots).
		Error
	if err != nil {
		h.log.Error("dashboard recent ballots failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error getting dashboard statistics"})
		return
	}

	recentDiscussions := []models.Discussion{}
	if err := db.Preload("Author").Order("created_at desc").Limit(5).Find(&recentDiscussions).Error; err != nil {
		h.log.Error("dashboard recent discussions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error getting dashboard statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalElections":  totalElections,
		"activeElections": activeElections,
		"totalCandidates": totalCandidates,
		"totalUsers":      totalUsers,
		"totalVotes":      totalBallots,
		"recentActivity": gin.H{
			"votes":       recentBallots,
			"discussions": recentDiscussions,
		},
	})
}

// ListUsers returns users newest first, filtered by ?department= and ?role=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context())
	if department := c.Query("department"); department != "" && department != "all" {
		query = query.Where("department = ?", department)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Order("created_at desc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error getting users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "totalUsers": len(users)})
}

// UpdateUser changes a user's role, department, active flag or notes.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var input models.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	callerID, _ := extractUserID(c)
	if user.ID == callerID && ((input.IsActive != nil && !*input.IsActive) || (input.Role != "" && input.Role != models.RoleAdmin)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate or demote yourself"})
		return
	}

	if input.Role != "" {
		user.Role = input.Role
	}
	if input.Department != "" {
		user.Department = input.Department
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Notes != nil {
		user.Notes = *input.Notes
	}

	err := h.db.Model(&user).Select("role", "department", "is_active", "notes", "updated_at").Updates(&user).Error
	if err != nil {
		h.log.Error("update user failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error updating user"})
		return
	}

	h.log.Info("user updated by admin", zap.String("user_id", user.ID), zap.String("admin_id", callerID))
	c.JSON(http.StatusOK, user)
}
