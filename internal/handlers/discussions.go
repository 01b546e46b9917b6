package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/models"
)

type DiscussionHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDiscussionHandler(db *gorm.DB, log *zap.Logger) *DiscussionHandler {
	return &DiscussionHandler{db: db, log: log}
}

// GetDiscussions lists discussions newest first, filtered by ?category= and ?relatedTo=.
func (h *DiscussionHandler) GetDiscussions(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Preload("Author")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if relatedTo := c.Query("relatedTo"); relatedTo != "" {
		query = query.Where("related_to = ?", relatedTo)
	}

	var discussions []models.Discussion
	if err := query.Order("created_at desc").Find(&discussions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch discussions"})
		return
	}

	if discussions == nil {
		discussions = []models.Discussion{}
	}
	c.JSON(http.StatusOK, discussions)
}

// GetDiscussion returns one discussion with its comments and their like counts.
func (h *DiscussionHandler) GetDiscussion(c *gin.Context) {
	var discussion models.Discussion
	err := h.db.WithContext(c.Request.Context()).
		Preload("Author").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc") }).
		Preload("Comments.Author").
		First(&discussion, "id = ?", c.Param("id")).
		Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Discussion not found"})
		return
	}

	if err := countLikes(h.db.WithContext(c.Request.Context()), discussion.Comments); err != nil {
		h.log.Error("count likes failed", zap.String("discussion_id", discussion.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, discussion)
}

func (h *DiscussionHandler) CreateDiscussion(c *gin.Context) {
	var input models.CreateDiscussionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	discussion := models.Discussion{
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		AuthorID:  authorID,
		Category:  input.Category,
		RelatedTo: input.RelatedTo,
	}
	if discussion.Category == "" {
		discussion.Category = models.CategoryGeneral
	}

	if err := h.db.Omit("Author").Create(&discussion).Error; err != nil {
		h.log.Error("create discussion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create discussion"})
		return
	}

	h.db.Preload("Author").First(&discussion, "id = ?", discussion.ID)
	c.JSON(http.StatusCreated, discussion)
}

// UpdateDiscussion edits a discussion (author or admin).
func (h *DiscussionHandler) UpdateDiscussion(c *gin.Context) {
	var input models.UpdateDiscussionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	discussion, ok := h.ownedDiscussion(c, "edit")
	if !ok {
		return
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
		discussion.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil && *input.Content != "" {
		discussion.Content = *input.Content
	}
	if input.Category != nil && *input.Category != "" {
		discussion.Category = *input.Category
	}

	if err := h.db.Model(&discussion).Select("title", "content", "category", "updated_at").Updates(&discussion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update discussion"})
		return
	}
	h.db.Preload("Author").First(&discussion, "id = ?", discussion.ID)

	c.JSON(http.StatusOK, discussion)
}

// DeleteDiscussion removes a discussion with its comments and likes (author or admin).
func (h *DiscussionHandler) DeleteDiscussion(c *gin.Context) {
	discussion, ok := h.ownedDiscussion(c, "delete")
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		comments := tx.Model(&models.DiscussionComment{}).Select("id").Where("discussion_id = ?", discussion.ID)
		if err := tx.Where("comment_id IN (?)", comments).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("discussion_id = ?", discussion.ID).Delete(&models.DiscussionComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Discussion{}, "id = ?", discussion.ID).Error
	})
	if err != nil {
		h.log.Error("delete discussion failed", zap.String("discussion_id", discussion.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete discussion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Discussion removed"})
}

// ownedDiscussion loads :id and checks that the caller wrote it or is an admin.
func (h *DiscussionHandler) ownedDiscussion(c *gin.Context, action string) (models.Discussion, bool) {
	var discussion models.Discussion

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return discussion, false
	}

	if err := h.db.First(&discussion, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Discussion not found"})
		return discussion, false
	}

	if discussion.AuthorID != userID && !callerIsAdmin(c, h.db) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only " + action + " your own discussions"})
		return discussion, false
	}
	return discussion, true
}
