package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/models"
)

type CommentHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCommentHandler(db *gorm.DB, log *zap.Logger) *CommentHandler {
	return &CommentHandler{db: db, log: log}
}

type likeCount struct {
	CommentID string
	Likes     int64
}

// countLikes fills in Likes for each comment with one grouped query.
func countLikes(db *gorm.DB, comments []models.DiscussionComment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, 0, len(comments))
	for _, comment := range comments {
		ids = append(ids, comment.ID)
	}

	var rows []likeCount
	err := db.Model(&models.CommentLike{}).
		Select("comment_id, COUNT(*) AS likes").
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Scan(&rows).
		Error
	if err != nil {
		return err
	}

	byComment := make(map[string]int64, len(rows))
	for _, row := range rows {
		byComment[row.CommentID] = row.Likes
	}
	for i := range comments {
		comments[i].Likes = byComment[comments[i].ID]
	}
	return nil
}

// CreateComment adds a comment to a discussion
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment content is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var discussion models.Discussion
	if err := h.db.First(&discussion, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Discussion not found"})
		return
	}

	comment := models.DiscussionComment{
		DiscussionID: discussion.ID,
		AuthorID:     authorID,
		Content:      input.Content,
	}
	if err := h.db.Omit("Author").Create(&comment).Error; err != nil {
		h.log.Error("create comment failed", zap.String("discussion_id", discussion.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	h.db.Preload("Author").First(&comment, "id = ?", comment.ID)
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes a comment and its likes (author or admin)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	comment, found := h.findComment(c)
	if !found {
		return
	}

	if comment.AuthorID != userID && !callerIsAdmin(c, h.db) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DiscussionComment{}, "id = ?", comment.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment removed"})
}

// ToggleLike likes a comment, or removes the caller's like if it is already there.
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	comment, found := h.findComment(c)
	if !found {
		return
	}

	liked := false
	var existing models.CommentLike
	err := h.db.Where("comment_id = ? AND user_id = ?", comment.ID, userID).First(&existing).Error
	switch {
	case err == nil:
		if err := h.db.Delete(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
			return
		}
	case isNotFound(err):
		like := models.CommentLike{CommentID: comment.ID, UserID: userID}
		if err := h.db.Create(&like).Error; err != nil && !isDuplicate(err) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
			return
		}
		liked = true
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
		return
	}

	var likes int64
	h.db.Model(&models.CommentLike{}).Where("comment_id = ?", comment.ID).Count(&likes)

	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": likes})
}

// findComment loads :commentId and checks it belongs to discussion :id.
func (h *CommentHandler) findComment(c *gin.Context) (models.DiscussionComment, bool) {
	var comment models.DiscussionComment
	err := h.db.Where("id = ? AND discussion_id = ?", c.Param("commentId"), c.Param("id")).First(&comment).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return comment, false
	}
	return comment, true
}
