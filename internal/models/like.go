package models

import "time"

// CommentLike records that a user liked a discussion comment. One per (comment, user).
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CommentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_like_comment_user" json:"commentId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_like_comment_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
