package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiscussionComment struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	DiscussionID string    `gorm:"type:uuid;not null;index" json:"discussionId"`
	AuthorID     string    `gorm:"type:uuid;not null" json:"authorId"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"author"`
	Content      string    `gorm:"not null" json:"content"`
	Likes        int64     `gorm:"-" json:"likes"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (c *DiscussionComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}
