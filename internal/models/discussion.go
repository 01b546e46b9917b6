package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CategoryGeneral   = "General"
	CategoryElection  = "Election"
	CategoryCandidate = "Candidate"
)

type Discussion struct {
	ID        string              `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string              `gorm:"not null" json:"title"`
	Content   string              `gorm:"not null" json:"content"`
	AuthorID  string              `gorm:"type:uuid;not null;index" json:"authorId"`
	Author    User                `gorm:"foreignKey:AuthorID" json:"author"`
	Category  string              `gorm:"not null;default:General;index" json:"category"`
	RelatedTo *string             `gorm:"type:uuid" json:"relatedTo,omitempty"`
	Comments  []DiscussionComment `gorm:"foreignKey:DiscussionID" json:"comments,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *Discussion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type CreateDiscussionRequest struct {
	Title     string  `json:"title" binding:"required"`
	Content   string  `json:"content" binding:"required"`
	Category  string  `json:"category" binding:"omitempty,oneof=General Election Candidate"`
	RelatedTo *string `json:"relatedTo"`
}

type UpdateDiscussionRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category" binding:"omitempty,oneof=General Election Candidate"`
}
