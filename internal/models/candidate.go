package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Candidate names are unique within one (election, position) race.
// VoteCount is a denormalized counter; the ballot log is authoritative.
type Candidate struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string  `gorm:"not null;uniqueIndex:idx_candidate_race" json:"name"`
	ElectionID string  `gorm:"type:uuid;not null;uniqueIndex:idx_candidate_race" json:"electionId"`
	PositionID string  `gorm:"type:uuid;not null;uniqueIndex:idx_candidate_race" json:"positionId"`
	UserID     *string `gorm:"type:uuid" json:"userId,omitempty"`
	Department string  `json:"department"`
	Platform   string  `json:"platform"`
	VoteCount  int64   `gorm:"not null;default:0" json:"voteCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CreateCandidateRequest struct {
	Name       string  `json:"name" binding:"required"`
	ElectionID string  `json:"electionId" binding:"required"`
	PositionID string  `json:"positionId" binding:"required"`
	UserID     *string `json:"userId"`
	Department string  `json:"department" binding:"omitempty,oneof=CEA CCS CBA CEDU CACS"`
	Platform   string  `json:"platform"`
}

type UpdateCandidateRequest struct {
	Name       *string `json:"name"`
	PositionID *string `json:"positionId"`
	Department *string `json:"department" binding:"omitempty,oneof=CEA CCS CBA CEDU CACS"`
	Platform   *string `json:"platform"`
}
