package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ElectionDraft     = "draft"
	ElectionActive    = "active"
	ElectionCompleted = "completed"
	ElectionCancelled = "cancelled"
)

type Election struct {
	ID                  string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title               string     `gorm:"not null" json:"title"`
	Description         string     `json:"description"`
	StartDate           time.Time  `gorm:"not null;index" json:"startDate"`
	EndDate             time.Time  `gorm:"not null;index" json:"endDate"`
	Status              string     `gorm:"not null;default:draft;index" json:"status"`
	EligibleDepartments []string   `gorm:"serializer:json" json:"eligibleDepartments"`
	CreatedByID         string     `gorm:"type:uuid;not null" json:"createdBy"`
	Positions           []Position `gorm:"foreignKey:ElectionID" json:"positions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Election) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Position is a contestable role inside exactly one election.
type Position struct {
	ID            string      `gorm:"type:uuid;primaryKey" json:"id"`
	ElectionID    string      `gorm:"type:uuid;not null;index" json:"electionId"`
	Name          string      `gorm:"not null" json:"name"`
	Description   string      `json:"description"`
	MaxCandidates int         `gorm:"not null;default:1" json:"maxCandidates"`
	SortOrder     int         `gorm:"not null;default:0" json:"order"`
	Candidates    []Candidate `gorm:"foreignKey:PositionID" json:"candidates,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type PositionInput struct {
	ID            string `json:"id"`
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	MaxCandidates int    `json:"maxCandidates" binding:"omitempty,min=1"`
}

type CreateElectionRequest struct {
	Title               string          `json:"title" binding:"required"`
	Description         string          `json:"description" binding:"required"`
	StartDate           time.Time       `json:"startDate" binding:"required"`
	EndDate             time.Time       `json:"endDate" binding:"required"`
	Status              string          `json:"status" binding:"omitempty,oneof=draft active completed cancelled"`
	EligibleDepartments []string        `json:"eligibleDepartments" binding:"omitempty,dive,oneof=CEA CCS CBA CEDU CACS ALL"`
	Positions           []PositionInput `json:"positions" binding:"required,min=1,dive"`
}

// UpdateElectionRequest carries optional fields; nil means "leave unchanged".
type UpdateElectionRequest struct {
	Title               *string          `json:"title"`
	Description         *string          `json:"description"`
	StartDate           *time.Time       `json:"startDate"`
	EndDate             *time.Time       `json:"endDate"`
	Status              *string          `json:"status" binding:"omitempty,oneof=draft active completed cancelled"`
	EligibleDepartments []string         `json:"eligibleDepartments" binding:"omitempty,dive,oneof=CEA CCS CBA CEDU CACS ALL"`
	Positions           *[]PositionInput `json:"positions" binding:"omitnil,min=1,dive"`
}
