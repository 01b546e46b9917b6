package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ballot is the immutable record of one voter's participation in one election.
type Ballot struct {
	ID          string            `gorm:"type:uuid;primaryKey" json:"id"`
	VoterID     string            `gorm:"type:uuid;not null;uniqueIndex:idx_ballot_voter_election" json:"voterId"`
	ElectionID  string            `gorm:"type:uuid;not null;uniqueIndex:idx_ballot_voter_election;index" json:"electionId"`
	SubmittedAt time.Time         `gorm:"not null" json:"submittedAt"`
	IPAddress   string            `json:"-"`
	UserAgent   string            `json:"-"`
	Selections  []BallotSelection `gorm:"foreignKey:BallotID" json:"selections,omitempty"`
}

func (b *Ballot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BallotSelection is one (position, candidate) choice on a ballot.
type BallotSelection struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	BallotID    string `gorm:"type:uuid;not null;uniqueIndex:idx_selection_ballot_position" json:"-"`
	PositionID  string `gorm:"type:uuid;not null;uniqueIndex:idx_selection_ballot_position" json:"positionId"`
	ElectionID  string `gorm:"type:uuid;not null;index" json:"-"`
	CandidateID string `gorm:"type:uuid;not null;index" json:"candidateId"`
	SortOrder   int    `gorm:"not null;default:0" json:"-"`
}

type SelectionInput struct {
	PositionID  string `json:"positionId" binding:"required"`
	CandidateID string `json:"candidateId" binding:"required"`
}

type CastBallotRequest struct {
	ElectionID string           `json:"electionId" binding:"required"`
	Selections []SelectionInput `json:"selections" binding:"required,min=1,dive"`
}
