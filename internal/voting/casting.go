package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/votipian/council/backend/internal/models"
)

// BallotService records ballots. A voter casts at most one ballot per election.
type BallotService struct {
	db       *gorm.DB
	log      *zap.Logger
	registry *Registry
	now      func() time.Time
}

type Selection struct {
	PositionID  string
	CandidateID string
}

type CastRequest struct {
	VoterID    string
	ElectionID string
	Selections []Selection
	IPAddress  string
	UserAgent  string
}

type Receipt struct {
	BallotID    string    `json:"ballotId"`
	ElectionID  string    `json:"electionId"`
	SubmittedAt time.Time `json:"timestamp"`
}

// CastBallot validates req against the election and records it together with the
// counter increments in one transaction. Validation runs under a shared lock on the
// election row, so the ballot shape cannot change between the checks and the insert.
// The first failed check wins and nothing is written.
func (s *BallotService) CastBallot(ctx context.Context, req CastRequest) (*Receipt, error) {
	if strings.TrimSpace(req.VoterID) == "" {
		return nil, invalid("voter identity is required")
	}
	electionID, err := ParseID(req.ElectionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ballot := models.Ballot{
		ID:          uuid.NewString(),
		VoterID:     req.VoterID,
		ElectionID:  electionID,
		SubmittedAt: now,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
	}
	var selections []models.BallotSelection

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockElection(tx, electionID, clause.LockingStrengthShare); err != nil {
			return err
		}

		election, err := s.registry.loadElection(tx, electionID)
		if err != nil {
			return err
		}
		if err := checkWindow(election, now); err != nil {
			return err
		}
		if err := s.checkVoter(tx, req.VoterID, election); err != nil {
			return err
		}

		voted, err := s.hasBallot(tx, req.VoterID, election.ID)
		if err != nil {
			return err
		}
		if voted {
			return alreadyVoted(election.ID)
		}

		ordered, err := coverPositions(election, req.Selections)
		if err != nil {
			return err
		}
		if err := s.checkCandidates(tx, election, ordered); err != nil {
			return err
		}

		selections = make([]models.BallotSelection, 0, len(ordered))
		for i, sel := range ordered {
			selections = append(selections, models.BallotSelection{
				BallotID:    ballot.ID,
				PositionID:  sel.PositionID,
				ElectionID:  election.ID,
				CandidateID: sel.CandidateID,
				SortOrder:   i,
			})
		}

		if err := tx.Omit(clause.Associations).Create(&ballot).Error; err != nil {
			return err
		}
		if err := tx.Create(&selections).Error; err != nil {
			return err
		}
		for _, sel := range selections {
			res := tx.Model(&models.Candidate{}).
				Where("id = ?", sel.CandidateID).
				UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("candidate %s missing during increment", sel.CandidateID)
			}
		}
		return nil
	})
	if err != nil {
		if IsUserError(err) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, alreadyVoted(electionID)
		}
		return nil, s.logError("cast_ballot", err,
			zap.String("election_id", electionID),
			zap.String("voter_id", req.VoterID),
		)
	}

	s.log.Info("ballot cast",
		zap.String("ballot_id", ballot.ID),
		zap.String("election_id", electionID),
		zap.String("voter_id", req.VoterID),
		zap.Int("selections", len(selections)),
	)

	return &Receipt{BallotID: ballot.ID, ElectionID: electionID, SubmittedAt: now}, nil
}

// HasVoted reports whether voterID has a ballot in the election and when it was submitted.
func (s *BallotService) HasVoted(ctx context.Context, voterID, electionID string) (bool, *time.Time, error) {
	db := s.db.WithContext(ctx)

	id, err := ParseID(electionID)
	if err != nil {
		return false, nil, err
	}
	var exists int64
	if err := db.Model(&models.Election{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return false, nil, s.logError("check_election", err, zap.String("election_id", id))
	}
	if exists == 0 {
		return false, nil, notFound("election not found")
	}

	var ballot models.Ballot
	err = db.Select("submitted_at").
		Where("voter_id = ? AND election_id = ?", voterID, id).
		Take(&ballot).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, s.logError("check_vote", err, zap.String("election_id", id), zap.String("voter_id", voterID))
	}
	submitted := ballot.SubmittedAt.UTC()
	return true, &submitted, nil
}

func (s *BallotService) hasBallot(db *gorm.DB, voterID, electionID string) (bool, error) {
	var count int64
	err := db.Model(&models.Ballot{}).
		Where("voter_id = ? AND election_id = ?", voterID, electionID).
		Count(&count).
		Error
	if err != nil {
		return false, s.logError("count_ballots", err, zap.String("election_id", electionID))
	}
	return count > 0, nil
}

// checkVoter requires an active, verified account from one of the election's departments.
func (s *BallotService) checkVoter(tx *gorm.DB, voterID string, election *models.Election) error {
	ineligible := func(reason, msg string) error {
		return &Error{Kind: ErrNotEligible, Msg: msg, Reason: reason, ElectionID: election.ID}
	}

	id, err := ParseID(voterID)
	if err != nil {
		return ineligible(ReasonAccountInactive, "voter account not found")
	}

	var voter models.User
	err = tx.Select("id", "department", "is_active", "is_email_verified").Take(&voter, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ineligible(ReasonAccountInactive, "voter account not found")
		}
		return s.logError("load_voter", err, zap.String("voter_id", id))
	}

	switch {
	case !voter.IsActive:
		return ineligible(ReasonAccountInactive, "your account has been deactivated")
	case !voter.IsEmailVerified:
		return ineligible(ReasonEmailUnverified, "please verify your email before voting")
	case !departmentEligible(election.EligibleDepartments, voter.Department):
		return ineligible(ReasonDepartment, fmt.Sprintf("students from %s are not eligible for this election", voter.Department))
	}
	return nil
}

// departmentEligible treats an empty list or ALL as open to every department.
func departmentEligible(eligible []string, department string) bool {
	if len(eligible) == 0 {
		return true
	}
	for _, d := range eligible {
		if d == models.DepartmentAll || d == department {
			return true
		}
	}
	return false
}

// checkCandidates requires every selected candidate to run for the selected position in this election.
func (s *BallotService) checkCandidates(db *gorm.DB, election *models.Election, ordered []Selection) error {
	ids := make([]string, 0, len(ordered))
	for _, sel := range ordered {
		if _, err := uuid.Parse(sel.CandidateID); err == nil {
			ids = append(ids, sel.CandidateID)
		}
	}

	var candidates []models.Candidate
	if len(ids) > 0 {
		if err := db.Where("id IN ?", ids).Find(&candidates).Error; err != nil {
			return s.logError("load_candidates", err, zap.String("election_id", election.ID))
		}
	}
	byID := make(map[string]models.Candidate, len(candidates))
	for _, candidate := range candidates {
		byID[candidate.ID] = candidate
	}

	names := positionNames(election)
	for _, sel := range ordered {
		candidate, ok := byID[sel.CandidateID]
		if !ok || candidate.ElectionID != election.ID || candidate.PositionID != sel.PositionID {
			name := names[sel.PositionID]
			return &Error{
				Kind:       ErrInvalidCandidate,
				Msg:        fmt.Sprintf("invalid candidate selected for %s", name),
				Position:   name,
				ElectionID: election.ID,
			}
		}
	}
	return nil
}

func (s *BallotService) logError(event string, err error, fields ...zap.Field) error {
	s.log.Error("ballot operation failed", append(fields, zap.String("event", event), zap.Error(err))...)
	return fmt.Errorf("%s: %w", event, err)
}

func checkWindow(election *models.Election, now time.Time) error {
	reason := ""
	msg := ""
	switch {
	case now.Before(election.StartDate):
		reason, msg = ReasonNotStarted, "election has not started yet"
	case now.After(election.EndDate):
		reason, msg = ReasonEnded, "election has ended"
	case election.Status != models.ElectionActive:
		reason, msg = ReasonInactive, "election is not active"
	case len(election.Positions) == 0:
		reason, msg = ReasonNoPositions, "election has no positions to vote for"
	default:
		return nil
	}
	return &Error{Kind: ErrNotOpen, Msg: msg, Reason: reason, ElectionID: election.ID}
}

// coverPositions checks that selections name every position exactly once and
// returns them in position display order.
func coverPositions(election *models.Election, selections []Selection) ([]Selection, error) {
	names := positionNames(election)
	chosen := make(map[string]Selection, len(selections))

	for _, sel := range selections {
		sel.PositionID = strings.ToLower(strings.TrimSpace(sel.PositionID))
		sel.CandidateID = strings.ToLower(strings.TrimSpace(sel.CandidateID))

		name, known := names[sel.PositionID]
		if !known {
			return nil, incomplete(election.ID, sel.PositionID, fmt.Sprintf("position %s is not part of this election", sel.PositionID))
		}
		if _, dup := chosen[sel.PositionID]; dup {
			return nil, incomplete(election.ID, name, fmt.Sprintf("more than one selection for %s", name))
		}
		chosen[sel.PositionID] = sel
	}

	ordered := make([]Selection, 0, len(election.Positions))
	for _, position := range election.Positions {
		sel, ok := chosen[position.ID]
		if !ok {
			return nil, incomplete(election.ID, position.Name, fmt.Sprintf("please select a candidate for %s", position.Name))
		}
		ordered = append(ordered, sel)
	}
	return ordered, nil
}

func positionNames(election *models.Election) map[string]string {
	names := make(map[string]string, len(election.Positions))
	for _, position := range election.Positions {
		names[position.ID] = position.Name
	}
	return names
}

func incomplete(electionID, position, msg string) error {
	return &Error{Kind: ErrIncompleteBallot, Msg: msg, Position: position, ElectionID: electionID}
}

func alreadyVoted(electionID string) error {
	return &Error{Kind: ErrAlreadyVoted, Msg: "you have already voted in this election", ElectionID: electionID}
}

// isUniqueViolation matches translated gorm errors, raw postgres errors and sqlite messages.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
