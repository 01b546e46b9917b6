package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/votipian/council/backend/internal/models"
)

// Filters accepted by ListElections.
const (
	FilterAll       = "all"
	FilterActive    = "active"
	FilterUpcoming  = "upcoming"
	FilterCompleted = "completed"
)

// Registry is read access to elections, their positions and candidates.
type Registry struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// PositionSlate is one position together with everyone running for it.
type PositionSlate struct {
	Position   models.Position    `json:"position"`
	Candidates []models.Candidate `json:"candidates"`
}

// BallotShape is what a voter is shown before casting.
type BallotShape struct {
	Election  models.Election `json:"election"`
	Positions []PositionSlate `json:"positions"`
}

// MissingCandidates names the positions nobody is running for.
// A shape with missing candidates must not be offered for voting.
func (b BallotShape) MissingCandidates() []string {
	var missing []string
	for _, slate := range b.Positions {
		if len(slate.Candidates) == 0 {
			missing = append(missing, slate.Position.Name)
		}
	}
	return missing
}

// ParseID validates a UUID identifier and returns its canonical form.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", invalid(fmt.Sprintf("malformed id %q", raw))
	}
	return id.String(), nil
}

// GetElection loads an election with its positions in display order.
func (r *Registry) GetElection(ctx context.Context, electionID string) (*models.Election, error) {
	return r.loadElection(r.db.WithContext(ctx), electionID)
}

func (r *Registry) loadElection(db *gorm.DB, electionID string) (*models.Election, error) {
	id, err := ParseID(electionID)
	if err != nil {
		return nil, err
	}

	var election models.Election
	err = db.
		Preload("Positions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order ASC").Order("name ASC")
		}).
		First(&election, "id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("election not found")
		}
		return nil, r.logError("load_election", err, zap.String("election_id", id))
	}
	return &election, nil
}

// GetBallotShape returns the election with each position carrying its candidates.
func (r *Registry) GetBallotShape(ctx context.Context, electionID string) (*BallotShape, error) {
	election, err := r.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	candidates, err := r.Candidates(ctx, election.ID, "")
	if err != nil {
		return nil, err
	}

	byPosition := make(map[string][]models.Candidate, len(election.Positions))
	for _, candidate := range candidates {
		byPosition[candidate.PositionID] = append(byPosition[candidate.PositionID], candidate)
	}

	shape := &BallotShape{Positions: make([]PositionSlate, 0, len(election.Positions))}
	for _, position := range election.Positions {
		slate := byPosition[position.ID]
		if slate == nil {
			slate = []models.Candidate{}
		}
		shape.Positions = append(shape.Positions, PositionSlate{Position: position, Candidates: slate})
	}
	shape.Election = *election
	shape.Election.Positions = nil

	return shape, nil
}

// Candidates lists an election's candidates, optionally narrowed to one position.
func (r *Registry) Candidates(ctx context.Context, electionID, positionID string) ([]models.Candidate, error) {
	id, err := ParseID(electionID)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Where("election_id = ?", id)
	if positionID != "" {
		pid, err := ParseID(positionID)
		if err != nil {
			return nil, err
		}
		query = query.Where("position_id = ?", pid)
	}

	var candidates []models.Candidate
	if err := query.Order("name ASC").Find(&candidates).Error; err != nil {
		return nil, r.logError("list_candidates", err, zap.String("election_id", id))
	}
	return candidates, nil
}

// ListElections returns elections matching filter, newest start first.
func (r *Registry) ListElections(ctx context.Context, filter string) ([]models.Election, error) {
	now := r.now().UTC()
	query := r.db.WithContext(ctx).Model(&models.Election{})

	switch filter {
	case "", FilterAll:
	case FilterActive:
		query = query.Where("status = ? AND start_date <= ? AND end_date >= ?", models.ElectionActive, now, now)
	case FilterUpcoming:
		query = query.Where("start_date > ? AND status <> ?", now, models.ElectionCancelled)
	case FilterCompleted:
		query = query.Where("status = ? OR end_date < ?", models.ElectionCompleted, now)
	default:
		return nil, invalid(fmt.Sprintf("unknown election filter %q", filter))
	}

	var elections []models.Election
	err := query.
		Preload("Positions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order ASC")
		}).
		Order("start_date DESC").
		Find(&elections).
		Error
	if err != nil {
		return nil, r.logError("list_elections", err, zap.String("filter", filter))
	}
	return elections, nil
}

// LockForEdit takes the election row exclusively for the rest of tx and reports whether
// anyone has voted. Casting holds the same row shared, so a true result cannot go stale
// before tx commits.
func (r *Registry) LockForEdit(tx *gorm.DB, electionID string) (bool, error) {
	id, err := ParseID(electionID)
	if err != nil {
		return false, err
	}
	if err := lockElection(tx, id, clause.LockingStrengthUpdate); err != nil {
		return false, err
	}

	var count int64
	if err := tx.Model(&models.Ballot{}).Where("election_id = ?", id).Count(&count).Error; err != nil {
		return false, r.logError("count_ballots", err, zap.String("election_id", id))
	}
	return count > 0, nil
}

// lockElection row-locks the election with the given strength. sqlite ignores the clause.
func lockElection(tx *gorm.DB, electionID, strength string) error {
	var election models.Election
	err := tx.Clauses(clause.Locking{Strength: strength}).
		Select("id").
		Take(&election, "id = ?", electionID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("election not found")
	}
	return err
}

func (r *Registry) logError(event string, err error, fields ...zap.Field) error {
	r.log.Error("registry operation failed", append(fields, zap.String("event", event), zap.Error(err))...)
	return fmt.Errorf("%s: %w", event, err)
}
