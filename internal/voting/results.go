package voting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/votipian/council/backend/internal/models"
)

// Aggregator tallies recorded ballots. The ballot log is the source of truth;
// candidate vote_count columns are a cache that Reconcile repairs.
type Aggregator struct {
	db       *gorm.DB
	log      *zap.Logger
	registry *Registry
	now      func() time.Time
}

type CandidateResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	VoteCount  int64  `json:"voteCount"`
}

// PositionResult lists a race's candidates by descending tally. Winner is nil
// unless exactly one candidate holds a positive maximum; Tie marks a shared one.
type PositionResult struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	TotalVotes int64             `json:"totalVotes"`
	Candidates []CandidateResult `json:"candidates"`
	Winner     *CandidateResult  `json:"winner"`
	Tie        bool              `json:"tie"`
}

type Results struct {
	ElectionID string           `json:"electionId"`
	Title      string           `json:"title"`
	Status     string           `json:"status"`
	EndDate    time.Time        `json:"endDate"`
	TotalVotes int64            `json:"totalVotes"`
	Positions  []PositionResult `json:"positions"`
	// Final is false for an admin preview of a running election.
	Final bool `json:"final"`
}

type CounterFix struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	Before      int64  `json:"before"`
	After       int64  `json:"after"`
}

type tallyRow struct {
	CandidateID string
	Votes       int64
}

// GetResults recomputes the election's results from the ballot log.
// Non-admins only see them once the election has ended or been completed.
func (a *Aggregator) GetResults(ctx context.Context, electionID string, callerIsAdmin bool) (*Results, error) {
	db := a.db.WithContext(ctx)

	election, err := a.registry.loadElection(db, electionID)
	if err != nil {
		return nil, err
	}

	final := resultsFinal(election, a.now().UTC())
	if !final && !callerIsAdmin {
		return nil, &Error{Kind: ErrNotAvailable, Msg: "results will be available after the election ends", ElectionID: election.ID}
	}

	tallies, err := a.tally(db, election.ID)
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	if err := db.Where("election_id = ?", election.ID).Find(&candidates).Error; err != nil {
		return nil, a.logError("load_candidates", err, zap.String("election_id", election.ID))
	}

	var ballots int64
	if err := db.Model(&models.Ballot{}).Where("election_id = ?", election.ID).Count(&ballots).Error; err != nil {
		return nil, a.logError("count_ballots", err, zap.String("election_id", election.ID))
	}

	byPosition := make(map[string][]CandidateResult, len(election.Positions))
	for _, candidate := range candidates {
		byPosition[candidate.PositionID] = append(byPosition[candidate.PositionID], CandidateResult{
			ID:         candidate.ID,
			Name:       candidate.Name,
			Department: candidate.Department,
			VoteCount:  tallies[candidate.ID],
		})
	}

	results := &Results{
		ElectionID: election.ID,
		Title:      election.Title,
		Status:     election.Status,
		EndDate:    election.EndDate,
		TotalVotes: ballots,
		Positions:  make([]PositionResult, 0, len(election.Positions)),
		Final:      final,
	}
	for _, position := range election.Positions {
		results.Positions = append(results.Positions, rankPosition(position, byPosition[position.ID]))
	}

	return results, nil
}

// Reconcile rewrites every candidate counter that disagrees with the ballot log.
// It holds the election row exclusively, so no cast can commit between the tally
// and the rewrite.
func (a *Aggregator) Reconcile(ctx context.Context, electionID string) ([]CounterFix, error) {
	election, err := a.registry.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	fixes := []CounterFix{}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockElection(tx, election.ID, clause.LockingStrengthUpdate); err != nil {
			return err
		}

		tallies, err := a.tally(tx, election.ID)
		if err != nil {
			return err
		}

		var candidates []models.Candidate
		if err := tx.Where("election_id = ?", election.ID).Order("name ASC").Find(&candidates).Error; err != nil {
			return err
		}

		for _, candidate := range candidates {
			want := tallies[candidate.ID]
			if candidate.VoteCount == want {
				continue
			}
			err := tx.Model(&models.Candidate{}).
				Where("id = ?", candidate.ID).
				UpdateColumn("vote_count", want).
				Error
			if err != nil {
				return err
			}
			fixes = append(fixes, CounterFix{CandidateID: candidate.ID, Name: candidate.Name, Before: candidate.VoteCount, After: want})
		}
		return nil
	})
	if err != nil {
		return nil, a.logError("reconcile", err, zap.String("election_id", election.ID))
	}

	if len(fixes) > 0 {
		a.log.Warn("vote counters reconciled", zap.String("election_id", election.ID), zap.Int("fixed", len(fixes)))
	}
	return fixes, nil
}

func (a *Aggregator) tally(db *gorm.DB, electionID string) (map[string]int64, error) {
	var rows []tallyRow
	err := db.Model(&models.BallotSelection{}).
		Select("candidate_id, COUNT(*) AS votes").
		Where("election_id = ?", electionID).
		Group("candidate_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, a.logError("tally", err, zap.String("election_id", electionID))
	}

	tallies := make(map[string]int64, len(rows))
	for _, row := range rows {
		tallies[row.CandidateID] = row.Votes
	}
	return tallies, nil
}

func (a *Aggregator) logError(event string, err error, fields ...zap.Field) error {
	a.log.Error("results operation failed", append(fields, zap.String("event", event), zap.Error(err))...)
	return fmt.Errorf("%s: %w", event, err)
}

func resultsFinal(election *models.Election, now time.Time) bool {
	return now.After(election.EndDate) || election.Status == models.ElectionCompleted
}

func rankPosition(position models.Position, candidates []CandidateResult) PositionResult {
	if candidates == nil {
		candidates = []CandidateResult{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].VoteCount != candidates[j].VoteCount {
			return candidates[i].VoteCount > candidates[j].VoteCount
		}
		if candidates[i].Name != candidates[j].Name {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].ID < candidates[j].ID
	})

	result := PositionResult{ID: position.ID, Name: position.Name, Candidates: candidates}
	for _, candidate := range candidates {
		result.TotalVotes += candidate.VoteCount
	}

	if len(candidates) == 0 || candidates[0].VoteCount == 0 {
		return result
	}
	if len(candidates) > 1 && candidates[1].VoteCount == candidates[0].VoteCount {
		result.Tie = true
		return result
	}
	winner := candidates[0]
	result.Winner = &winner
	return result
}
