package voting

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/models"
)

type DepartmentCount struct {
	Department string `json:"department"`
	Votes      int64  `json:"votes"`
}

type DayCount struct {
	Date  string `json:"date"`
	Votes int64  `json:"votes"`
}

// Stats describes turnout for an election. It never reveals who voted for whom.
type Stats struct {
	ElectionID   string            `json:"electionId"`
	TotalVotes   int64             `json:"totalVotes"`
	ByDepartment []DepartmentCount `json:"byDepartment"`
	ByDay        []DayCount        `json:"byDay"`
}

// GetStats groups the election's ballots by voter department and by UTC submission day.
func (a *Aggregator) GetStats(ctx context.Context, electionID string) (*Stats, error) {
	db := a.db.WithContext(ctx)

	election, err := a.registry.loadElection(db, electionID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{ElectionID: election.ID, ByDepartment: []DepartmentCount{}, ByDay: []DayCount{}}

	err = db.Table("ballots").
		Select("users.department AS department, COUNT(*) AS votes").
		Joins("JOIN users ON users.id = ballots.voter_id").
		Where("ballots.election_id = ?", election.ID).
		Group("users.department").
		Order("votes DESC").
		Order("department ASC").
		Scan(&stats.ByDepartment).
		Error
	if err != nil {
		return nil, a.logError("stats_by_department", err, zap.String("election_id", election.ID))
	}

	var submitted []time.Time
	err = db.Model(&models.Ballot{}).
		Where("election_id = ?", election.ID).
		Pluck("submitted_at", &submitted).
		Error
	if err != nil {
		return nil, a.logError("stats_by_day", err, zap.String("election_id", election.ID))
	}

	stats.TotalVotes = int64(len(submitted))
	days := make(map[string]int64)
	for _, at := range submitted {
		days[at.UTC().Format(time.DateOnly)]++
	}
	for day, votes := range days {
		stats.ByDay = append(stats.ByDay, DayCount{Date: day, Votes: votes})
	}
	sort.Slice(stats.ByDay, func(i, j int) bool {
		return stats.ByDay[i].Date < stats.ByDay[j].Date
	})

	return stats, nil
}
