package voting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/testutil"
)

func TestGetResultsVisibility(t *testing.T) {
	svc, db, clock := newTestService(t)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})

	castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS), fx, "Alice", "Carol")
	castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCEA), fx, "Alice", "Dave")

	_, err := svc.Results.GetResults(context.Background(), fx.Election.ID, false)
	require.ErrorIs(t, err, ErrNotAvailable)

	preview, err := svc.Results.GetResults(context.Background(), fx.Election.ID, true)
	require.NoError(t, err)
	assert.False(t, preview.Final)
	assert.EqualValues(t, 2, preview.TotalVotes)
	assert.Equal(t, "Alice", preview.Positions[0].Candidates[0].Name)
	assert.EqualValues(t, 2, preview.Positions[0].Candidates[0].VoteCount)

	clock.Set(fx.Election.EndDate.Add(time.Millisecond))
	public, err := svc.Results.GetResults(context.Background(), fx.Election.ID, false)
	require.NoError(t, err)
	assert.True(t, public.Final)
	assert.Equal(t, preview.Positions, public.Positions)
}

func TestGetResultsCompletedStatusOpensGate(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})
	require.NoError(t, db.Model(&models.Election{}).
		Where("id = ?", fx.Election.ID).
		Update("status", models.ElectionCompleted).Error)

	results, err := svc.Results.GetResults(context.Background(), fx.Election.ID, false)
	require.NoError(t, err)
	assert.True(t, results.Final)
	assert.Equal(t, models.ElectionCompleted, results.Status)
}

func TestGetResultsTieHasNoWinner(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})

	castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS), fx, "Alice", "Carol")
	castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS), fx, "Bob", "Carol")

	results, err := svc.Results.GetResults(context.Background(), fx.Election.ID, true)
	require.NoError(t, err)

	president := results.Positions[0]
	assert.Equal(t, "President", president.Name)
	assert.True(t, president.Tie)
	assert.Nil(t, president.Winner)
	require.Len(t, president.Candidates, 2)
	assert.Equal(t, president.Candidates[0].VoteCount, president.Candidates[1].VoteCount)
	assert.EqualValues(t, 1, president.Candidates[0].VoteCount)

	secretary := results.Positions[1]
	assert.False(t, secretary.Tie)
	require.NotNil(t, secretary.Winner)
	assert.Equal(t, "Carol", secretary.Winner.Name)
	assert.EqualValues(t, 2, secretary.Winner.VoteCount)
}

func TestGetResultsZeroBallots(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})

	results, err := svc.Results.GetResults(context.Background(), fx.Election.ID, true)
	require.NoError(t, err)
	assert.Zero(t, results.TotalVotes)
	require.Len(t, results.Positions, 2)
	for _, position := range results.Positions {
		assert.Zero(t, position.TotalVotes)
		assert.Nil(t, position.Winner)
		assert.False(t, position.Tie)
		assert.Len(t, position.Candidates, 2)
	}
}

func TestGetResultsIdempotentAndSumsToBallots(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})

	picks := [][2]string{{"Alice", "Carol"}, {"Bob", "Carol"}, {"Alice", "Dave"}, {"Alice", "Carol"}, {"Bob", "Dave"}}
	for _, pick := range picks {
		castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCBA), fx, pick[0], pick[1])
	}

	first, err := svc.Results.GetResults(context.Background(), fx.Election.ID, true)
	require.NoError(t, err)
	second, err := svc.Results.GetResults(context.Background(), fx.Election.ID, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.EqualValues(t, len(picks), first.TotalVotes)
	for _, position := range first.Positions {
		var sum int64
		for _, candidate := range position.Candidates {
			sum += candidate.VoteCount
		}
		assert.Equal(t, first.TotalVotes, sum, position.Name)
		assert.Equal(t, sum, position.TotalVotes)
	}

	require.NotNil(t, first.Positions[0].Winner)
	assert.Equal(t, "Alice", first.Positions[0].Winner.Name)
	assert.EqualValues(t, 3, first.Positions[0].Winner.VoteCount)
}

func TestReconcileRepairsDriftedCounters(t *testing.T) {
	svc, db, _ := newTestService(t)
	fx := testutil.CreateElection(t, db, testutil.ElectionOptions{Races: testutil.CouncilRaces()})

	castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS), fx, "Alice", "Carol")
	castFor(t, svc, testutil.CreateUser(t, db, models.RoleVoter, models.DepartmentCCS), fx, "Alice", "Dave")

	fixes, err := svc.Results.Reconcile(context.Background(), fx.Election.ID)
	require.NoError(t, err)
	assert.Empty(t, fixes)

	alice := fx.Candidate("President", "Alice")
	bob := fx.Candidate("President", "Bob")
	require.NoError(t, db.Model(&models.Candidate{}).Where("id = ?", alice.ID).UpdateColumn("vote_count", 7).Error)
	require.NoError(t, db.Model(&models.Candidate{}).Where("id = ?", bob.ID).UpdateColumn("vote_count", 1).Error)

	fixes, err = svc.Results.Reconcile(context.Background(), fx.Election.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []CounterFix{
		{CandidateID: alice.ID, Name: "Alice", Before: 7, After: 2},
		{CandidateID: bob.ID, Name: "Bob", Before: 1, After: 0},
	}, fixes)

	var stored models.Candidate
	require.NoError(t, db.First(&stored, "id = ?", alice.ID).Error)
	assert.EqualValues(t, 2, stored.VoteCount)

	fixes, err = svc.Results.Reconcile(context.Background(), fx.Election.ID)
	require.NoError(t, err)
	assert.Empty(t, fixes)
}

func TestRankPosition(t *testing.T) {
	position := models.Position{ID: "p1", Name: "Treasurer"}

	tests := []struct {
		name       string
		candidates []CandidateResult
		wantOrder  []string
		wantWinner string
		wantTie    bool
	}{
		{
			name:      "no candidates",
			wantOrder: []string{},
		},
		{
			name:       "all zero",
			candidates: []CandidateResult{{ID: "b", Name: "Zed"}, {ID: "a", Name: "Amy"}},
			wantOrder:  []string{"Amy", "Zed"},
		},
		{
			name:       "clear winner",
			candidates: []CandidateResult{{ID: "a", Name: "Amy", VoteCount: 1}, {ID: "b", Name: "Zed", VoteCount: 4}},
			wantOrder:  []string{"Zed", "Amy"},
			wantWinner: "Zed",
		},
		{
			name: "three way tie at top",
			candidates: []CandidateResult{
				{ID: "c", Name: "Cy", VoteCount: 2},
				{ID: "a", Name: "Amy", VoteCount: 2},
				{ID: "b", Name: "Bo", VoteCount: 2},
				{ID: "d", Name: "Di", VoteCount: 1},
			},
			wantOrder: []string{"Amy", "Bo", "Cy", "Di"},
			wantTie:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rankPosition(position, tt.candidates)

			names := []string{}
			for _, candidate := range result.Candidates {
				names = append(names, candidate.Name)
			}
			assert.Equal(t, tt.wantOrder, names)
			assert.Equal(t, tt.wantTie, result.Tie)
			if tt.wantWinner == "" {
				assert.Nil(t, result.Winner)
			} else {
				require.NotNil(t, result.Winner)
				assert.Equal(t, tt.wantWinner, result.Winner.Name)
			}
		})
	}
}
