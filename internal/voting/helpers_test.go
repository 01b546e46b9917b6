package voting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/testutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *testClock) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clock := &testClock{now: time.Now().UTC()}
	return NewService(db, zap.NewNop(), WithClock(clock.Now)), db, clock
}

func fullBallot(fx testutil.ElectionFixture, president, secretary string) []Selection {
	return []Selection{
		{PositionID: fx.Position("President").ID, CandidateID: fx.Candidate("President", president).ID},
		{PositionID: fx.Position("Secretary").ID, CandidateID: fx.Candidate("Secretary", secretary).ID},
	}
}

func castFor(t *testing.T, svc *Service, voter models.User, fx testutil.ElectionFixture, president, secretary string) *Receipt {
	t.Helper()
	receipt, err := svc.Ballots.CastBallot(context.Background(), CastRequest{
		VoterID:    voter.ID,
		ElectionID: fx.Election.ID,
		Selections: fullBallot(fx, president, secretary),
	})
	require.NoError(t, err)
	return receipt
}

// assertNoBallots checks that a rejected cast left no rows and no counter changes behind.
func assertNoBallots(t *testing.T, db *gorm.DB, electionID string) {
	t.Helper()

	var ballots, selections int64
	require.NoError(t, db.Model(&models.Ballot{}).Where("election_id = ?", electionID).Count(&ballots).Error)
	require.NoError(t, db.Model(&models.BallotSelection{}).Where("election_id = ?", electionID).Count(&selections).Error)
	require.Zero(t, ballots)
	require.Zero(t, selections)

	var counted int64
	require.NoError(t, db.Model(&models.Candidate{}).
		Where("election_id = ? AND vote_count <> 0", electionID).
		Count(&counted).Error)
	require.Zero(t, counted)
}
