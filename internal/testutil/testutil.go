package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/database"
	"github.com/votipian/council/backend/internal/models"
)

// TestPassword is the plain-text password of every user created by CreateUser.
const TestPassword = "password123"

// TestSecret signs tokens in handler tests.
var TestSecret = []byte("test-secret")

// SetupTestDB opens a migrated sqlite database in a temp dir. One connection keeps
// sqlite writers serialized the way postgres row locks would.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "votipian.db")
	db, err := database.Open(sqlite.Open("file:"+path+"?_busy_timeout=5000&_foreign_keys=on"), zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts an active, verified user.
func CreateUser(t *testing.T, db *gorm.DB, role, department string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	suffix := uuid.NewString()[:8]
	user := models.User{
		FirstName:       "Test",
		LastName:        "User " + suffix,
		Email:           "user-" + suffix + "@school.edu",
		StudentID:       "S-" + suffix,
		Department:      department,
		Password:        string(hash),
		Role:            role,
		IsEmailVerified: true,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// Race is one position and the names running for it.
type Race struct {
	Position   string
	Candidates []string
}

type ElectionOptions struct {
	Title  string
	Status string
	Start  time.Time
	End    time.Time
	Races  []Race

	// Departments defaults to ALL.
	Departments []string
}

// ElectionFixture gives name-based access to what CreateElection inserted.
type ElectionFixture struct {
	Election   models.Election
	positions  map[string]models.Position
	candidates map[string]models.Candidate
}

func (f ElectionFixture) Position(name string) models.Position {
	return f.positions[name]
}

func (f ElectionFixture) Candidate(position, name string) models.Candidate {
	return f.candidates[position+"/"+name]
}

// CreateElection inserts an election with positions and candidates.
// Zero values default to an active election open from an hour ago to an hour from now.
func CreateElection(t *testing.T, db *gorm.DB, opts ElectionOptions) ElectionFixture {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	if opts.Title == "" {
		opts.Title = "Student Council " + uuid.NewString()[:8]
	}
	if opts.Status == "" {
		opts.Status = models.ElectionActive
	}
	if opts.Start.IsZero() {
		opts.Start = now.Add(-time.Hour)
	}
	if opts.End.IsZero() {
		opts.End = now.Add(time.Hour)
	}
	if len(opts.Departments) == 0 {
		opts.Departments = []string{models.DepartmentAll}
	}

	election := models.Election{
		Title:               opts.Title,
		Description:         "Annual election",
		StartDate:           opts.Start,
		EndDate:             opts.End,
		Status:              opts.Status,
		EligibleDepartments: opts.Departments,
		CreatedByID:         uuid.NewString(),
	}
	require.NoError(t, db.Create(&election).Error)

	fixture := ElectionFixture{
		positions:  make(map[string]models.Position),
		candidates: make(map[string]models.Candidate),
	}
	for i, race := range opts.Races {
		position := models.Position{
			ElectionID:    election.ID,
			Name:          race.Position,
			MaxCandidates: 1,
			SortOrder:     i,
		}
		require.NoError(t, db.Create(&position).Error)
		fixture.positions[race.Position] = position

		for _, name := range race.Candidates {
			candidate := models.Candidate{
				Name:       name,
				ElectionID: election.ID,
				PositionID: position.ID,
				Department: models.DepartmentCCS,
			}
			require.NoError(t, db.Create(&candidate).Error)
			fixture.candidates[race.Position+"/"+name] = candidate
		}
		election.Positions = append(election.Positions, position)
	}

	fixture.Election = election
	return fixture
}

// CouncilRaces is the two-position election used across tests.
func CouncilRaces() []Race {
	return []Race{
		{Position: "President", Candidates: []string{"Alice", "Bob"}},
		{Position: "Secretary", Candidates: []string{"Carol", "Dave"}},
	}
}
