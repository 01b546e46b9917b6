package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/voting"
)

type CandidateHandler struct {
	db  *gorm.DB
	svc *voting.Service
	log *zap.Logger
}

func NewCandidateHandler(db *gorm.DB, svc *voting.Service, log *zap.Logger) *CandidateHandler {
	return &CandidateHandler{db: db, svc: svc, log: log}
}

// GetCandidates lists candidates, optionally filtered by ?election= and ?position=.
func (h *CandidateHandler) GetCandidates(c *gin.Context) {
	if electionID := c.Query("election"); electionID != "" {
		candidates, err := h.svc.Registry.Candidates(c.Request.Context(), electionID, c.Query("position"))
		if err != nil {
			respondVotingError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, candidates)
		return
	}

	query := h.db.WithContext(c.Request.Context())
	if raw := c.Query("position"); raw != "" {
		positionID, err := voting.ParseID(raw)
		if err != nil {
			respondVotingError(c, h.log, err)
			return
		}
		query = query.Where("position_id = ?", positionID)
	}

	var candidates []models.Candidate
	if err := query.Order("name asc").Find(&candidates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch candidates"})
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	c.JSON(http.StatusOK, candidates)
}

func (h *CandidateHandler) GetCandidate(c *gin.Context) {
	var candidate models.Candidate
	if err := h.db.First(&candidate, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// CreateCandidate adds a candidate to a position (admin). Races are closed once voting starts.
func (h *CandidateHandler) CreateCandidate(c *gin.Context) {
	ctx := c.Request.Context()

	var input models.CreateCandidateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	election, err := h.svc.Registry.GetElection(ctx, input.ElectionID)
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	if !hasPosition(election, input.PositionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Position not found in this election"})
		return
	}

	candidate := models.Candidate{
		Name:       strings.TrimSpace(input.Name),
		ElectionID: election.ID,
		PositionID: input.PositionID,
		UserID:     input.UserID,
		Department: input.Department,
		Platform:   input.Platform,
	}
	err = h.editRace(c, election.ID, func(tx *gorm.DB) error {
		return tx.Create(&candidate).Error
	})
	if err != nil {
		h.respondWriteError(c, err, "create", zap.String("election_id", election.ID))
		return
	}

	c.JSON(http.StatusCreated, candidate)
}

// UpdateCandidate edits a candidate (admin). Name and position are frozen once voting starts.
func (h *CandidateHandler) UpdateCandidate(c *gin.Context) {
	ctx := c.Request.Context()

	var candidate models.Candidate
	if err := h.db.WithContext(ctx).First(&candidate, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
		return
	}

	var input models.UpdateCandidateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	renamed := input.Name != nil && strings.TrimSpace(*input.Name) != candidate.Name
	moved := input.PositionID != nil && *input.PositionID != candidate.PositionID

	if moved {
		election, err := h.svc.Registry.GetElection(ctx, candidate.ElectionID)
		if err != nil {
			respondVotingError(c, h.log, err)
			return
		}
		if !hasPosition(election, *input.PositionID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Position not found in this election"})
			return
		}
		candidate.PositionID = *input.PositionID
	}
	if renamed {
		candidate.Name = strings.TrimSpace(*input.Name)
	}
	if input.Department != nil {
		candidate.Department = *input.Department
	}
	if input.Platform != nil {
		candidate.Platform = *input.Platform
	}

	save := func(tx *gorm.DB) error {
		return tx.Model(&candidate).
			Select("name", "position_id", "department", "platform", "updated_at").
			Updates(&candidate).
			Error
	}
	var err error
	if renamed || moved {
		err = h.editRace(c, candidate.ElectionID, save)
	} else {
		err = save(h.db.WithContext(ctx))
	}
	if err != nil {
		h.respondWriteError(c, err, "update", zap.String("candidate_id", candidate.ID))
		return
	}

	c.JSON(http.StatusOK, candidate)
}

func (h *CandidateHandler) DeleteCandidate(c *gin.Context) {
	ctx := c.Request.Context()

	var candidate models.Candidate
	if err := h.db.WithContext(ctx).First(&candidate, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
		return
	}
	err := h.editRace(c, candidate.ElectionID, func(tx *gorm.DB) error {
		return tx.Delete(&candidate).Error
	})
	if err != nil {
		h.respondWriteError(c, err, "delete", zap.String("candidate_id", candidate.ID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Candidate deleted"})
}

// errRaceFrozen rolls back a candidate change once the election has ballots.
var errRaceFrozen = errors.New("race frozen")

// editRace runs fn in a transaction that holds the election lock, refusing once anyone has voted.
func (h *CandidateHandler) editRace(c *gin.Context, electionID string, fn func(tx *gorm.DB) error) error {
	return h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		hasBallots, err := h.svc.Registry.LockForEdit(tx, electionID)
		if err != nil {
			return err
		}
		if hasBallots {
			return errRaceFrozen
		}
		return fn(tx)
	})
}

func (h *CandidateHandler) respondWriteError(c *gin.Context, err error, op string, fields ...zap.Field) {
	switch {
	case errors.Is(err, errRaceFrozen):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Candidates cannot be changed after voting has started"})
	case isDuplicate(err):
		c.JSON(http.StatusConflict, gin.H{"error": "A candidate with this name is already running for this position"})
	case voting.IsUserError(err):
		respondVotingError(c, h.log, err)
	default:
		h.log.Error(op+" candidate failed", append(fields, zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op + " candidate"})
	}
}

func hasPosition(election *models.Election, positionID string) bool {
	for _, p := range election.Positions {
		if p.ID == positionID {
			return true
		}
	}
	return false
}
