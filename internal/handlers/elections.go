package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/voting"
)

type ElectionHandler struct {
	db  *gorm.DB
	svc *voting.Service
	log *zap.Logger
}

func NewElectionHandler(db *gorm.DB, svc *voting.Service, log *zap.Logger) *ElectionHandler {
	return &ElectionHandler{db: db, svc: svc, log: log}
}

// GetElections lists elections, optionally filtered by ?status=active|upcoming|completed.
func (h *ElectionHandler) GetElections(c *gin.Context) {
	elections, err := h.svc.Registry.ListElections(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, elections)
}

// GetElection returns one election with its positions.
func (h *ElectionHandler) GetElection(c *gin.Context) {
	election, err := h.svc.Registry.GetElection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, election)
}

// GetBallot returns the ballot shape, or 400 when there is nothing to vote for or
// some positions have no candidates.
func (h *ElectionHandler) GetBallot(c *gin.Context) {
	shape, err := h.svc.Registry.GetBallotShape(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}

	if len(shape.Positions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "This election has no positions to vote for",
			"code":  voting.ReasonNoPositions,
		})
		return
	}

	if missing := shape.MissingCandidates(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "Some positions do not have any candidates",
			"code":             "missing_candidates",
			"missingPositions": missing,
		})
		return
	}

	c.JSON(http.StatusOK, shape)
}

func (h *ElectionHandler) GetPositions(c *gin.Context) {
	election, err := h.svc.Registry.GetElection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	positions := election.Positions
	if positions == nil {
		positions = []models.Position{}
	}
	c.JSON(http.StatusOK, positions)
}

func (h *ElectionHandler) GetCandidates(c *gin.Context) {
	candidates, err := h.svc.Registry.Candidates(c.Request.Context(), c.Param("id"), c.Query("position"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// CreateElection creates an election together with its positions (admin).
func (h *ElectionHandler) CreateElection(c *gin.Context) {
	var input models.CreateElectionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !input.EndDate.After(input.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must be after start date"})
		return
	}

	userID, _ := extractUserID(c)
	election := models.Election{
		Title:               strings.TrimSpace(input.Title),
		Description:         input.Description,
		StartDate:           input.StartDate.UTC(),
		EndDate:             input.EndDate.UTC(),
		Status:              input.Status,
		EligibleDepartments: input.EligibleDepartments,
		CreatedByID:         userID,
	}
	if election.Status == "" {
		election.Status = models.ElectionDraft
	}
	if len(election.EligibleDepartments) == 0 {
		election.EligibleDepartments = []string{models.DepartmentAll}
	}
	for i, p := range input.Positions {
		election.Positions = append(election.Positions, newPosition(p, i))
	}

	if err := h.db.Create(&election).Error; err != nil {
		h.log.Error("create election failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create election"})
		return
	}

	h.log.Info("election created", zap.String("election_id", election.ID), zap.Int("positions", len(election.Positions)))
	c.JSON(http.StatusCreated, election)
}

// UpdateElection edits an election (admin). Positions are frozen once anyone has voted.
func (h *ElectionHandler) UpdateElection(c *gin.Context) {
	ctx := c.Request.Context()

	election, err := h.svc.Registry.GetElection(ctx, c.Param("id"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}

	var input models.UpdateElectionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Title != nil {
		election.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		election.Description = *input.Description
	}
	if input.StartDate != nil {
		election.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		election.EndDate = input.EndDate.UTC()
	}
	if input.Status != nil {
		election.Status = *input.Status
	}
	if input.EligibleDepartments != nil {
		election.EligibleDepartments = input.EligibleDepartments
	}
	if !election.EndDate.After(election.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must be after start date"})
		return
	}

	var conflict string
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hasBallots, err := h.svc.Registry.LockForEdit(tx, election.ID)
		if err != nil {
			return err
		}
		if hasBallots && input.Positions != nil {
			conflict = "Cannot modify positions after voting has started"
			return errConflict
		}

		err = tx.Model(election).
			Omit(clause.Associations).
			Select("title", "description", "start_date", "end_date", "status", "eligible_departments", "updated_at").
			Updates(election).
			Error
		if err != nil {
			return err
		}
		if input.Positions == nil {
			return nil
		}
		conflict, err = replacePositions(tx, election, *input.Positions)
		return err
	})
	if conflict != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": conflict})
		return
	}
	if err != nil {
		h.log.Error("update election failed", zap.String("election_id", election.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update election"})
		return
	}

	updated, err := h.svc.Registry.GetElection(ctx, election.ID)
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteElection removes an election with its positions and candidates (admin).
// Elections with ballots cannot be deleted.
func (h *ElectionHandler) DeleteElection(c *gin.Context) {
	ctx := c.Request.Context()

	election, err := h.svc.Registry.GetElection(ctx, c.Param("id"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}

	var conflict string
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hasBallots, err := h.svc.Registry.LockForEdit(tx, election.ID)
		if err != nil {
			return err
		}
		if hasBallots {
			conflict = "Cannot delete an election that has votes"
			return errConflict
		}

		if err := tx.Where("election_id = ?", election.ID).Delete(&models.Candidate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("election_id = ?", election.ID).Delete(&models.Position{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Election{}, "id = ?", election.ID).Error
	})
	if conflict != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": conflict})
		return
	}
	if err != nil {
		h.log.Error("delete election failed", zap.String("election_id", election.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete election"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Election deleted"})
}

// GetResults returns results once the election is over. Admins may preview earlier.
func (h *ElectionHandler) GetResults(c *gin.Context) {
	results, err := h.svc.Results.GetResults(c.Request.Context(), c.Param("id"), callerIsAdmin(c, h.db))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Reconcile rewrites drifted candidate counters from the ballot log (admin).
func (h *ElectionHandler) Reconcile(c *gin.Context) {
	fixes, err := h.svc.Results.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fixed": len(fixes), "fixes": fixes})
}

func newPosition(input models.PositionInput, order int) models.Position {
	maxCandidates := input.MaxCandidates
	if maxCandidates == 0 {
		maxCandidates = 1
	}
	return models.Position{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		MaxCandidates: maxCandidates,
		SortOrder:     order,
	}
}

// replacePositions makes the election's positions match inputs. Inputs with a known id
// are updated in place; a position that still has candidates cannot be dropped.
// A non-empty conflict message means nothing should be committed.
func replacePositions(tx *gorm.DB, election *models.Election, inputs []models.PositionInput) (string, error) {
	existing := make(map[string]models.Position, len(election.Positions))
	for _, p := range election.Positions {
		existing[p.ID] = p
	}

	kept := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		position := newPosition(input, i)
		if _, ok := existing[input.ID]; ok && input.ID != "" {
			kept[input.ID] = true
			err := tx.Model(&models.Position{}).
				Where("id = ?", input.ID).
				Updates(map[string]interface{}{
					"name":           position.Name,
					"description":    position.Description,
					"max_candidates": position.MaxCandidates,
					"sort_order":     position.SortOrder,
				}).Error
			if err != nil {
				return "", err
			}
			continue
		}
		position.ElectionID = election.ID
		if err := tx.Create(&position).Error; err != nil {
			return "", err
		}
	}

	for id, position := range existing {
		if kept[id] {
			continue
		}
		var candidates int64
		if err := tx.Model(&models.Candidate{}).Where("position_id = ?", id).Count(&candidates).Error; err != nil {
			return "", err
		}
		if candidates > 0 {
			msg := "Position " + position.Name + " still has candidates"
			return msg, errConflict
		}
		if err := tx.Delete(&models.Position{}, "id = ?", id).Error; err != nil {
			return "", err
		}
	}
	return "", nil
}
