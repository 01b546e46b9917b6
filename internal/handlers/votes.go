package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/voting"
)

type VoteHandler struct {
	svc *voting.Service
	log *zap.Logger
}

func NewVoteHandler(svc *voting.Service, log *zap.Logger) *VoteHandler {
	return &VoteHandler{svc: svc, log: log}
}

// CastVote records the caller's ballot for one election.
func (h *VoteHandler) CastVote(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.CastBallotRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": castBindingMessage(err), "code": voting.Code(voting.ErrInvalid)})
		return
	}

	req := voting.CastRequest{
		VoterID:    voterID,
		ElectionID: input.ElectionID,
		Selections: make([]voting.Selection, 0, len(input.Selections)),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	for _, sel := range input.Selections {
		req.Selections = append(req.Selections, voting.Selection{PositionID: sel.PositionID, CandidateID: sel.CandidateID})
	}

	receipt, err := h.svc.Ballots.CastBallot(c.Request.Context(), req)
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"msg":       "Vote cast successfully",
		"ballotId":  receipt.BallotID,
		"timestamp": receipt.SubmittedAt,
	})
}

// CheckVote reports whether the caller has voted in an election.
func (h *VoteHandler) CheckVote(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	voted, at, err := h.svc.Ballots.HasVoted(c.Request.Context(), voterID, c.Param("electionId"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}

	resp := gin.H{"hasVoted": voted}
	if at != nil {
		resp["timestamp"] = at
	}
	c.JSON(http.StatusOK, resp)
}

// GetStats returns turnout by department and day (admin).
func (h *VoteHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.Results.GetStats(c.Request.Context(), c.Param("electionId"))
	if err != nil {
		respondVotingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// castBindingMessage names the first field that failed to bind.
func castBindingMessage(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "Invalid request body"
	}
	switch fields[0].StructField() {
	case "ElectionID":
		return "Election ID is required"
	case "PositionID":
		return "Every selection must name a position"
	default:
		return "Please select a candidate for every position"
	}
}
