package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/voting"
)

// errConflict rolls back a transaction whose caller already has a user-facing message.
var errConflict = errors.New("conflict")

func votingStatus(err error) int {
	switch {
	case errors.Is(err, voting.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, voting.ErrAlreadyVoted):
		return http.StatusConflict
	case errors.Is(err, voting.ErrNotAvailable),
		errors.Is(err, voting.ErrNotEligible):
		return http.StatusForbidden
	case errors.Is(err, voting.ErrInvalid),
		errors.Is(err, voting.ErrNotOpen),
		errors.Is(err, voting.ErrIncompleteBallot),
		errors.Is(err, voting.ErrInvalidCandidate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondVotingError writes a voting outcome as {error, code, reason?, position?, redirect?}.
// Anything that is not a *voting.Error is logged and reported as a bare server error.
func respondVotingError(c *gin.Context, log *zap.Logger, err error) {
	var verr *voting.Error
	if !errors.As(err, &verr) {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	body := gin.H{"error": verr.Error(), "code": voting.Code(err)}
	if verr.Reason != "" {
		body["reason"] = verr.Reason
	}
	if verr.Position != "" {
		body["position"] = verr.Position
	}
	if verr.ElectionID != "" && (errors.Is(err, voting.ErrAlreadyVoted) || errors.Is(err, voting.ErrNotOpen)) {
		body["redirect"] = "/elections/" + verr.ElectionID
	}
	c.JSON(votingStatus(err), body)
}
