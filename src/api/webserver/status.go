package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/open-townhall/townhall/src/api/engine"
)

// reject maps an engine rejection onto an HTTP status and the reason
// string the presentation layer renders verbatim. Anything that is not a
// business outcome is a 500 and gets logged.
func reject(c *gin.Context, err error) {
	var banned *engine.BannedError
	var storageErr *engine.StorageError

	switch {
	case errors.Is(err, engine.ErrBudgetExhausted):
		budgetRejections.Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"err": err.Error()})
	case errors.As(err, &banned):
		c.JSON(http.StatusForbidden, gin.H{"err": banned.Error()})
	case errors.Is(err, engine.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case errors.Is(err, engine.ErrElectionInProgress),
		errors.Is(err, engine.ErrAlreadyCandidate),
		errors.Is(err, engine.ErrAlreadyVoted),
		errors.Is(err, engine.ErrNameTaken):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	case errors.Is(err, engine.ErrElectionClosed),
		errors.Is(err, engine.ErrProposalClosed):
		c.JSON(http.StatusGone, gin.H{"err": err.Error()})
	case errors.Is(err, engine.ErrUnknownConfigKey),
		errors.Is(err, engine.ErrInvalidConfigValue):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	case errors.As(err, &storageErr):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
	}
}
