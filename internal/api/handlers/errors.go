package handlers

import (
	"errors"
	"net/http"

	"greencycle-api-server/internal/pickup"

	"github.com/gin-gonic/gin"
)

// respondPickupError maps the lifecycle's typed errors to HTTP responses.
// Every denial carries its human-readable reason; StoreUnavailable is the
// only kind the client should retry.
func respondPickupError(c *gin.Context, err error) {
	var (
		notFound    pickup.NotFoundError
		forbidden   pickup.ForbiddenError
		wrongState  pickup.WrongStateError
		leadTime    pickup.LeadTimeError
		terminal    pickup.TerminalError
		validation  pickup.ValidationError
		unavailable pickup.StoreError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "forbidden"})
	case errors.As(err, &wrongState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "wrong_state"})
	case errors.As(err, &leadTime):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "lead_time_too_short"})
	case errors.As(err, &terminal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "already_terminal"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "store_unavailable", "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
