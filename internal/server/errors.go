package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	distributiondomain "github.com/nordleads/leadflow/internal/distribution/domain"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	statsdomain "github.com/nordleads/leadflow/internal/stats/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware maps domain sentinel errors onto HTTP statuses at
// one place so handlers only push errors onto the gin context.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ledgerdomain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_funds",
			Message: "insufficient funds",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, leaddomain.ErrInvalidID),
		errors.Is(err, leaddomain.ErrInvalidCategory),
		errors.Is(err, leaddomain.ErrInvalidStatus),
		errors.Is(err, buyerdomain.ErrInvalidID),
		errors.Is(err, buyerdomain.ErrInvalidRequest),
		errors.Is(err, catalogdomain.ErrInvalidPackage),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, historydomain.ErrInvalidPageToken),
		errors.Is(err, distributiondomain.ErrInvalidActor),
		errors.Is(err, statsdomain.ErrInvalidRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, leaddomain.ErrNotFound),
		errors.Is(err, buyerdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrBuyerNotFound),
		errors.Is(err, catalogdomain.ErrPackageNotFound),
		errors.Is(err, assignmentdomain.ErrNotFound),
		errors.Is(err, assignmentdomain.ErrNoActiveAssignment),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, assignmentdomain.ErrLeadAlreadyAssigned),
		errors.Is(err, assignmentdomain.ErrInvalidTransition):
		return true
	default:
		return false
	}
}
