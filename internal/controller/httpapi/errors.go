package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/slot_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	codeBadRequest = "bad_request"
	codeInternal   = "internal_error"

	retryAfterSeconds = "1"
)

var reasonStatus = map[service.Reason]int{
	service.ReasonSlotNotFound:            http.StatusNotFound,
	service.ReasonEnrollmentNotFound:      http.StatusNotFound,
	service.ReasonNotEnrollmentOwner:      http.StatusForbidden,
	service.ReasonAlreadyHasActiveBooking: http.StatusConflict,
	service.ReasonSlotNotOpen:             http.StatusConflict,
	service.ReasonDuplicateBooking:        http.StatusConflict,
	service.ReasonOverlappingBooking:      http.StatusConflict,
	service.ReasonSlotFull:                http.StatusConflict,
	service.ReasonEnrollmentNotActive:     http.StatusConflict,
	service.ReasonSlotInPast:              http.StatusUnprocessableEntity,
	service.ReasonInvalidSlot:             http.StatusUnprocessableEntity,
	service.ReasonBusy:                    http.StatusServiceUnavailable,
	service.ReasonTransactionFailed:       http.StatusInternalServerError,
}

// StatusFor returns the HTTP status a rejection reason is reported with
func StatusFor(reason service.Reason) int {
	if status, ok := reasonStatus[reason]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func handleError(c *gin.Context, logger *zap.Logger, err error) {
	rejection, ok := service.AsRejection(err)
	if !ok {
		logger.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: codeInternal, Message: "Internal server error"},
		})
		return
	}

	if rejection.Reason == service.ReasonBusy {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.AbortWithStatusJSON(StatusFor(rejection.Reason), ErrorResponse{
		Error: ErrorDetail{Code: string(rejection.Reason), Message: rejection.Message},
	})
}

func badRequest(c *gin.Context, message string, err error) {
	detail := ErrorDetail{Code: codeBadRequest, Message: message}
	if err != nil {
		detail.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: detail})
}
