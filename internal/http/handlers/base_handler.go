// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"toda/internal/infra"
	"toda/internal/modules/booking"
	"toda/internal/modules/chat"
	"toda/internal/modules/dispatch"
	"toda/internal/modules/fleet"
	"toda/internal/modules/geo"
	"toda/internal/modules/trust"
	"toda/internal/types"
)

type errorResponse struct {
	Error  string        `json:"error"`
	Reason trust.Outcome `json:"reason,omitempty"`
}

// isValidID accepts booking ids (32 hex) and Firebase uids (28 alphanumerics).
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

// pathID reads and validates the :id path parameter, writing a 400 if it is bad.
func pathID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return types.ID(id), true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeBookingError(c *gin.Context, err error) {
	var refused *trust.ValidationError
	switch {
	case errors.As(err, &refused):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Reason: refused.Reason})
	case errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, booking.ErrBadRequest),
		errors.Is(err, dispatch.ErrBadRequest),
		errors.Is(err, fleet.ErrBadRequest),
		errors.Is(err, chat.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, fleet.ErrNotFound),
		errors.Is(err, trust.ErrProfileNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrForbidden),
		errors.Is(err, fleet.ErrInactive):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, "booking already taken")
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, fleet.ErrDuplicate),
		errors.Is(err, chat.ErrParticipantMismatch):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, infra.ErrStoreUnavailable):
		writeError(c, http.StatusServiceUnavailable, "store unavailable, retry later")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// bookingView hides the pickup verification code from everyone but the rider.
func bookingView(b *booking.Booking, uid string) booking.Booking {
	v := *b
	if string(b.RiderID) != uid {
		v.VerificationCode = ""
	}
	return v
}
