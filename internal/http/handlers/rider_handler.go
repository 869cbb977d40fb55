// README: Rider profile handlers; registration and the rider's own trust view.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"toda/internal/http/middleware"
	"toda/internal/modules/trust"
	"toda/internal/types"
)

type RiderProfiles interface {
	Register(ctx context.Context, riderID types.ID, phoneVerified bool) error
	GetTrust(ctx context.Context, riderID types.ID) (*trust.RiderTrust, error)
}

type RiderHandler struct {
	profiles RiderProfiles
}

func NewRiderHandler(profiles RiderProfiles) *RiderHandler {
	return &RiderHandler{profiles: profiles}
}

// Register creates the caller's profile. The phone counts as verified when
// the auth token carries a phone number.
func (h *RiderHandler) Register(c *gin.Context) {
	uid := middleware.CallerUID(c)
	verified := middleware.CallerPhone(c) != ""
	if err := h.profiles.Register(c.Request.Context(), types.ID(uid), verified); err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": uid, "phone_verified": verified})
}

func (h *RiderHandler) Trust(c *gin.Context) {
	uid := middleware.CallerUID(c)
	t, err := h.profiles.GetTrust(c.Request.Context(), types.ID(uid))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	if t == nil {
		writeJSON(c, http.StatusOK, gin.H{"rider_id": uid, "phone_verified": false})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider_id": uid, "phone_verified": true, "trust": t})
}
