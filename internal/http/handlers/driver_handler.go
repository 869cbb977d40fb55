// README: Driver handlers; nearby pending bookings and trip transitions.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"toda/internal/http/middleware"
	"toda/internal/modules/booking"
	"toda/internal/modules/dispatch"
	"toda/internal/types"
)

const defaultRadiusKm = 3.0

type DriverHandler struct {
	dispatch *dispatch.Service
}

func NewDriverHandler(svc *dispatch.Service) *DriverHandler {
	return &DriverHandler{dispatch: svc}
}

func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := defaultRadiusKm
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	list, err := h.dispatch.NearbyPending(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	for i := range list {
		list[i].VerificationCode = ""
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": list})
}

// Accept answers 200 with the booking, or 202 when the booking is accepted
// but the chat channel still has to be opened through Channel.
func (h *DriverHandler) Accept(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.Accept(c.Request.Context(), id, types.ID(uid))
	if errors.Is(err, dispatch.ErrChannelPending) {
		writeJSON(c, http.StatusAccepted, gin.H{"booking": bookingView(b, uid), "chat_pending": true})
		return
	}
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"booking": bookingView(b, uid), "chat_id": b.ID})
}

func (h *DriverHandler) Channel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.dispatch.Get(c.Request.Context(), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	if string(b.DriverID) != middleware.CallerUID(c) {
		writeError(c, http.StatusForbidden, "forbidden")
		return
	}
	chatID, err := h.dispatch.EnsureChannel(c.Request.Context(), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"chat_id": chatID})
}

func (h *DriverHandler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.Reject(c.Request.Context(), id, booking.ActorDriver, types.ID(uid))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b, uid))
}

func (h *DriverHandler) Start(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.Start(c.Request.Context(), id, types.ID(uid))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b, uid))
}

type completeReq struct {
	ActualFare *float64 `json:"actual_fare"`
}

func (h *DriverHandler) Complete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req completeReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	uid := middleware.CallerUID(c)
	b, err := h.dispatch.Complete(c.Request.Context(), id, types.ID(uid), req.ActualFare)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b, uid))
}
